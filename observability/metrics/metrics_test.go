package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDefaultReturnsSameRegistryEveryCall(t *testing.T) {
	require.Same(t, Default(), Default())
}

func TestObserveBlockMinedUpdatesCounterAndGauge(t *testing.T) {
	m := Default()
	before := testutil.ToFloat64(m.blocksMined)
	m.ObserveBlockMined(5*time.Millisecond, 3)
	require.Equal(t, before+1, testutil.ToFloat64(m.blocksMined))
	require.Equal(t, float64(3), testutil.ToFloat64(m.chainLength))
}

func TestNilMetricsMethodsAreNoOps(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveBlockMined(time.Millisecond, 1)
		m.ObserveEntryCommitted("REGISTER")
		m.SetProposalsByState(map[string]int{"DRAFT": 1})
		m.ObservePetitionSignature()
		m.ObserveVoteRevealed("YEA")
		m.SetPeersConnected(2)
		m.ObservePeerPenalty("malformed_message")
		m.ObserveChainAdoption()
	})
}
