// Package metrics exposes the node's Prometheus collectors, grounded on the
// teacher's observability/metrics/potso.go (lazily-initialised, package-level
// singleton registered once via sync.Once, one method per recorded event)
// and p2p/metrics.go (peer-count gauges), generalized from token/epoch
// reward tracking to the ledger's mining, governance, and replication
// events.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the node registers.
type Metrics struct {
	blocksMined        prometheus.Counter
	miningDuration     prometheus.Histogram
	chainLength        prometheus.Gauge
	entriesCommitted   *prometheus.CounterVec
	proposalsByState   *prometheus.GaugeVec
	petitionSignatures prometheus.Counter
	votesRevealed      *prometheus.CounterVec
	peersConnected     prometheus.Gauge
	peerPenalties      *prometheus.CounterVec
	chainAdoptions     prometheus.Counter
}

var (
	once     sync.Once
	registry *Metrics
)

// Default returns the process-wide metrics registry, creating and
// registering its collectors on first use.
func Default() *Metrics {
	once.Do(func() {
		registry = &Metrics{
			blocksMined: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "govledger",
				Subsystem: "ledger",
				Name:      "blocks_mined_total",
				Help:      "Count of blocks successfully mined and appended to the chain.",
			}),
			miningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "govledger",
				Subsystem: "ledger",
				Name:      "mining_duration_seconds",
				Help:      "Wall-clock time spent finding a valid proof-of-work nonce.",
				Buckets:   prometheus.DefBuckets,
			}),
			chainLength: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "govledger",
				Subsystem: "ledger",
				Name:      "chain_length",
				Help:      "Current number of blocks in the local chain.",
			}),
			entriesCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "govledger",
				Subsystem: "ledger",
				Name:      "entries_committed_total",
				Help:      "Count of ledger entries committed, segmented by entry type.",
			}, []string{"type"}),
			proposalsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "govledger",
				Subsystem: "governance",
				Name:      "proposals_by_state",
				Help:      "Number of proposals currently in each lifecycle state.",
			}, []string{"state"}),
			petitionSignatures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "govledger",
				Subsystem: "petition",
				Name:      "signatures_total",
				Help:      "Count of accepted petition signatures across all proposals.",
			}),
			votesRevealed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "govledger",
				Subsystem: "voting",
				Name:      "votes_revealed_total",
				Help:      "Count of revealed ballots, segmented by choice.",
			}, []string{"choice"}),
			peersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "govledger",
				Subsystem: "replication",
				Name:      "peers_connected",
				Help:      "Number of peers currently known to the replication node.",
			}),
			peerPenalties: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "govledger",
				Subsystem: "replication",
				Name:      "peer_penalties_total",
				Help:      "Count of reputation penalties applied, segmented by reason.",
			}, []string{"reason"}),
			chainAdoptions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "govledger",
				Subsystem: "replication",
				Name:      "chain_adoptions_total",
				Help:      "Count of times a longer valid peer chain replaced the local chain.",
			}),
		}
		prometheus.MustRegister(
			registry.blocksMined,
			registry.miningDuration,
			registry.chainLength,
			registry.entriesCommitted,
			registry.proposalsByState,
			registry.petitionSignatures,
			registry.votesRevealed,
			registry.peersConnected,
			registry.peerPenalties,
			registry.chainAdoptions,
		)
	})
	return registry
}

// ObserveBlockMined records a successfully mined block.
func (m *Metrics) ObserveBlockMined(duration time.Duration, chainLength int) {
	if m == nil {
		return
	}
	m.blocksMined.Inc()
	m.miningDuration.Observe(duration.Seconds())
	m.chainLength.Set(float64(chainLength))
}

// ObserveEntryCommitted increments the entries-committed counter for the
// given entry type.
func (m *Metrics) ObserveEntryCommitted(entryType string) {
	if m == nil {
		return
	}
	if entryType == "" {
		entryType = "unknown"
	}
	m.entriesCommitted.WithLabelValues(entryType).Inc()
}

// SetProposalsByState replaces the proposal-state gauge with the supplied
// counts (one call per tally, e.g. on every audit transparency report).
func (m *Metrics) SetProposalsByState(counts map[string]int) {
	if m == nil {
		return
	}
	m.proposalsByState.Reset()
	for state, count := range counts {
		m.proposalsByState.WithLabelValues(state).Set(float64(count))
	}
}

// ObservePetitionSignature increments the petition-signature counter.
func (m *Metrics) ObservePetitionSignature() {
	if m == nil {
		return
	}
	m.petitionSignatures.Inc()
}

// ObserveVoteRevealed increments the revealed-vote counter for choice.
func (m *Metrics) ObserveVoteRevealed(choice string) {
	if m == nil {
		return
	}
	if choice == "" {
		choice = "unknown"
	}
	m.votesRevealed.WithLabelValues(choice).Inc()
}

// SetPeersConnected updates the connected-peer gauge.
func (m *Metrics) SetPeersConnected(count int) {
	if m == nil {
		return
	}
	m.peersConnected.Set(float64(count))
}

// ObservePeerPenalty increments the peer-penalty counter for reason.
func (m *Metrics) ObservePeerPenalty(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.peerPenalties.WithLabelValues(reason).Inc()
}

// ObserveChainAdoption increments the chain-adoption counter.
func (m *Metrics) ObserveChainAdoption() {
	if m == nil {
		return
	}
	m.chainAdoptions.Inc()
}
