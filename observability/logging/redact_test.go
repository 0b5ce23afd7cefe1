package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsAllowlistedIsCaseInsensitive(t *testing.T) {
	require.True(t, IsAllowlisted("ProposalId"))
	require.True(t, IsAllowlisted("fingerprint"))
	require.False(t, IsAllowlisted("privateKey"))
}

func TestMaskFieldRedactsNonAllowlistedValues(t *testing.T) {
	attr := MaskField("privateKey", "super-secret")
	require.Equal(t, RedactedValue, attr.Value.String())

	attr = MaskField("proposalId", "proposal-1")
	require.Equal(t, "proposal-1", attr.Value.String())
}

func TestMaskValueLeavesEmptyValuesUntouched(t *testing.T) {
	require.Equal(t, "", MaskValue(""))
	require.Equal(t, RedactedValue, MaskValue("abc"))
}
