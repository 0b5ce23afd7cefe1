package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLedgerMinesGenesisAtConfiguredDifficulty(t *testing.T) {
	l, err := New(2)
	require.NoError(t, err)
	require.Equal(t, 1, l.ChainLength())

	genesis := l.LatestBlock()
	require.Equal(t, "0", genesis.PreviousHash)
	require.Empty(t, genesis.Entries)
	require.True(t, len(genesis.Hash) >= 2 && genesis.Hash[:2] == "00")

	result := l.VerifyChain()
	require.True(t, result.Valid)
}

func TestAddEntryThenCommitBlockSealsPendingAndClears(t *testing.T) {
	l, err := New(1)
	require.NoError(t, err)

	_, priv, err := testKeyPair(t)
	require.NoError(t, err)

	e, err := NewEntry(EntryTypeRegister, map[string]interface{}{"jurisdiction": "us-ca"}, "actor-1", priv)
	require.NoError(t, err)
	l.AddEntry(e)
	require.Equal(t, 1, l.PendingCount())

	block, err := l.CommitBlock()
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Equal(t, 1, block.Index)
	require.Equal(t, 0, l.PendingCount())
	require.Equal(t, 2, l.ChainLength())

	got, ok := l.GetEntry(e.ID)
	require.True(t, ok)
	require.Equal(t, e.Hash, got.Hash)

	byType := l.GetEntriesByType(EntryTypeRegister)
	require.Len(t, byType, 1)

	byActor := l.GetEntriesByActor("actor-1")
	require.Len(t, byActor, 1)
}

func TestCommitBlockWithNoPendingEntriesReturnsNil(t *testing.T) {
	l, err := New(1)
	require.NoError(t, err)
	block, err := l.CommitBlock()
	require.NoError(t, err)
	require.Nil(t, block)
}

func TestVerifyChainDetectsTamperedEntryPayload(t *testing.T) {
	l, err := New(1)
	require.NoError(t, err)

	_, priv, err := testKeyPair(t)
	require.NoError(t, err)

	e, err := NewEntry(EntryTypeRegister, map[string]interface{}{"jurisdiction": "us-ca"}, "actor-1", priv)
	require.NoError(t, err)
	l.AddEntry(e)
	_, err = l.CommitBlock()
	require.NoError(t, err)

	l.chain[1].Entries[0].Payload = map[string]interface{}{"jurisdiction": "us-ny"}

	result := l.VerifyChain()
	require.False(t, result.Valid)
	require.NotNil(t, result.BlockIndex)
	require.Equal(t, 1, *result.BlockIndex)
}

func TestVerifyChainDetectsBrokenPreviousHashLink(t *testing.T) {
	l, err := New(1)
	require.NoError(t, err)

	_, priv, err := testKeyPair(t)
	require.NoError(t, err)
	e, err := NewEntry(EntryTypeRegister, map[string]interface{}{"a": 1}, "actor-1", priv)
	require.NoError(t, err)
	l.AddEntry(e)
	_, err = l.CommitBlock()
	require.NoError(t, err)

	l.chain[1].PreviousHash = "deadbeef"

	result := l.VerifyChain()
	require.False(t, result.Valid)
	require.Equal(t, 1, *result.BlockIndex)
}

func TestInclusionProofVerifiesAgainstBlockMerkleRoot(t *testing.T) {
	l, err := New(1)
	require.NoError(t, err)
	_, priv, err := testKeyPair(t)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		e, err := NewEntry(EntryTypeAttestation, map[string]interface{}{"n": i}, "actor-1", priv)
		require.NoError(t, err)
		l.AddEntry(e)
	}
	block, err := l.CommitBlock()
	require.NoError(t, err)

	target := block.Entries[2]
	proof, err := l.GetInclusionProof(target.ID)
	require.NoError(t, err)
	require.Equal(t, block.MerkleRoot, proof.MerkleRoot)
	require.Equal(t, target.Hash, proof.LeafHash)

	ok := verifyInclusion(proof)
	require.True(t, ok)
}

func TestGetInclusionProofReturnsNotFoundForUnknownEntry(t *testing.T) {
	l, err := New(1)
	require.NoError(t, err)
	_, err = l.GetInclusionProof("does-not-exist")
	require.Error(t, err)
}

func TestToJSONFromJSONRoundTripsAndRebuildsIndexes(t *testing.T) {
	l, err := New(1)
	require.NoError(t, err)
	_, priv, err := testKeyPair(t)
	require.NoError(t, err)

	e, err := NewEntry(EntryTypeRegister, map[string]interface{}{"a": 1}, "actor-1", priv)
	require.NoError(t, err)
	l.AddEntry(e)
	_, err = l.CommitBlock()
	require.NoError(t, err)

	data, err := l.ToJSON()
	require.NoError(t, err)

	restored, err := FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, l.ChainLength(), restored.ChainLength())

	got, ok := restored.GetEntry(e.ID)
	require.True(t, ok)
	require.Equal(t, e.Hash, got.Hash)

	result := restored.VerifyChain()
	require.True(t, result.Valid)
}

func TestStatsReflectsChainAndPendingState(t *testing.T) {
	l, err := New(1)
	require.NoError(t, err)
	_, priv, err := testKeyPair(t)
	require.NoError(t, err)

	e, err := NewEntry(EntryTypeRegister, map[string]interface{}{"a": 1}, "actor-1", priv)
	require.NoError(t, err)
	l.AddEntry(e)

	stats := l.Stats()
	require.Equal(t, 1, stats.Blocks)
	require.Equal(t, 1, stats.PendingCount)
	require.Equal(t, 0, stats.TotalEntries)

	_, err = l.CommitBlock()
	require.NoError(t, err)

	stats = l.Stats()
	require.Equal(t, 2, stats.Blocks)
	require.Equal(t, 0, stats.PendingCount)
	require.Equal(t, 1, stats.TotalEntries)
	require.Equal(t, 1, stats.DistinctTypes)
}
