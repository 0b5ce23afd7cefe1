package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitmentOpensWithMatchingNonce(t *testing.T) {
	commitment, nonce := CreateCommitment("YEA", "")
	require.Len(t, nonce, 64)
	require.True(t, OpenCommitment("YEA", nonce, commitment))
}

func TestCommitmentRejectsOtherValueOrNonce(t *testing.T) {
	commitment, nonce := CreateCommitment("YEA", "")
	require.False(t, OpenCommitment("NAY", nonce, commitment))
	require.False(t, OpenCommitment("YEA", GenerateNonce(), commitment))
}

func TestGenerateIDAndNonceAreUniqueAndShaped(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()
	require.Len(t, id1, 32)
	require.NotEqual(t, id1, id2)

	n1 := GenerateNonce()
	require.Len(t, n1, 64)
}
