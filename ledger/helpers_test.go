package ledger

import (
	"testing"

	"govledger/crypto"
)

func testKeyPair(t *testing.T) (pub string, priv string, err error) {
	t.Helper()
	return crypto.GenerateKeyPair()
}

func verifyInclusion(p *InclusionProof) bool {
	return crypto.VerifyProof(p.LeafHash, p.Proof, p.MerkleRoot)
}
