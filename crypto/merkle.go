package crypto

import (
	"encoding/hex"
	"fmt"
)

// MerkleProofStep is one sibling hash on the path from a leaf to the root,
// tagged with which side of the pair-hash it occupies.
type MerkleProofStep struct {
	Hash     string `json:"hash"`
	Position string `json:"position"` // "left" or "right"
}

// MerkleTree is a bottom-up SHA3-256 Merkle tree over a fixed set of leaf
// hashes. When a layer has odd width, the last node is paired with itself.
type MerkleTree struct {
	leaves []string
	layers [][]string
}

// NewMerkleTree builds a tree over leaves, which must already be hex-encoded
// leaf hashes (e.g. entry content hashes or ballot leaf hashes).
func NewMerkleTree(leaves []string) *MerkleTree {
	if len(leaves) == 0 {
		return &MerkleTree{layers: [][]string{{}}}
	}
	layer := append([]string(nil), leaves...)
	layers := [][]string{layer}
	for len(layer) > 1 {
		next := make([]string, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 < len(layer) {
				next = append(next, pairHash(layer[i], layer[i+1]))
			} else {
				next = append(next, pairHash(layer[i], layer[i]))
			}
		}
		layer = next
		layers = append(layers, layer)
	}
	return &MerkleTree{leaves: append([]string(nil), leaves...), layers: layers}
}

// Root returns the Merkle root. An empty leaf set returns HashRaw("").
func (t *MerkleTree) Root() string {
	if len(t.leaves) == 0 {
		return HashRaw("")
	}
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// GetProof returns the sibling path from leaf index to the root.
func (t *MerkleTree) GetProof(index int) ([]MerkleProofStep, error) {
	if index < 0 || index >= len(t.leaves) {
		return nil, fmt.Errorf("crypto: leaf index %d out of range [0,%d)", index, len(t.leaves))
	}
	proof := make([]MerkleProofStep, 0, len(t.layers)-1)
	idx := index
	for level := 0; level < len(t.layers)-1; level++ {
		layer := t.layers[level]
		if idx%2 == 1 {
			proof = append(proof, MerkleProofStep{Hash: layer[idx-1], Position: "left"})
		} else {
			siblingIdx := idx + 1
			if siblingIdx >= len(layer) {
				siblingIdx = idx
			}
			proof = append(proof, MerkleProofStep{Hash: layer[siblingIdx], Position: "right"})
		}
		idx = idx / 2
	}
	return proof, nil
}

// Leaves returns a copy of the leaf hashes backing the tree.
func (t *MerkleTree) Leaves() []string {
	return append([]string(nil), t.leaves...)
}

// VerifyProof recomputes the root from leafHash and proof and compares it to
// root. Any altered leaf, proof step, or root produces false.
func VerifyProof(leafHash string, proof []MerkleProofStep, root string) bool {
	current := leafHash
	for _, step := range proof {
		switch step.Position {
		case "left":
			current = pairHash(step.Hash, current)
		case "right":
			current = pairHash(current, step.Hash)
		default:
			return false
		}
	}
	return current == root
}

func pairHash(left, right string) string {
	lb, err := hex.DecodeString(left)
	if err != nil {
		return ""
	}
	rb, err := hex.DecodeString(right)
	if err != nil {
		return ""
	}
	combined := make([]byte, 0, len(lb)+len(rb))
	combined = append(combined, lb...)
	combined = append(combined, rb...)
	return sha3Hex(combined)
}
