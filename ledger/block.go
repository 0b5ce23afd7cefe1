package ledger

import (
	"strings"
	"time"

	"govledger/crypto"
)

// DefaultDifficulty is the number of leading hex zeros a block hash must
// begin with, the rate limiter and tamper-cost multiplier spec.md §4.2
// describes. It is not a consensus mechanism.
const DefaultDifficulty = 2

// Block is an ordered group of entries hash-linked to its predecessor.
type Block struct {
	Index        int      `json:"index"`
	Timestamp    int64    `json:"timestamp"`
	Entries      []*Entry `json:"entries"`
	PreviousHash string   `json:"previousHash"`
	MerkleRoot   string   `json:"merkleRoot"`
	Nonce        int      `json:"nonce"`
	Hash         string   `json:"hash"`
}

func entryLeaves(entries []*Entry) []string {
	leaves := make([]string, len(entries))
	for i, e := range entries {
		leaves[i] = e.Hash
	}
	return leaves
}

func blockHash(index int, timestamp int64, merkleRoot, previousHash string, nonce int) (string, error) {
	return crypto.Hash(map[string]interface{}{
		"index":        index,
		"timestamp":    timestamp,
		"merkleRoot":   merkleRoot,
		"previousHash": previousHash,
		"nonce":        nonce,
	})
}

// mineBlock finds the smallest nonce such that the block hash begins with
// difficulty leading hex zeros. It is a trivial proof-of-work used as a
// rate limiter, not a consensus protocol (spec.md §4.2).
func mineBlock(index int, timestamp int64, entries []*Entry, previousHash string, difficulty int) (*Block, error) {
	merkleRoot := crypto.NewMerkleTree(entryLeaves(entries)).Root()
	prefix := strings.Repeat("0", difficulty)

	nonce := 0
	for {
		hash, err := blockHash(index, timestamp, merkleRoot, previousHash, nonce)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(hash, prefix) {
			return &Block{
				Index:        index,
				Timestamp:    timestamp,
				Entries:      entries,
				PreviousHash: previousHash,
				MerkleRoot:   merkleRoot,
				Nonce:        nonce,
				Hash:         hash,
			}, nil
		}
		nonce++
	}
}

func newGenesisBlock(difficulty int) (*Block, error) {
	return mineBlock(0, time.Now().UnixMilli(), []*Entry{}, "0", difficulty)
}
