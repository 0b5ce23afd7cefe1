package ledger

import (
	"encoding/json"
	"sync"
	"time"

	"govledger/crypto"
	"govledger/ledgererr"
	"govledger/observability/metrics"
)

type entryLocation struct {
	BlockIndex int
	EntryIndex int
}

// VerifyResult is the outcome of a full chain verification pass.
type VerifyResult struct {
	Valid      bool
	Error      string
	BlockIndex *int
}

// Stats summarizes the ledger for operators and the audit engine.
type Stats struct {
	Blocks        int `json:"blocks"`
	PendingCount  int `json:"pendingCount"`
	TotalEntries  int `json:"totalEntries"`
	Difficulty    int `json:"difficulty"`
	LatestHeight  int `json:"latestHeight"`
	DistinctTypes int `json:"distinctTypes"`
}

// Ledger is the chain of blocks plus the pending entry queue and the
// secondary indexes that make lookups by id, type, and actor cheap
// (spec.md §3-4.2).
//
// The scheduling model is single-threaded cooperative (spec.md §5): the
// mutex below exists only to serialize callers when the ledger is embedded
// in a concurrent runtime, not to allow concurrent writers to race safely
// against each other's business logic.
type Ledger struct {
	mu         sync.Mutex
	difficulty int
	chain      []*Block
	pending    []*Entry
	entryIndex map[string]entryLocation
	typeIndex  map[EntryType]map[string]struct{}
	actorIndex map[string]map[string]struct{}
}

// New constructs a ledger with the genesis block mined at the given
// difficulty.
func New(difficulty int) (*Ledger, error) {
	genesis, err := newGenesisBlock(difficulty)
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		difficulty: difficulty,
		chain:      []*Block{genesis},
		entryIndex: make(map[string]entryLocation),
		typeIndex:  make(map[EntryType]map[string]struct{}),
		actorIndex: make(map[string]map[string]struct{}),
	}
	return l, nil
}

// Difficulty returns the configured mining difficulty.
func (l *Ledger) Difficulty() int { return l.difficulty }

// AddEntry pushes a fully formed, already-signed entry onto the pending
// queue. It is not sealed into a block until CommitBlock is called.
func (l *Ledger) AddEntry(e *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, e)
}

// PendingCount reports the number of entries awaiting the next block.
func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// CommitBlock seals the pending queue into a new mined block, updates the
// secondary indexes, and clears pending. It returns nil if pending is empty.
func (l *Ledger) CommitBlock() (*Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil, nil
	}

	latest := l.chain[len(l.chain)-1]
	miningStart := time.Now()
	block, err := mineBlock(len(l.chain), time.Now().UnixMilli(), l.pending, latest.Hash, l.difficulty)
	if err != nil {
		return nil, err
	}

	blockIndex := len(l.chain)
	for i, e := range block.Entries {
		l.entryIndex[e.ID] = entryLocation{BlockIndex: blockIndex, EntryIndex: i}
		if l.typeIndex[e.Type] == nil {
			l.typeIndex[e.Type] = make(map[string]struct{})
		}
		l.typeIndex[e.Type][e.ID] = struct{}{}
		if l.actorIndex[e.ActorID] == nil {
			l.actorIndex[e.ActorID] = make(map[string]struct{})
		}
		l.actorIndex[e.ActorID][e.ID] = struct{}{}
		metrics.Default().ObserveEntryCommitted(string(e.Type))
	}

	l.chain = append(l.chain, block)
	l.pending = nil
	metrics.Default().ObserveBlockMined(time.Since(miningStart), len(l.chain))
	return block, nil
}

// LatestBlock returns the most recently committed block (the genesis block
// if nothing else has been committed).
func (l *Ledger) LatestBlock() *Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chain[len(l.chain)-1]
}

// ChainLength returns the number of blocks, including genesis.
func (l *Ledger) ChainLength() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chain)
}

// BlockAt returns the block at index, or nil if out of range.
func (l *Ledger) BlockAt(index int) *Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.chain) {
		return nil
	}
	return l.chain[index]
}

// GetEntry looks up an entry by id across committed blocks, then among the
// still-pending entries, so the audit surface sees an entry as soon as it is
// appended.
func (l *Ledger) GetEntry(id string) (*Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if loc, ok := l.entryIndex[id]; ok {
		return l.chain[loc.BlockIndex].Entries[loc.EntryIndex], true
	}
	for _, e := range l.pending {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// GetEntriesByType returns every entry of the given type, in chain order,
// followed by any still-pending (not yet committed) entries of that type in
// submission order. The audit surface must see an entry as soon as it is
// appended, not only once a block happens to seal it.
func (l *Ledger) GetEntriesByType(t EntryType) []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := l.typeIndex[t]
	out := l.resolveOrdered(ids)
	for _, e := range l.pending {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// GetEntriesByActor returns every entry authored by actorID, in chain order,
// followed by any still-pending entries from that actor in submission order.
func (l *Ledger) GetEntriesByActor(actorID string) []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := l.actorIndex[actorID]
	out := l.resolveOrdered(ids)
	for _, e := range l.pending {
		if e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out
}

// resolveOrdered walks the chain once to return entries matching ids in
// committed order, rather than in map iteration order.
func (l *Ledger) resolveOrdered(ids map[string]struct{}) []*Entry {
	if len(ids) == 0 {
		return nil
	}
	var out []*Entry
	for _, block := range l.chain {
		for _, e := range block.Entries {
			if _, ok := ids[e.ID]; ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// InclusionProof demonstrates that an entry is included in a specific
// block's Merkle tree.
type InclusionProof struct {
	BlockIndex int                      `json:"blockIndex"`
	EntryIndex int                      `json:"entryIndex"`
	MerkleRoot string                   `json:"merkleRoot"`
	Proof      []crypto.MerkleProofStep `json:"proof"`
	LeafHash   string                   `json:"leafHash"`
}

// GetInclusionProof returns the Merkle path proving entryID's membership in
// the block that committed it.
func (l *Ledger) GetInclusionProof(entryID string) (*InclusionProof, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	loc, ok := l.entryIndex[entryID]
	if !ok {
		return nil, ledgererr.NotFound("ledger: entry %s not found", entryID)
	}
	block := l.chain[loc.BlockIndex]
	tree := crypto.NewMerkleTree(entryLeaves(block.Entries))
	proof, err := tree.GetProof(loc.EntryIndex)
	if err != nil {
		return nil, err
	}
	return &InclusionProof{
		BlockIndex: loc.BlockIndex,
		EntryIndex: loc.EntryIndex,
		MerkleRoot: block.MerkleRoot,
		Proof:      proof,
		LeafHash:   block.Entries[loc.EntryIndex].Hash,
	}, nil
}

// VerifyChain walks every block from index 1 and checks, in order: the
// previous-hash pointer, the recomputed block hash, every entry's
// recomputed content hash, and the recomputed Merkle root. The first
// failure short-circuits (spec.md §4.2).
func (l *Ledger) VerifyChain() VerifyResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 1; i < len(l.chain); i++ {
		block := l.chain[i]
		prev := l.chain[i-1]

		if block.PreviousHash != prev.Hash {
			idx := i
			return VerifyResult{Valid: false, Error: "previous hash mismatch", BlockIndex: &idx}
		}

		recomputedHash, err := blockHash(block.Index, block.Timestamp, block.MerkleRoot, block.PreviousHash, block.Nonce)
		if err != nil || recomputedHash != block.Hash {
			idx := i
			return VerifyResult{Valid: false, Error: "block hash mismatch", BlockIndex: &idx}
		}

		for _, e := range block.Entries {
			recomputed, err := e.RecomputeHash()
			if err != nil || recomputed != e.Hash {
				idx := i
				return VerifyResult{Valid: false, Error: "entry hash mismatch for " + e.ID, BlockIndex: &idx}
			}
		}

		recomputedRoot := crypto.NewMerkleTree(entryLeaves(block.Entries)).Root()
		if recomputedRoot != block.MerkleRoot {
			idx := i
			return VerifyResult{Valid: false, Error: "merkle root mismatch", BlockIndex: &idx}
		}
	}

	return VerifyResult{Valid: true}
}

// Stats summarizes the ledger.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, b := range l.chain {
		total += len(b.Entries)
	}
	return Stats{
		Blocks:        len(l.chain),
		PendingCount:  len(l.pending),
		TotalEntries:  total,
		Difficulty:    l.difficulty,
		LatestHeight:  len(l.chain) - 1,
		DistinctTypes: len(l.typeIndex),
	}
}

// exportForm is the canonical wire/on-disk shape (spec.md §6).
type exportForm struct {
	Difficulty int      `json:"difficulty"`
	Chain      []*Block `json:"chain"`
}

// ToJSON serializes the ledger to its canonical wire/on-disk form.
func (l *Ledger) ToJSON() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return json.Marshal(exportForm{Difficulty: l.difficulty, Chain: l.chain})
}

// FromJSON rebuilds a ledger, including every secondary index, from its
// exported JSON form.
func FromJSON(data []byte) (*Ledger, error) {
	var form exportForm
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, ledgererr.Validation("ledger: malformed export: %v", err)
	}

	l := &Ledger{
		difficulty: form.Difficulty,
		chain:      form.Chain,
		entryIndex: make(map[string]entryLocation),
		typeIndex:  make(map[EntryType]map[string]struct{}),
		actorIndex: make(map[string]map[string]struct{}),
	}
	for bi, block := range l.chain {
		for ei, e := range block.Entries {
			l.entryIndex[e.ID] = entryLocation{BlockIndex: bi, EntryIndex: ei}
			if l.typeIndex[e.Type] == nil {
				l.typeIndex[e.Type] = make(map[string]struct{})
			}
			l.typeIndex[e.Type][e.ID] = struct{}{}
			if l.actorIndex[e.ActorID] == nil {
				l.actorIndex[e.ActorID] = make(map[string]struct{})
			}
			l.actorIndex[e.ActorID][e.ID] = struct{}{}
		}
	}
	return l, nil
}

// ReplaceChain swaps in a new, already-verified chain wholesale (used by the
// replication node's longest-valid-chain adoption) and rebuilds every index.
// Callers must have already run VerifyChain on the candidate.
func (l *Ledger) ReplaceChain(chain []*Block) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.chain = chain
	l.pending = nil
	l.entryIndex = make(map[string]entryLocation)
	l.typeIndex = make(map[EntryType]map[string]struct{})
	l.actorIndex = make(map[string]map[string]struct{})
	for bi, block := range l.chain {
		for ei, e := range block.Entries {
			l.entryIndex[e.ID] = entryLocation{BlockIndex: bi, EntryIndex: ei}
			if l.typeIndex[e.Type] == nil {
				l.typeIndex[e.Type] = make(map[string]struct{})
			}
			l.typeIndex[e.Type][e.ID] = struct{}{}
			if l.actorIndex[e.ActorID] == nil {
				l.actorIndex[e.ActorID] = make(map[string]struct{})
			}
			l.actorIndex[e.ActorID][e.ID] = struct{}{}
		}
	}
}

// AppendBlock appends a single block received via gossip if and only if its
// PreviousHash matches the local latest block's hash (spec.md §4.8). It does
// not recompute the block's hash, Merkle root, or entry hashes, and it does
// not check entry signatures; the replication node's NEW_BLOCK handler calls
// it without any further checks.
func (l *Ledger) AppendBlock(block *Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	latest := l.chain[len(l.chain)-1]
	if block.PreviousHash != latest.Hash {
		return ledgererr.State("ledger: gossiped block does not extend local chain")
	}

	blockIndex := len(l.chain)
	for i, e := range block.Entries {
		l.entryIndex[e.ID] = entryLocation{BlockIndex: blockIndex, EntryIndex: i}
		if l.typeIndex[e.Type] == nil {
			l.typeIndex[e.Type] = make(map[string]struct{})
		}
		l.typeIndex[e.Type][e.ID] = struct{}{}
		if l.actorIndex[e.ActorID] == nil {
			l.actorIndex[e.ActorID] = make(map[string]struct{})
		}
		l.actorIndex[e.ActorID][e.ID] = struct{}{}
	}
	l.chain = append(l.chain, block)
	return nil
}
