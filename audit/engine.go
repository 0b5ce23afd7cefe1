// Package audit implements pure-read verification and re-tally operations
// over a ledger and its registries (spec.md §4.7). Grounded on the
// teacher's native/governance AuditRecord/AuditEvent trail,
// explorer/formatters.go's read-only presentation helpers, and
// tools/audit/main.go's JSON report-building idiom, generalized from a
// YAML-driven compliance checklist to a ledger-native transparency report.
package audit

import (
	"sort"

	"govledger/crypto"
	"govledger/governance"
	"govledger/identity"
	"govledger/ledger"
	"govledger/ledgererr"
	"govledger/observability/metrics"
	"govledger/petition"
	"govledger/voting"
)

// Engine performs read-only checks over a ledger and its registries. It
// never mutates any of them.
type Engine struct {
	ledger     *ledger.Ledger
	identities *identity.Registry
	proposals  *governance.Registry
	petitions  *petition.Registry
	votingMgr  *voting.Manager
}

// New constructs an audit engine over the given components.
func New(l *ledger.Ledger, idReg *identity.Registry, propReg *governance.Registry, petReg *petition.Registry, votingMgr *voting.Manager) *Engine {
	return &Engine{ledger: l, identities: idReg, proposals: propReg, petitions: petReg, votingMgr: votingMgr}
}

// ChainIntegrityReport wraps ledger.VerifyChain with chain stats.
type ChainIntegrityReport struct {
	Valid      bool          `json:"valid"`
	Error      string        `json:"error,omitempty"`
	BlockIndex *int          `json:"blockIndex,omitempty"`
	Stats      ledger.Stats  `json:"stats"`
}

// VerifyChainIntegrity wraps ledger.verifyChain() with chain stats.
func (e *Engine) VerifyChainIntegrity() ChainIntegrityReport {
	result := e.ledger.VerifyChain()
	return ChainIntegrityReport{
		Valid:      result.Valid,
		Error:      result.Error,
		BlockIndex: result.BlockIndex,
		Stats:      e.ledger.Stats(),
	}
}

// InclusionReport is the result of VerifyEntryInclusion.
type InclusionReport struct {
	Found bool   `json:"found"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// VerifyEntryInclusion fetches the inclusion proof for entryID and checks
// it against the stored Merkle root.
func (e *Engine) VerifyEntryInclusion(entryID string) InclusionReport {
	proof, err := e.ledger.GetInclusionProof(entryID)
	if err != nil {
		if ledgererr.IsNotFound(err) {
			return InclusionReport{Found: false}
		}
		return InclusionReport{Found: false, Error: err.Error()}
	}
	ok := crypto.VerifyProof(proof.LeafHash, proof.Proof, proof.MerkleRoot)
	return InclusionReport{Found: true, Valid: ok}
}

// SignatureReport is the result of VerifyEntrySignature.
type SignatureReport struct {
	Found           bool   `json:"found"`
	ActorID         string `json:"actorId,omitempty"`
	SignatureValid  bool   `json:"signatureValid"`
	Note            string `json:"note,omitempty"`
}

// VerifyEntrySignature reports whether an entry's recorded signature
// verifies against its signing actor's public key. SYSTEM entries are
// documentary and always report valid with an explanatory note.
func (e *Engine) VerifyEntrySignature(entryID string) SignatureReport {
	entry, ok := e.ledger.GetEntry(entryID)
	if !ok {
		return SignatureReport{Found: false}
	}
	if entry.IsSystem() {
		return SignatureReport{Found: true, ActorID: entry.ActorID, SignatureValid: true, Note: "system entry carries a documentary digest, not a cryptographic signature"}
	}
	actor, err := e.identities.Get(entry.ActorID)
	if err != nil {
		return SignatureReport{Found: true, ActorID: entry.ActorID, SignatureValid: false, Note: "signing identity not found in registry"}
	}
	valid := crypto.Verify(map[string]interface{}{
		"type":      entry.Type,
		"payload":   entry.Payload,
		"actorId":   entry.ActorID,
		"timestamp": entry.Timestamp,
	}, entry.Signature, actor.PublicKey)
	return SignatureReport{Found: true, ActorID: entry.ActorID, SignatureValid: valid}
}

// EntrySummary is an ordered, presentation-oriented view of a ledger entry.
type EntrySummary struct {
	ID        string          `json:"id"`
	Type      ledger.EntryType `json:"type"`
	ActorID   string          `json:"actorId"`
	Timestamp int64           `json:"timestamp"`
}

func summarize(entries []*ledger.Entry) []EntrySummary {
	out := make([]EntrySummary, len(entries))
	for i, e := range entries {
		out[i] = EntrySummary{ID: e.ID, Type: e.Type, ActorID: e.ActorID, Timestamp: e.Timestamp}
	}
	return out
}

// GetIdentityActivity returns every ledger entry authored by fp, in chain
// order.
func (e *Engine) GetIdentityActivity(fp string) []EntrySummary {
	return summarize(e.ledger.GetEntriesByActor(fp))
}

// GetProposalHistory scans the relevant entry-type indexes and returns the
// trail of entries whose payload references proposalID, ordered by entry
// timestamp. Entries with the same millisecond timestamp keep the order of
// the type list below.
func (e *Engine) GetProposalHistory(proposalID string) []EntrySummary {
	var matched []*ledger.Entry
	relevantTypes := []ledger.EntryType{
		ledger.EntryTypeProposalCreate,
		ledger.EntryTypeProposalStateChange,
		ledger.EntryTypePetitionSign,
		ledger.EntryTypePetitionThresholdMet,
		ledger.EntryTypeVoteCommit,
		ledger.EntryTypeVoteReveal,
		ledger.EntryTypeVoteTally,
	}
	for _, t := range relevantTypes {
		for _, entry := range e.ledger.GetEntriesByType(t) {
			payload, ok := entry.Payload.(map[string]interface{})
			if !ok {
				continue
			}
			if payload["proposalId"] == proposalID {
				matched = append(matched, entry)
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp < matched[j].Timestamp
	})
	return summarize(matched)
}

// VoteMatchReport is returned by VerifyProposalVotes.
type VoteMatchReport struct {
	Matches      bool           `json:"matches"`
	RecomputedCounts map[string]int `json:"recomputedCounts"`
	StoredCounts     map[string]int `json:"storedCounts,omitempty"`
}

// VerifyProposalVotes re-counts choices by iterating all VOTE_REVEAL
// entries for proposalID and compares against the proposal's tallyResult.
func (e *Engine) VerifyProposalVotes(proposalID string) (VoteMatchReport, error) {
	prop, err := e.proposals.Get(proposalID)
	if err != nil {
		return VoteMatchReport{}, err
	}

	recomputed := map[string]int{
		string(voting.ChoiceYea):     0,
		string(voting.ChoiceNay):     0,
		string(voting.ChoiceAbstain): 0,
	}
	for _, entry := range e.ledger.GetEntriesByType(ledger.EntryTypeVoteReveal) {
		payload, ok := entry.Payload.(map[string]interface{})
		if !ok || payload["proposalId"] != proposalID {
			continue
		}
		choice, _ := payload["choice"].(string)
		if _, known := recomputed[choice]; known {
			recomputed[choice]++
		}
	}

	if prop.TallyResult == nil {
		return VoteMatchReport{Matches: false, RecomputedCounts: recomputed}, nil
	}

	matches := true
	for k, v := range recomputed {
		if prop.TallyResult.Counts[k] != v {
			matches = false
		}
	}
	return VoteMatchReport{Matches: matches, RecomputedCounts: recomputed, StoredCounts: prop.TallyResult.Counts}, nil
}

// TransparencyReport is a JSON snapshot of overall system health.
type TransparencyReport struct {
	ChainIntegrity ChainIntegrityReport `json:"chainIntegrity"`
	LedgerStats    ledger.Stats         `json:"ledgerStats"`
	IdentityStats  identity.Stats       `json:"identityStats"`
}

// GenerateTransparencyReport produces a JSON-ready snapshot covering chain
// integrity and top-level registry stats.
func (e *Engine) GenerateTransparencyReport() TransparencyReport {
	metrics.Default().SetProposalsByState(e.proposals.CountByState())
	return TransparencyReport{
		ChainIntegrity: e.VerifyChainIntegrity(),
		LedgerStats:    e.ledger.Stats(),
		IdentityStats:  e.identities.Stats(),
	}
}

// ExportLedger returns the ledger's canonical on-disk JSON form.
func (e *Engine) ExportLedger() ([]byte, error) {
	return e.ledger.ToJSON()
}
