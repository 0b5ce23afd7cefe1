// Package governance implements the versioned proposal registry and its
// lifecycle state machine (spec.md §4.4), grounded on the teacher's
// native/governance package (ProposalStatus enum, Tally shape, typed
// execution payloads) adapted from deposit/voting-period semantics to the
// DRAFT/PETITION/OPEN/VOTING/TALLYING/ENACTED/REJECTED/AMENDED machine.
package governance

import (
	"time"

	"govledger/crypto"
	"govledger/identity"
	"govledger/ledger"
	"govledger/ledgererr"
)

// ProposalType enumerates the supported legislative item kinds.
type ProposalType string

const (
	ProposalTypeLaw        ProposalType = "LAW"
	ProposalTypeAmendment  ProposalType = "AMENDMENT"
	ProposalTypeRepeal     ProposalType = "REPEAL"
	ProposalTypeResolution ProposalType = "RESOLUTION"
)

// State enumerates the proposal lifecycle phases (spec.md §4.4).
type State string

const (
	StateDraft     State = "DRAFT"
	StatePetition  State = "PETITION"
	StateOpen      State = "OPEN"
	StateVoting    State = "VOTING"
	StateTallying  State = "TALLYING"
	StateEnacted   State = "ENACTED"
	StateRejected  State = "REJECTED"
	StateAmended   State = "AMENDED"
	StateExpired   State = "EXPIRED"
)

// allowedTransitions is the permitted-edges table from spec.md §4.4.
var allowedTransitions = map[State]map[State]bool{
	StateDraft:    {StatePetition: true, StateOpen: true},
	StatePetition: {StateOpen: true, StateExpired: true},
	StateOpen:     {StateVoting: true, StateExpired: true},
	StateVoting:   {StateTallying: true},
	StateTallying: {StateEnacted: true, StateRejected: true},
	StateEnacted:  {StateAmended: true},
}

// Version is one immutable snapshot of a proposal's text.
type Version struct {
	FullText     string   `json:"fullText"`
	Summary      string   `json:"summary"`
	Implications []string `json:"implications"`
	Hash         string   `json:"hash"`
	CreatedAt    int64    `json:"createdAt"`
}

// VotingConfig records the parameters governing a proposal's voting session
// (spec.md §4.4/4.6).
type VotingConfig struct {
	StartTime            int64  `json:"startTime"`
	EndTime              int64  `json:"endTime"`
	QuorumPercent        float64 `json:"quorumPercent"`
	PassPercent          float64 `json:"passPercent"`
	EligibleJurisdiction string `json:"eligibleJurisdiction"`
}

// TallyResult is the outcome attached to a proposal once voting closes
// (spec.md §4.6).
type TallyResult struct {
	Counts          map[string]int `json:"counts"`
	EligibleVoters  int            `json:"eligibleVoters"`
	TotalRevealed   int            `json:"totalRevealed"`
	QuorumMet       bool           `json:"quorumMet"`
	PassPercent     float64        `json:"passPercent"`
	Passed          bool           `json:"passed"`
	BallotMerkleRoot string        `json:"ballotMerkleRoot"`
}

// ExecutionPayload is the typed, kind-dispatched directive a proposal may
// carry. It is stored on the Proposal as given and never executed by the
// core; it is not written into the PROPOSAL_CREATE ledger entry and the
// audit engine does not report it (spec.md §1 scope; supplemented relative
// to the distilled spec from native/governance/engine.go's ProposalKind
// dispatch table).
type ExecutionPayload struct {
	Kind            string            `json:"kind"`
	ParamKey        string            `json:"paramKey,omitempty"`
	ParamValue      string            `json:"paramValue,omitempty"`
	RoleAllowlist   []string          `json:"roleAllowlist,omitempty"`
	TreasuryTarget  string            `json:"treasuryTarget,omitempty"`
	TreasuryAmount  string            `json:"treasuryAmount,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Execution payload kinds, mirroring native/governance/types.go's
// ProposalKind constants.
const (
	ExecutionKindParamUpdate  = "param.update"
	ExecutionKindRoleAllowlist = "role.allowlist"
	ExecutionKindTreasuryDirective = "treasury.directive"
)

// Proposal is a versioned legislative item with lifecycle (spec.md §3).
type Proposal struct {
	ID                string            `json:"id"`
	Type              ProposalType      `json:"type"`
	Title             string            `json:"title"`
	Jurisdiction      string            `json:"jurisdiction"`
	AmendmentOf       string            `json:"amendmentOf,omitempty"`
	AuthorFingerprint string            `json:"authorFingerprint"`
	State             State             `json:"state"`
	Versions          []Version         `json:"versions"`
	VotingConfig      *VotingConfig     `json:"votingConfig,omitempty"`
	TallyResult       *TallyResult      `json:"tallyResult,omitempty"`
	Execution         *ExecutionPayload `json:"execution,omitempty"`
	CreatedAt         int64             `json:"createdAt"`
}

// FullText returns the most recent version's full text.
func (p *Proposal) FullText() string { return p.Versions[len(p.Versions)-1].FullText }

// Summary returns the most recent version's summary.
func (p *Proposal) Summary() string { return p.Versions[len(p.Versions)-1].Summary }

// Implications returns the most recent version's implications.
func (p *Proposal) Implications() []string { return p.Versions[len(p.Versions)-1].Implications }

// Registry holds proposals and appends signed ledger entries for creation
// and transitions.
type Registry struct {
	ledger    *ledger.Ledger
	identities *identity.Registry
	proposals map[string]*Proposal
	now       func() time.Time
}

// New constructs a proposal registry backed by l and idReg for
// author-eligibility checks.
func New(l *ledger.Ledger, idReg *identity.Registry) *Registry {
	return &Registry{
		ledger:     l,
		identities: idReg,
		proposals:  make(map[string]*Proposal),
		now:        time.Now,
	}
}

func versionHash(v Version) (string, error) {
	return crypto.Hash(map[string]interface{}{
		"fullText":     v.FullText,
		"summary":      v.Summary,
		"implications": v.Implications,
	})
}

// Create registers a new proposal in DRAFT state. The author must be
// registered and non-revoked, and the initial version must carry at least
// one implication.
func (r *Registry) Create(pType ProposalType, title, jurisdiction, fullText, summary string, implications []string, amendmentOf, authorFp, authorPrivKey string, execution *ExecutionPayload) (*Proposal, error) {
	author, err := r.identities.Get(authorFp)
	if err != nil {
		return nil, err
	}
	if author.Revoked {
		return nil, ledgererr.Auth("governance: author %s is revoked", authorFp)
	}
	if len(implications) == 0 {
		return nil, ledgererr.Validation("governance: at least one implication is required")
	}

	now := r.now().UnixMilli()
	v0 := Version{FullText: fullText, Summary: summary, Implications: implications, CreatedAt: now}
	hash, err := versionHash(v0)
	if err != nil {
		return nil, err
	}
	v0.Hash = hash

	p := &Proposal{
		ID:                crypto.GenerateID(),
		Type:              pType,
		Title:             title,
		Jurisdiction:       jurisdiction,
		AmendmentOf:       amendmentOf,
		AuthorFingerprint: authorFp,
		State:             StateDraft,
		Versions:          []Version{v0},
		Execution:         execution,
		CreatedAt:         now,
	}
	r.proposals[p.ID] = p

	entry, err := ledger.NewEntry(ledger.EntryTypeProposalCreate, map[string]interface{}{
		"proposalId":   p.ID,
		"type":         pType,
		"title":        title,
		"jurisdiction": jurisdiction,
		"versionHash":  hash,
	}, authorFp, authorPrivKey)
	if err != nil {
		return nil, err
	}
	r.ledger.AddEntry(entry)
	return p, nil
}

// Get looks up a proposal by id.
func (r *Registry) Get(id string) (*Proposal, error) {
	p, ok := r.proposals[id]
	if !ok {
		return nil, ledgererr.NotFound("governance: proposal %s not found", id)
	}
	return p, nil
}

// All returns every known proposal in unspecified order, for reporting and
// metrics purposes.
func (r *Registry) All() []*Proposal {
	out := make([]*Proposal, 0, len(r.proposals))
	for _, p := range r.proposals {
		out = append(out, p)
	}
	return out
}

// CountByState returns the number of proposals currently in each lifecycle
// state.
func (r *Registry) CountByState() map[string]int {
	counts := make(map[string]int)
	for _, p := range r.proposals {
		counts[string(p.State)]++
	}
	return counts
}

// AddVersion appends a new immutable version, permitted only while the
// proposal is in DRAFT or OPEN.
func (r *Registry) AddVersion(proposalID, fullText, summary string, implications []string, actorFp, actorPrivKey string) (*Version, error) {
	p, err := r.Get(proposalID)
	if err != nil {
		return nil, err
	}
	if p.State != StateDraft && p.State != StateOpen {
		return nil, ledgererr.State("governance: cannot add version while proposal is %s", p.State)
	}
	if len(implications) == 0 {
		return nil, ledgererr.Validation("governance: at least one implication is required")
	}

	v := Version{FullText: fullText, Summary: summary, Implications: implications, CreatedAt: r.now().UnixMilli()}
	hash, err := versionHash(v)
	if err != nil {
		return nil, err
	}
	v.Hash = hash
	p.Versions = append(p.Versions, v)

	entry, err := ledger.NewEntry(ledger.EntryTypeProposalStateChange, map[string]interface{}{
		"proposalId":  proposalID,
		"action":      "ADD_VERSION",
		"versionHash": hash,
	}, actorFp, actorPrivKey)
	if err != nil {
		return nil, err
	}
	r.ledger.AddEntry(entry)
	return &v, nil
}

// SetVotingConfig records the voting parameters for proposalID, applying
// the spec.md §4.4 defaults for any zero-valued field.
func (r *Registry) SetVotingConfig(proposalID string, cfg VotingConfig, actorFp, actorPrivKey string) error {
	p, err := r.Get(proposalID)
	if err != nil {
		return err
	}
	if cfg.QuorumPercent == 0 {
		cfg.QuorumPercent = 10
	}
	if cfg.PassPercent == 0 {
		cfg.PassPercent = 50
	}
	p.VotingConfig = &cfg

	entry, err := ledger.NewEntry(ledger.EntryTypeProposalStateChange, map[string]interface{}{
		"proposalId": proposalID,
		"action":     "SET_VOTING_CONFIG",
		"config":     cfg,
	}, actorFp, actorPrivKey)
	if err != nil {
		return err
	}
	r.ledger.AddEntry(entry)
	return nil
}

// Transition moves proposalID from its current state to next, failing with
// StateError if the edge is not permitted by the spec.md §4.4 table.
func (r *Registry) Transition(proposalID string, next State, actorFp, actorPrivKey string) error {
	p, err := r.Get(proposalID)
	if err != nil {
		return err
	}
	return r.transitionProposal(p, next, actorFp, actorPrivKey)
}

func (r *Registry) transitionProposal(p *Proposal, next State, actorFp, actorPrivKey string) error {
	edges, ok := allowedTransitions[p.State]
	if !ok || !edges[next] {
		return ledgererr.State("governance: illegal transition %s -> %s", p.State, next)
	}
	prev := p.State
	p.State = next

	entry, err := ledger.NewEntry(ledger.EntryTypeProposalStateChange, map[string]interface{}{
		"proposalId": p.ID,
		"action":     "TRANSITION",
		"from":       prev,
		"to":         next,
	}, actorFp, actorPrivKey)
	if err != nil {
		p.State = prev
		return err
	}
	r.ledger.AddEntry(entry)
	return nil
}

// SystemTransition performs a state transition authored by the ledger
// itself (used by the petition manager when a threshold crossing advances
// PETITION -> OPEN, and by the voting manager when a tally resolves
// VOTING -> TALLYING -> {ENACTED, REJECTED}).
func (r *Registry) SystemTransition(proposalID string, next State) error {
	p, err := r.Get(proposalID)
	if err != nil {
		return err
	}
	edges, ok := allowedTransitions[p.State]
	if !ok || !edges[next] {
		return ledgererr.State("governance: illegal transition %s -> %s", p.State, next)
	}
	prev := p.State
	p.State = next

	entry, err := ledger.NewSystemEntry(ledger.EntryTypeProposalStateChange, map[string]interface{}{
		"proposalId": p.ID,
		"action":     "TRANSITION",
		"from":       prev,
		"to":         next,
	})
	if err != nil {
		p.State = prev
		return err
	}
	r.ledger.AddEntry(entry)
	return nil
}

// AttachTallyResult records the final tally on a proposal (called by the
// voting manager during finalise).
func (r *Registry) AttachTallyResult(proposalID string, result TallyResult) error {
	p, err := r.Get(proposalID)
	if err != nil {
		return err
	}
	p.TallyResult = &result
	return nil
}
