package voting

import (
	"time"

	"govledger/crypto"
	"govledger/governance"
	"govledger/identity"
	"govledger/ledger"
	"govledger/ledgererr"
	"govledger/observability/metrics"
)

// Phase enumerates a voting session's lifecycle (spec.md §3).
type Phase string

const (
	PhaseCommit Phase = "COMMIT"
	PhaseReveal Phase = "REVEAL"
	PhaseTally  Phase = "TALLY"
	PhaseClosed Phase = "CLOSED"
)

const defaultPassPercentThreshold = 50.0

// Session is the per-proposal ephemeral commit/reveal/tally object
// (spec.md §3).
type Session struct {
	proposal    *governance.Proposal
	ledger      *ledger.Ledger
	identities  *identity.Registry

	Phase       Phase
	Commitments map[string]string
	Ballots     map[string]*Ballot
	TallyResult *governance.TallyResult

	now func() time.Time
}

func newSession(p *governance.Proposal, l *ledger.Ledger, idReg *identity.Registry) *Session {
	return &Session{
		proposal:    p,
		ledger:      l,
		identities:  idReg,
		Phase:       PhaseCommit,
		Commitments: make(map[string]string),
		Ballots:     make(map[string]*Ballot),
		now:         time.Now,
	}
}

// SubmitCommitment records voterFp's commitment for the session's proposal.
// Eligibility is enforced per spec.md §4.6: the voter must be registered and
// non-revoked, and must match the voting config's eligible jurisdiction
// unless it is unset or the global wildcard.
func (s *Session) SubmitCommitment(voterFp, commitmentHex, voterPrivKey string) error {
	if s.Phase != PhaseCommit {
		return ledgererr.State("voting: session for %s is not in COMMIT phase", s.proposal.ID)
	}
	voter, err := s.identities.Get(voterFp)
	if err != nil {
		return err
	}
	if voter.Revoked {
		return ledgererr.Auth("voting: voter %s is revoked", voterFp)
	}
	cfg := s.proposal.VotingConfig
	if cfg != nil && cfg.EligibleJurisdiction != "" && cfg.EligibleJurisdiction != identity.GlobalJurisdiction {
		if voter.Jurisdiction != cfg.EligibleJurisdiction {
			return ledgererr.Auth("voting: voter %s is not eligible for jurisdiction %s", voterFp, cfg.EligibleJurisdiction)
		}
	}
	if _, exists := s.Commitments[voterFp]; exists {
		return ledgererr.Duplicate("voting: %s already committed", voterFp)
	}

	s.Commitments[voterFp] = commitmentHex

	entry, err := ledger.NewEntry(ledger.EntryTypeVoteCommit, map[string]interface{}{
		"proposalId": s.proposal.ID,
		"commitment": commitmentHex,
	}, voterFp, voterPrivKey)
	if err != nil {
		delete(s.Commitments, voterFp)
		return err
	}
	s.ledger.AddEntry(entry)
	return nil
}

// StartRevealPhase transitions COMMIT -> REVEAL exclusively.
func (s *Session) StartRevealPhase() error {
	if s.Phase != PhaseCommit {
		return ledgererr.State("voting: session for %s is not in COMMIT phase", s.proposal.ID)
	}
	s.Phase = PhaseReveal
	return nil
}

// RevealVote opens voterFp's commitment and records the ballot. The reveal
// must match the previously stored commitment exactly (spec.md §4.6).
func (s *Session) RevealVote(voterFp string, choice Choice, nonce, voterPrivKey string) (*Ballot, error) {
	if s.Phase != PhaseReveal {
		return nil, ledgererr.State("voting: session for %s is not in REVEAL phase", s.proposal.ID)
	}
	if !choice.Valid() {
		return nil, ledgererr.Validation("voting: invalid ballot choice %q", choice)
	}
	commitment, committed := s.Commitments[voterFp]
	if !committed {
		return nil, ledgererr.NotFound("voting: no commitment from %s", voterFp)
	}
	if _, revealed := s.Ballots[voterFp]; revealed {
		return nil, ledgererr.Duplicate("voting: %s already revealed", voterFp)
	}
	if !crypto.OpenCommitment(string(choice), nonce, commitment) {
		return nil, ledgererr.Auth("voting: commitment does not open for %s", voterFp)
	}

	ballot := &Ballot{
		ID:               crypto.GenerateID(),
		VoterFingerprint: voterFp,
		ProposalID:       s.proposal.ID,
		Choice:           choice,
		Nonce:            nonce,
		Commitment:       commitment,
		Revealed:         true,
		Timestamp:        s.now().UnixMilli(),
	}
	s.Ballots[voterFp] = ballot

	entry, err := ledger.NewEntry(ledger.EntryTypeVoteReveal, map[string]interface{}{
		"proposalId": s.proposal.ID,
		"choice":     string(choice),
		"nonce":      nonce,
		"ballotId":   ballot.ID,
	}, voterFp, voterPrivKey)
	if err != nil {
		delete(s.Ballots, voterFp)
		return nil, err
	}
	s.ledger.AddEntry(entry)
	metrics.Default().ObserveVoteRevealed(string(choice))
	return ballot, nil
}

// Tally moves REVEAL -> TALLY -> CLOSED, counts choices, and builds the
// ballot Merkle tree (spec.md §4.6).
func (s *Session) Tally() (*governance.TallyResult, error) {
	if s.Phase != PhaseReveal {
		return nil, ledgererr.State("voting: session for %s is not in REVEAL phase", s.proposal.ID)
	}
	s.Phase = PhaseTally

	counts := map[string]int{string(ChoiceYea): 0, string(ChoiceNay): 0, string(ChoiceAbstain): 0}
	leaves := make([]string, 0, len(s.Ballots))
	for _, b := range s.Ballots {
		counts[string(b.Choice)]++
		leafHash, err := crypto.Hash(map[string]interface{}{
			"voter":  b.VoterFingerprint,
			"choice": b.Choice,
			"nonce":  b.Nonce,
		})
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leafHash)
	}
	ballotRoot := crypto.NewMerkleTree(leaves).Root()

	cfg := s.proposal.VotingConfig
	eligible := 0
	if cfg != nil && cfg.EligibleJurisdiction != "" && cfg.EligibleJurisdiction != identity.GlobalJurisdiction {
		eligible = s.identities.ActiveCount(cfg.EligibleJurisdiction)
	} else {
		eligible = s.identities.ActiveCount(identity.GlobalJurisdiction)
	}
	if eligible < 1 {
		eligible = 1
	}

	totalRevealed := len(s.Ballots)
	quorumPercent := 10.0
	passThreshold := defaultPassPercentThreshold
	if cfg != nil {
		quorumPercent = cfg.QuorumPercent
		passThreshold = cfg.PassPercent
	}
	turnout := float64(totalRevealed) / float64(eligible) * 100
	quorumMet := turnout >= quorumPercent

	yea := counts[string(ChoiceYea)]
	nay := counts[string(ChoiceNay)]
	var passPercent float64
	if yea+nay > 0 {
		passPercent = float64(yea) / float64(yea+nay) * 100
	}
	passed := quorumMet && passPercent > passThreshold

	result := &governance.TallyResult{
		Counts:           counts,
		EligibleVoters:   eligible,
		TotalRevealed:    totalRevealed,
		QuorumMet:        quorumMet,
		PassPercent:      round2(passPercent),
		Passed:           passed,
		BallotMerkleRoot: ballotRoot,
	}
	s.TallyResult = result
	s.Phase = PhaseClosed

	entry, err := ledger.NewSystemEntry(ledger.EntryTypeVoteTally, map[string]interface{}{
		"proposalId":       s.proposal.ID,
		"counts":           counts,
		"eligibleVoters":   eligible,
		"totalRevealed":    totalRevealed,
		"quorumMet":        quorumMet,
		"passPercent":      result.PassPercent,
		"passed":           passed,
		"ballotMerkleRoot": ballotRoot,
	})
	if err != nil {
		return nil, err
	}
	s.ledger.AddEntry(entry)

	return result, nil
}

func round2(v float64) float64 {
	scaled := v*100 + 0.5
	return float64(int64(scaled)) / 100
}
