package voting

import (
	"govledger/governance"
	"govledger/identity"
	"govledger/ledger"
	"govledger/ledgererr"
)

// Manager owns one Session per proposal and drives the OPEN -> VOTING ->
// TALLYING -> {ENACTED, REJECTED} transitions on the proposal registry
// (spec.md §4.6).
type Manager struct {
	ledger     *ledger.Ledger
	identities *identity.Registry
	proposals  *governance.Registry
	sessions   map[string]*Session
}

// NewManager constructs a voting manager wired to l, idReg, and propReg.
func NewManager(l *ledger.Ledger, idReg *identity.Registry, propReg *governance.Registry) *Manager {
	return &Manager{
		ledger:     l,
		identities: idReg,
		proposals:  propReg,
		sessions:   make(map[string]*Session),
	}
}

// OpenVoting requires proposalID to be OPEN, transitions it to VOTING, and
// creates a commit-phase session.
func (m *Manager) OpenVoting(proposalID, actorFp, actorPrivKey string) (*Session, error) {
	p, err := m.proposals.Get(proposalID)
	if err != nil {
		return nil, err
	}
	if p.State != governance.StateOpen {
		return nil, ledgererr.State("voting: proposal %s is not OPEN", proposalID)
	}
	if _, exists := m.sessions[proposalID]; exists {
		return nil, ledgererr.Duplicate("voting: session for %s already exists", proposalID)
	}

	if err := m.proposals.Transition(proposalID, governance.StateVoting, actorFp, actorPrivKey); err != nil {
		return nil, err
	}

	session := newSession(p, m.ledger, m.identities)
	m.sessions[proposalID] = session
	return session, nil
}

// Session returns the active session for proposalID, if any.
func (m *Manager) Session(proposalID string) (*Session, error) {
	s, ok := m.sessions[proposalID]
	if !ok {
		return nil, ledgererr.NotFound("voting: no session for proposal %s", proposalID)
	}
	return s, nil
}

// Finalise auto-advances a still-COMMIT session to REVEAL, tallies it, and
// drives the proposal through VOTING -> TALLYING -> {ENACTED, REJECTED},
// attaching the tally result (spec.md §4.6).
func (m *Manager) Finalise(proposalID string) (*governance.TallyResult, error) {
	s, err := m.Session(proposalID)
	if err != nil {
		return nil, err
	}

	if s.Phase == PhaseCommit {
		if err := s.StartRevealPhase(); err != nil {
			return nil, err
		}
	}

	result, err := s.Tally()
	if err != nil {
		return nil, err
	}

	if err := m.proposals.SystemTransition(proposalID, governance.StateTallying); err != nil {
		return nil, err
	}
	if err := m.proposals.AttachTallyResult(proposalID, *result); err != nil {
		return nil, err
	}

	final := governance.StateRejected
	if result.Passed {
		final = governance.StateEnacted
	}
	if err := m.proposals.SystemTransition(proposalID, final); err != nil {
		return nil, err
	}

	return result, nil
}
