package audit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"govledger/crypto"
	"govledger/governance"
	"govledger/identity"
	"govledger/ledger"
	"govledger/petition"
	"govledger/voting"
)

type fixture struct {
	ledger  *ledger.Ledger
	ids     *identity.Registry
	props   *governance.Registry
	petRe   *petition.Registry
	votingM *voting.Manager
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l, err := ledger.New(1)
	require.NoError(t, err)
	idReg := identity.New(l)
	propReg := governance.New(l, idReg)
	petReg := petition.New(l, idReg, propReg)
	votingMgr := voting.NewManager(l, idReg, propReg)
	engine := New(l, idReg, propReg, petReg, votingMgr)
	return &fixture{ledger: l, ids: idReg, props: propReg, petRe: petReg, votingM: votingMgr, engine: engine}
}

func (f *fixture) register(t *testing.T, alias, jurisdiction string) (fp, priv string) {
	t.Helper()
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	id, err := f.ids.Register(pub, alias, jurisdiction, priv)
	require.NoError(t, err)
	return id.Fingerprint, priv
}

func TestVerifyChainIntegrityReportsValidOnFreshLedger(t *testing.T) {
	f := newFixture(t)
	report := f.engine.VerifyChainIntegrity()
	require.True(t, report.Valid)
	require.Equal(t, 1, report.Stats.Blocks)
}

func TestVerifyEntryInclusionAndSignatureAfterCommit(t *testing.T) {
	f := newFixture(t)
	authorFp, authorPriv := f.register(t, "author", "us-ca")
	p, err := f.props.Create(governance.ProposalTypeLaw, "T", "us-ca", "text", "summary", []string{"impact"}, "", authorFp, authorPriv, nil)
	require.NoError(t, err)
	_, err = f.ledger.CommitBlock()
	require.NoError(t, err)

	entries := f.ledger.GetEntriesByType(ledger.EntryTypeProposalCreate)
	require.Len(t, entries, 1)
	entryID := entries[0].ID

	inclusion := f.engine.VerifyEntryInclusion(entryID)
	require.True(t, inclusion.Found)
	require.True(t, inclusion.Valid)

	sigReport := f.engine.VerifyEntrySignature(entryID)
	require.True(t, sigReport.Found)
	require.True(t, sigReport.SignatureValid)
	require.Equal(t, authorFp, sigReport.ActorID)

	_ = p
}

func TestVerifyEntrySignatureReportsSystemEntriesValid(t *testing.T) {
	f := newFixture(t)
	authorFp, authorPriv := f.register(t, "author", "us-ca")
	signerFp, signerPriv := f.register(t, "signer", "us-ca")

	p, err := f.props.Create(governance.ProposalTypeLaw, "T", "us-ca", "text", "summary", []string{"impact"}, "", authorFp, authorPriv, nil)
	require.NoError(t, err)
	require.NoError(t, f.props.Transition(p.ID, governance.StatePetition, authorFp, authorPriv))
	_, err = f.petRe.CreatePetition(p.ID, 1)
	require.NoError(t, err)
	_, err = f.petRe.Sign(p.ID, signerFp, signerPriv)
	require.NoError(t, err)

	entries := f.ledger.GetEntriesByType(ledger.EntryTypePetitionThresholdMet)
	require.Len(t, entries, 1)

	report := f.engine.VerifyEntrySignature(entries[0].ID)
	require.True(t, report.Found)
	require.True(t, report.SignatureValid)
	require.NotEmpty(t, report.Note)
}

func TestGetProposalHistoryReturnsOrderedTrail(t *testing.T) {
	f := newFixture(t)
	authorFp, authorPriv := f.register(t, "author", "us-ca")
	p, err := f.props.Create(governance.ProposalTypeLaw, "T", "us-ca", "text", "summary", []string{"impact"}, "", authorFp, authorPriv, nil)
	require.NoError(t, err)
	require.NoError(t, f.props.Transition(p.ID, governance.StatePetition, authorFp, authorPriv))

	history := f.engine.GetProposalHistory(p.ID)
	require.Len(t, history, 2)
	require.Equal(t, ledger.EntryTypeProposalCreate, history[0].Type)
	require.Equal(t, ledger.EntryTypeProposalStateChange, history[1].Type)
}

func TestVerifyProposalVotesMatchesRecount(t *testing.T) {
	f := newFixture(t)
	authorFp, authorPriv := f.register(t, "author", "us-ca")
	p, err := f.props.Create(governance.ProposalTypeLaw, "T", "us-ca", "text", "summary", []string{"impact"}, "", authorFp, authorPriv, nil)
	require.NoError(t, err)
	require.NoError(t, f.props.Transition(p.ID, governance.StateOpen, authorFp, authorPriv))
	require.NoError(t, f.props.SetVotingConfig(p.ID, governance.VotingConfig{QuorumPercent: 1}, authorFp, authorPriv))

	session, err := f.votingM.OpenVoting(p.ID, authorFp, authorPriv)
	require.NoError(t, err)

	voterFp, voterPriv := f.register(t, "voter", "us-ca")
	commitment, nonce := crypto.CreateCommitment("YEA", "")
	require.NoError(t, session.SubmitCommitment(voterFp, commitment, voterPriv))
	require.NoError(t, session.StartRevealPhase())
	_, err = session.RevealVote(voterFp, voting.ChoiceYea, nonce, voterPriv)
	require.NoError(t, err)

	_, err = f.votingM.Finalise(p.ID)
	require.NoError(t, err)

	report, err := f.engine.VerifyProposalVotes(p.ID)
	require.NoError(t, err)
	require.True(t, report.Matches)
	require.Equal(t, 1, report.RecomputedCounts["YEA"])
}
