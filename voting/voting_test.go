package voting

import (
	"testing"

	"github.com/stretchr/testify/require"

	"govledger/crypto"
	"govledger/governance"
	"govledger/identity"
	"govledger/ledger"
	"govledger/ledgererr"
)

type fixture struct {
	ledger *ledger.Ledger
	ids    *identity.Registry
	props  *governance.Registry
	mgr    *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l, err := ledger.New(1)
	require.NoError(t, err)
	idReg := identity.New(l)
	propReg := governance.New(l, idReg)
	return &fixture{ledger: l, ids: idReg, props: propReg, mgr: NewManager(l, idReg, propReg)}
}

func (f *fixture) register(t *testing.T, alias, jurisdiction string) (fp, priv string) {
	t.Helper()
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	id, err := f.ids.Register(pub, alias, jurisdiction, priv)
	require.NoError(t, err)
	return id.Fingerprint, priv
}

func (f *fixture) openableProposal(t *testing.T, cfg governance.VotingConfig) (string, string, string) {
	t.Helper()
	authorFp, authorPriv := f.register(t, "author", "us-ca")
	p, err := f.props.Create(governance.ProposalTypeLaw, "T", "us-ca", "text", "summary", []string{"impact"}, "", authorFp, authorPriv, nil)
	require.NoError(t, err)
	require.NoError(t, f.props.Transition(p.ID, governance.StateOpen, authorFp, authorPriv))
	require.NoError(t, f.props.SetVotingConfig(p.ID, cfg, authorFp, authorPriv))
	return p.ID, authorFp, authorPriv
}

func TestHappyPathVoteEndsEnacted(t *testing.T) {
	f := newFixture(t)
	proposalID, authorFp, authorPriv := f.openableProposal(t, governance.VotingConfig{QuorumPercent: 1, PassPercent: 50})

	session, err := f.mgr.OpenVoting(proposalID, authorFp, authorPriv)
	require.NoError(t, err)

	choices := []Choice{ChoiceYea, ChoiceYea, ChoiceYea, ChoiceYea, ChoiceNay, ChoiceNay}
	type voter struct {
		fp, priv, nonce string
	}
	voters := make([]voter, len(choices))
	for i, choice := range choices {
		fp, priv := f.register(t, "voter", "us-ca")
		commitment, nonce := crypto.CreateCommitment(string(choice), "")
		require.NoError(t, session.SubmitCommitment(fp, commitment, priv))
		voters[i] = voter{fp, priv, nonce}
	}

	require.NoError(t, session.StartRevealPhase())
	for i, choice := range choices {
		_, err := session.RevealVote(voters[i].fp, choice, voters[i].nonce, voters[i].priv)
		require.NoError(t, err)
	}

	result, err := f.mgr.Finalise(proposalID)
	require.NoError(t, err)
	require.Equal(t, 4, result.Counts[string(ChoiceYea)])
	require.Equal(t, 2, result.Counts[string(ChoiceNay)])
	require.InDelta(t, 66.67, result.PassPercent, 0.01)
	require.True(t, result.Passed)
	require.Len(t, result.BallotMerkleRoot, 64)

	p, err := f.props.Get(proposalID)
	require.NoError(t, err)
	require.Equal(t, governance.StateEnacted, p.State)
}

func TestRevealMismatchedNonceOrChoiceIsRejected(t *testing.T) {
	f := newFixture(t)
	proposalID, authorFp, authorPriv := f.openableProposal(t, governance.VotingConfig{})
	session, err := f.mgr.OpenVoting(proposalID, authorFp, authorPriv)
	require.NoError(t, err)

	voterFp, voterPriv := f.register(t, "voter", "us-ca")
	commitment, nonce := crypto.CreateCommitment("YEA", "")
	require.NoError(t, session.SubmitCommitment(voterFp, commitment, voterPriv))
	require.NoError(t, session.StartRevealPhase())

	_, err = session.RevealVote(voterFp, ChoiceNay, nonce, voterPriv)
	require.Error(t, err)
	require.True(t, ledgererr.IsAuth(err))
	require.Empty(t, session.Ballots)
}

func TestJurisdictionFilterRejectsMismatchedVoterAndAcceptsGlobal(t *testing.T) {
	f := newFixture(t)
	proposalID, authorFp, authorPriv := f.openableProposal(t, governance.VotingConfig{EligibleJurisdiction: "US-CA"})
	session, err := f.mgr.OpenVoting(proposalID, authorFp, authorPriv)
	require.NoError(t, err)

	outsiderFp, outsiderPriv := f.register(t, "outsider", "US-NY")
	commitment, _ := crypto.CreateCommitment("YEA", "")
	err = session.SubmitCommitment(outsiderFp, commitment, outsiderPriv)
	require.Error(t, err)
	require.True(t, ledgererr.IsAuth(err))

	globalProposalID, globalAuthorFp, globalAuthorPriv := f.openableProposal(t, governance.VotingConfig{EligibleJurisdiction: "global"})
	globalSession, err := f.mgr.OpenVoting(globalProposalID, globalAuthorFp, globalAuthorPriv)
	require.NoError(t, err)

	commitment2, _ := crypto.CreateCommitment("YEA", "")
	require.NoError(t, globalSession.SubmitCommitment(outsiderFp, commitment2, outsiderPriv))
}

func TestDuplicateCommitmentRejected(t *testing.T) {
	f := newFixture(t)
	proposalID, authorFp, authorPriv := f.openableProposal(t, governance.VotingConfig{})
	session, err := f.mgr.OpenVoting(proposalID, authorFp, authorPriv)
	require.NoError(t, err)

	voterFp, voterPriv := f.register(t, "voter", "us-ca")
	commitment, _ := crypto.CreateCommitment("YEA", "")
	require.NoError(t, session.SubmitCommitment(voterFp, commitment, voterPriv))

	err = session.SubmitCommitment(voterFp, commitment, voterPriv)
	require.Error(t, err)
	require.True(t, ledgererr.IsDuplicate(err))
}

func TestNoCommitmentsAcceptedOutsideCommitPhase(t *testing.T) {
	f := newFixture(t)
	proposalID, authorFp, authorPriv := f.openableProposal(t, governance.VotingConfig{})
	session, err := f.mgr.OpenVoting(proposalID, authorFp, authorPriv)
	require.NoError(t, err)
	require.NoError(t, session.StartRevealPhase())

	voterFp, voterPriv := f.register(t, "voter", "us-ca")
	commitment, _ := crypto.CreateCommitment("YEA", "")
	err = session.SubmitCommitment(voterFp, commitment, voterPriv)
	require.Error(t, err)
	require.True(t, ledgererr.IsState(err))
}
