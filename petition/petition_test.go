package petition

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
	petRe  *Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l, err := ledger.New(1)
	require.NoError(t, err)
	idReg := identity.New(l)
	propReg := governance.New(l, idReg)
	return &fixture{ledger: l, ids: idReg, props: propReg, petRe: New(l, idReg, propReg)}
}

func (f *fixture) register(t *testing.T, alias, jurisdiction string) (fp, priv string) {
	t.Helper()
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	id, err := f.ids.Register(pub, alias, jurisdiction, priv)
	require.NoError(t, err)
	return id.Fingerprint, priv
}

func (f *fixture) createPetitionableProposal(t *testing.T, threshold int) (string, string, string) {
	t.Helper()
	authorFp, authorPriv := f.register(t, "author", "us-ca")
	p, err := f.props.Create(governance.ProposalTypeLaw, "Title", "us-ca", "text", "summary", []string{"impact"}, "", authorFp, authorPriv, nil)
	require.NoError(t, err)
	require.NoError(t, f.props.Transition(p.ID, governance.StatePetition, authorFp, authorPriv))
	_, err = f.petRe.CreatePetition(p.ID, threshold)
	require.NoError(t, err)
	return p.ID, authorFp, authorPriv
}

func TestSignRejectsDuplicateSigner(t *testing.T) {
	f := newFixture(t)
	proposalID, _, _ := f.createPetitionableProposal(t, 5)

	signerFp, signerPriv := f.register(t, "signer1", "us-ca")
	_, err := f.petRe.Sign(proposalID, signerFp, signerPriv)
	require.NoError(t, err)

	_, err = f.petRe.Sign(proposalID, signerFp, signerPriv)
	require.Error(t, err)
	require.True(t, ledgererr.IsDuplicate(err))
}

func TestSignRejectsRevokedSigner(t *testing.T) {
	f := newFixture(t)
	proposalID, _, _ := f.createPetitionableProposal(t, 5)

	signerFp, signerPriv := f.register(t, "signer1", "us-ca")
	require.NoError(t, f.ids.Revoke(signerFp, signerPriv))

	_, err := f.petRe.Sign(proposalID, signerFp, signerPriv)
	require.Error(t, err)
	require.True(t, ledgererr.IsAuth(err))
}

func TestThresholdCrossingAdvancesProposalToOpen(t *testing.T) {
	f := newFixture(t)
	proposalID, _, _ := f.createPetitionableProposal(t, 3)

	for i := 0; i < 3; i++ {
		signerFp, signerPriv := f.register(t, "signer", "us-ca")
		_, err := f.petRe.Sign(proposalID, signerFp, signerPriv)
		require.NoError(t, err)
	}

	pet, err := f.petRe.Get(proposalID)
	require.NoError(t, err)
	require.True(t, pet.ThresholdMet)

	prop, err := f.props.Get(proposalID)
	require.NoError(t, err)
	require.Equal(t, governance.StateOpen, prop.State)
}

func TestVerifySignatureValidatesBothSignaturesIndependently(t *testing.T) {
	f := newFixture(t)
	proposalID, _, _ := f.createPetitionableProposal(t, 5)

	signerFp, signerPriv := f.register(t, "signer1", "us-ca")
	_, err := f.petRe.Sign(proposalID, signerFp, signerPriv)
	require.NoError(t, err)

	result, err := f.petRe.VerifySignature(proposalID, signerFp)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.True(t, result.AcknowledgementValid)
	require.True(t, result.PetitionSignatureValid)
}
