// Package petition implements threshold-driven signature collection over a
// proposal, binding each signer to an explicit acknowledgement of the
// proposal's implications (spec.md §4.5). It generalizes the teacher's
// deposit-threshold crossing pattern (native/governance/engine.go's
// MinDepositWei check) from a token deposit to a signature count, and models
// the two-signature binding after the explicit payload/signature envelope
// separation used by consensus/bft/types.go's Signature type.
package petition

import (
	"time"

	"govledger/crypto"
	"govledger/governance"
	"govledger/identity"
	"govledger/ledger"
	"govledger/ledgererr"
	"govledger/observability/metrics"
)

// DefaultThreshold is the number of signatures required to cross the
// petition threshold when none is specified.
const DefaultThreshold = 300

const acknowledgementPrefix = "I_ACKNOWLEDGE_IMPLICATIONS:"

// Signature is a single signer's binding to a petition: an acknowledgement
// of the proposal's implications, and the petition-sign action itself.
type Signature struct {
	ID                       string `json:"id"`
	Signer                   string `json:"signer"`
	ImplicationsHash         string `json:"implicationsHash"`
	AcknowledgementSignature string `json:"acknowledgementSignature"`
	PetitionSignature        string `json:"petitionSignature"`
	SignedAt                 int64  `json:"signedAt"`
}

// Petition is the per-proposal signature collection (spec.md §3).
type Petition struct {
	ProposalID     string               `json:"proposalId"`
	Jurisdiction   string               `json:"jurisdiction"`
	Threshold      int                  `json:"threshold"`
	Signatures     map[string]Signature `json:"signatures"`
	ThresholdMet   bool                 `json:"thresholdMet"`
	ThresholdMetAt int64                `json:"thresholdMetAt,omitempty"`
	CreatedAt      int64                `json:"createdAt"`
}

// VerifyResult is returned by Registry.VerifySignature.
type VerifyResult struct {
	Valid                   bool `json:"valid"`
	AcknowledgementValid    bool `json:"acknowledgementValid"`
	PetitionSignatureValid  bool `json:"petitionSignatureValid"`
}

// Registry holds petitions keyed by proposal id.
type Registry struct {
	ledger     *ledger.Ledger
	identities *identity.Registry
	proposals  *governance.Registry
	petitions  map[string]*Petition
	now        func() time.Time
}

// New constructs a petition registry wired to the given ledger, identity
// registry, and proposal registry.
func New(l *ledger.Ledger, idReg *identity.Registry, propReg *governance.Registry) *Registry {
	return &Registry{
		ledger:     l,
		identities: idReg,
		proposals:  propReg,
		petitions:  make(map[string]*Petition),
		now:        time.Now,
	}
}

// CreatePetition opens a petition for proposalID, which must currently be in
// PETITION state. threshold of 0 selects DefaultThreshold.
func (r *Registry) CreatePetition(proposalID string, threshold int) (*Petition, error) {
	p, err := r.proposals.Get(proposalID)
	if err != nil {
		return nil, err
	}
	if p.State != governance.StatePetition {
		return nil, ledgererr.State("petition: proposal %s is not in PETITION state", proposalID)
	}
	if _, exists := r.petitions[proposalID]; exists {
		return nil, ledgererr.Duplicate("petition: petition for %s already exists", proposalID)
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	pet := &Petition{
		ProposalID:   proposalID,
		Jurisdiction: p.Jurisdiction,
		Threshold:    threshold,
		Signatures:   make(map[string]Signature),
		CreatedAt:    r.now().UnixMilli(),
	}
	r.petitions[proposalID] = pet
	return pet, nil
}

// Get looks up the petition for proposalID.
func (r *Registry) Get(proposalID string) (*Petition, error) {
	pet, ok := r.petitions[proposalID]
	if !ok {
		return nil, ledgererr.NotFound("petition: no petition for proposal %s", proposalID)
	}
	return pet, nil
}

func implicationsHash(implications []string) (string, error) {
	return crypto.Hash(implications)
}

// Sign records signerFp's binding signature on proposalID's petition. See
// spec.md §4.5 for the seven-step procedure this mirrors exactly.
func (r *Registry) Sign(proposalID, signerFp, signerPrivKey string) (*Signature, error) {
	pet, err := r.Get(proposalID)
	if err != nil {
		return nil, err
	}
	if pet.ThresholdMet {
		return nil, ledgererr.State("petition: threshold already met for %s", proposalID)
	}
	signer, err := r.identities.Get(signerFp)
	if err != nil {
		return nil, err
	}
	if signer.Revoked {
		return nil, ledgererr.Auth("petition: signer %s is revoked", signerFp)
	}
	if _, exists := pet.Signatures[signerFp]; exists {
		return nil, ledgererr.Duplicate("petition: %s already signed", signerFp)
	}

	prop, err := r.proposals.Get(proposalID)
	if err != nil {
		return nil, err
	}
	implHash, err := implicationsHash(prop.Implications())
	if err != nil {
		return nil, err
	}

	ackSig, err := crypto.SignRaw([]byte(acknowledgementPrefix+implHash), signerPrivKey)
	if err != nil {
		return nil, err
	}
	petSig, err := crypto.Sign(map[string]interface{}{
		"action":           "PETITION_SIGN",
		"proposalId":       proposalID,
		"implicationsHash": implHash,
		"signer":           signerFp,
	}, signerPrivKey)
	if err != nil {
		return nil, err
	}

	sig := Signature{
		ID:                       crypto.GenerateID(),
		Signer:                   signerFp,
		ImplicationsHash:         implHash,
		AcknowledgementSignature: ackSig,
		PetitionSignature:        petSig,
		SignedAt:                 r.now().UnixMilli(),
	}
	pet.Signatures[signerFp] = sig

	count := len(pet.Signatures)
	entry, err := ledger.NewEntry(ledger.EntryTypePetitionSign, map[string]interface{}{
		"proposalId":       proposalID,
		"signatureId":       sig.ID,
		"implicationsHash": implHash,
		"signatureCount":   count,
		"threshold":        pet.Threshold,
	}, signerFp, signerPrivKey)
	if err != nil {
		return nil, err
	}
	r.ledger.AddEntry(entry)
	metrics.Default().ObservePetitionSignature()

	if count >= pet.Threshold && !pet.ThresholdMet {
		pet.ThresholdMet = true
		pet.ThresholdMetAt = r.now().UnixMilli()

		sysEntry, err := ledger.NewSystemEntry(ledger.EntryTypePetitionThresholdMet, map[string]interface{}{
			"proposalId":     proposalID,
			"signatureCount": count,
			"threshold":      pet.Threshold,
		})
		if err != nil {
			return nil, err
		}
		r.ledger.AddEntry(sysEntry)

		if err := r.proposals.SystemTransition(proposalID, governance.StateOpen); err != nil {
			return nil, err
		}
	}

	return &sig, nil
}

// VerifySignature recomputes the implications hash and re-verifies both
// signatures against the signer's currently-stored public key.
func (r *Registry) VerifySignature(proposalID, signerFp string) (VerifyResult, error) {
	pet, err := r.Get(proposalID)
	if err != nil {
		return VerifyResult{}, err
	}
	sig, ok := pet.Signatures[signerFp]
	if !ok {
		return VerifyResult{}, ledgererr.NotFound("petition: no signature from %s on %s", signerFp, proposalID)
	}
	signer, err := r.identities.Get(signerFp)
	if err != nil {
		return VerifyResult{}, err
	}
	prop, err := r.proposals.Get(proposalID)
	if err != nil {
		return VerifyResult{}, err
	}
	implHash, err := implicationsHash(prop.Implications())
	if err != nil {
		return VerifyResult{}, err
	}

	ackValid := implHash == sig.ImplicationsHash &&
		crypto.VerifyRaw([]byte(acknowledgementPrefix+implHash), sig.AcknowledgementSignature, signer.PublicKey)
	petValid := crypto.Verify(map[string]interface{}{
		"action":           "PETITION_SIGN",
		"proposalId":       proposalID,
		"implicationsHash": implHash,
		"signer":           signerFp,
	}, sig.PetitionSignature, signer.PublicKey)

	return VerifyResult{
		Valid:                  ackValid && petValid,
		AcknowledgementValid:   ackValid,
		PetitionSignatureValid: petValid,
	}, nil
}
