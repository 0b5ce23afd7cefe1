// Package identity implements the registry of public-key identities,
// challenge-response authentication, and trusted-attestor attestations
// (spec.md §4.3). It follows the teacher's registry-plus-index shape
// (core/identity/alias.go) generalized from alias records to key identities.
package identity

import (
	"strings"
	"time"

	"govledger/crypto"
	"govledger/ledger"
	"govledger/ledgererr"
)

const challengeTTL = 5 * time.Minute

// GlobalJurisdiction is the wildcard jurisdiction value that matches any
// jurisdiction filter.
const GlobalJurisdiction = "global"

// Attestation records a trusted attestor vouching for a claim about a
// subject identity.
type Attestation struct {
	Attestor  string `json:"attestor"`
	Claim     string `json:"claim"`
	Signature string `json:"signature"`
	CreatedAt int64  `json:"createdAt"`
}

// Identity is a registered public key and its metadata (spec.md §3).
type Identity struct {
	PublicKey    string        `json:"publicKey"`
	Fingerprint  string        `json:"fingerprint"`
	Alias        string        `json:"alias"`
	Jurisdiction string        `json:"jurisdiction"`
	RegisteredAt int64         `json:"registeredAt"`
	Attestations []Attestation `json:"attestations"`
	Revoked      bool          `json:"revoked"`
}

type challenge struct {
	nonce     string
	issuedAt  time.Time
	consumed  bool
}

// Stats summarizes the registry for the audit engine.
type Stats struct {
	Total        int `json:"total"`
	Revoked      int `json:"revoked"`
	Active       int `json:"active"`
	TrustedCount int `json:"trustedCount"`
}

// Registry holds identities, outstanding challenges, and the trusted
// attestor set, and appends a signed ledger entry for every mutation.
type Registry struct {
	ledger *ledger.Ledger

	identities map[string]*Identity
	challenges map[string]*challenge
	trusted    map[string]struct{}

	now func() time.Time
}

// New constructs a registry backed by l, to which REGISTER, ATTESTATION, and
// REVOKE_IDENTITY entries are appended.
func New(l *ledger.Ledger) *Registry {
	return &Registry{
		ledger:     l,
		identities: make(map[string]*Identity),
		challenges: make(map[string]*challenge),
		trusted:    make(map[string]struct{}),
		now:        time.Now,
	}
}

// Register enrolls a new public key. It refuses duplicate fingerprints and
// emits a signed REGISTER entry.
func (r *Registry) Register(publicKeyPEM, alias, jurisdiction, privateKeyPEM string) (*Identity, error) {
	fp, err := crypto.FingerprintPublicKey(publicKeyPEM)
	if err != nil {
		return nil, ledgererr.Validation("identity: malformed public key: %v", err)
	}
	if _, exists := r.identities[fp]; exists {
		return nil, ledgererr.Duplicate("identity: fingerprint %s already registered", fp)
	}
	if strings.TrimSpace(jurisdiction) == "" {
		return nil, ledgererr.Validation("identity: jurisdiction is required")
	}

	id := &Identity{
		PublicKey:    publicKeyPEM,
		Fingerprint:  fp,
		Alias:        alias,
		Jurisdiction: jurisdiction,
		RegisteredAt: r.now().UnixMilli(),
		Attestations: []Attestation{},
	}
	r.identities[fp] = id

	entry, err := ledger.NewEntry(ledger.EntryTypeRegister, map[string]interface{}{
		"fingerprint":  fp,
		"alias":        alias,
		"jurisdiction": jurisdiction,
	}, fp, privateKeyPEM)
	if err != nil {
		return nil, err
	}
	r.ledger.AddEntry(entry)
	return id, nil
}

// Get looks up an identity by fingerprint.
func (r *Registry) Get(fp string) (*Identity, error) {
	id, ok := r.identities[fp]
	if !ok {
		return nil, ledgererr.NotFound("identity: %s not found", fp)
	}
	return id, nil
}

// IssueChallenge mints a fresh nonce for the given fingerprint, failing if
// the fingerprint is unknown.
func (r *Registry) IssueChallenge(fp string) (string, error) {
	if _, err := r.Get(fp); err != nil {
		return "", err
	}
	nonce := crypto.GenerateNonce()
	r.challenges[fp] = &challenge{nonce: nonce, issuedAt: r.now()}
	return nonce, nil
}

// VerifyChallenge checks signedNonce, a signature over the previously
// issued nonce, against the identity's stored public key. The challenge is
// single-use: it is consumed whether or not verification succeeds, and it
// expires 5 minutes after issue.
func (r *Registry) VerifyChallenge(fp, signedNonce string) (bool, error) {
	id, err := r.Get(fp)
	if err != nil {
		return false, err
	}
	ch, ok := r.challenges[fp]
	if !ok {
		return false, ledgererr.Auth("identity: no outstanding challenge for %s", fp)
	}
	delete(r.challenges, fp)
	if ch.consumed {
		return false, ledgererr.Auth("identity: challenge already consumed")
	}
	if r.now().Sub(ch.issuedAt) > challengeTTL {
		return false, ledgererr.Auth("identity: challenge expired")
	}
	valid := crypto.VerifyRaw([]byte(ch.nonce), signedNonce, id.PublicKey)
	return valid, nil
}

// AddAttestation records attestor's claim about subject's identity. The
// attestor must be in the trusted set.
func (r *Registry) AddAttestation(subjectFp, attestorFp, claim, signature string) error {
	subject, err := r.Get(subjectFp)
	if err != nil {
		return err
	}
	if _, trusted := r.trusted[attestorFp]; !trusted {
		return ledgererr.Auth("identity: %s is not a trusted attestor", attestorFp)
	}
	attestor, err := r.Get(attestorFp)
	if err != nil {
		return err
	}
	ok := crypto.Verify(map[string]interface{}{
		"subject": subjectFp,
		"claim":   claim,
	}, signature, attestor.PublicKey)
	if !ok {
		return ledgererr.Auth("identity: attestation signature invalid")
	}

	att := Attestation{
		Attestor:  attestorFp,
		Claim:     claim,
		Signature: signature,
		CreatedAt: r.now().UnixMilli(),
	}
	subject.Attestations = append(subject.Attestations, att)

	// The attestor already signed {subject, claim} as the attestation
	// signature itself; the ledger entry reuses it rather than asking the
	// attestor to sign the same claim twice.
	entry := &ledger.Entry{
		ID:   crypto.GenerateID(),
		Type: ledger.EntryTypeAttestation,
		Payload: map[string]interface{}{
			"subject":  subjectFp,
			"attestor": attestorFp,
			"claim":    claim,
		},
		ActorID:   attestorFp,
		Timestamp: att.CreatedAt,
		Signature: signature,
	}
	hash, err := entry.RecomputeHash()
	if err != nil {
		return err
	}
	entry.Hash = hash
	r.ledger.AddEntry(entry)
	return nil
}

// HasAttestation reports whether subjectFp carries an attestation for claim.
func (r *Registry) HasAttestation(fp, claim string) bool {
	id, err := r.Get(fp)
	if err != nil {
		return false
	}
	for _, a := range id.Attestations {
		if a.Claim == claim {
			return true
		}
	}
	return false
}

// Revoke marks fp revoked after verifying privateKeyPEM controls it, and
// emits a signed REVOKE_IDENTITY entry.
func (r *Registry) Revoke(fp, privateKeyPEM string) error {
	id, err := r.Get(fp)
	if err != nil {
		return err
	}
	if id.Revoked {
		return ledgererr.State("identity: %s already revoked", fp)
	}

	entry, err := ledger.NewEntry(ledger.EntryTypeRevokeIdentity, map[string]interface{}{
		"fingerprint": fp,
	}, fp, privateKeyPEM)
	if err != nil {
		return err
	}
	if !crypto.Verify(map[string]interface{}{
		"type":      ledger.EntryTypeRevokeIdentity,
		"payload":   map[string]interface{}{"fingerprint": fp},
		"actorId":   fp,
		"timestamp": entry.Timestamp,
	}, entry.Signature, id.PublicKey) {
		return ledgererr.Auth("identity: revocation signature does not match stored key")
	}

	id.Revoked = true
	r.ledger.AddEntry(entry)
	return nil
}

// AddTrustedAttestor admits fp into the trusted attestor set.
func (r *Registry) AddTrustedAttestor(fp string) error {
	if _, err := r.Get(fp); err != nil {
		return err
	}
	r.trusted[fp] = struct{}{}
	return nil
}

// IsTrustedAttestor reports whether fp is in the trusted set.
func (r *Registry) IsTrustedAttestor(fp string) bool {
	_, ok := r.trusted[fp]
	return ok
}

// GetByJurisdiction returns every non-revoked identity registered under j,
// or every non-revoked identity if j is the global wildcard.
func (r *Registry) GetByJurisdiction(j string) []*Identity {
	var out []*Identity
	for _, id := range r.identities {
		if id.Revoked {
			continue
		}
		if j != GlobalJurisdiction && id.Jurisdiction != j {
			continue
		}
		out = append(out, id)
	}
	return out
}

// ActiveCount returns the number of non-revoked identities, optionally
// filtered by jurisdiction ("" or GlobalJurisdiction for no filter).
func (r *Registry) ActiveCount(jurisdiction string) int {
	count := 0
	for _, id := range r.identities {
		if id.Revoked {
			continue
		}
		if jurisdiction != "" && jurisdiction != GlobalJurisdiction && id.Jurisdiction != jurisdiction {
			continue
		}
		count++
	}
	return count
}

// Stats summarizes the registry.
func (r *Registry) Stats() Stats {
	s := Stats{TrustedCount: len(r.trusted)}
	for _, id := range r.identities {
		s.Total++
		if id.Revoked {
			s.Revoked++
		} else {
			s.Active++
		}
	}
	return s
}
