// Package ledger implements the append-only, hash-linked chain of blocks
// that every write-facing component (identity, proposal, petition, voting)
// appends signed entries to (spec.md §3-4.2).
package ledger

import (
	"time"

	"govledger/crypto"
)

// EntryType enumerates the registered ledger entry discriminators
// (spec.md §6).
type EntryType string

const (
	EntryTypeRegister             EntryType = "REGISTER"
	EntryTypeAttestation          EntryType = "ATTESTATION"
	EntryTypeRevokeIdentity       EntryType = "REVOKE_IDENTITY"
	EntryTypeProposalCreate       EntryType = "PROPOSAL_CREATE"
	EntryTypeProposalStateChange  EntryType = "PROPOSAL_STATE_CHANGE"
	EntryTypePetitionSign         EntryType = "PETITION_SIGN"
	EntryTypePetitionThresholdMet EntryType = "PETITION_THRESHOLD_MET"
	EntryTypeVoteCommit           EntryType = "VOTE_COMMIT"
	EntryTypeVoteReveal           EntryType = "VOTE_REVEAL"
	EntryTypeVoteTally            EntryType = "VOTE_TALLY"
)

// SystemActorID is the literal actor id documentary system entries carry.
const SystemActorID = "SYSTEM"

// Entry is an atomic signed action appended to the ledger.
type Entry struct {
	ID        string      `json:"id"`
	Type      EntryType   `json:"type"`
	Payload   interface{} `json:"payload"`
	ActorID   string      `json:"actorId"`
	Timestamp int64       `json:"timestamp"`
	Signature string      `json:"signature"`
	Hash      string      `json:"hash"`
}

// nowMillis is a var so tests can pin the clock; production code leaves it
// at its default of time.Now().
var nowMillis = func() int64 { return time.Now().UnixMilli() }

func contentHash(id string, entryType EntryType, payload interface{}, actorID string, timestamp int64) (string, error) {
	return crypto.Hash(map[string]interface{}{
		"id":        id,
		"type":      entryType,
		"payload":   payload,
		"actorId":   actorID,
		"timestamp": timestamp,
	})
}

func signaturePayload(entryType EntryType, payload interface{}, actorID string, timestamp int64) map[string]interface{} {
	return map[string]interface{}{
		"type":      entryType,
		"payload":   payload,
		"actorId":   actorID,
		"timestamp": timestamp,
	}
}

// NewEntry builds and signs a ledger entry authored by actorID using
// privPEM. The hash is a pure function of the other fields and is verified
// independently by Ledger.VerifyChain.
func NewEntry(entryType EntryType, payload interface{}, actorID string, privPEM string) (*Entry, error) {
	id := crypto.GenerateID()
	timestamp := nowMillis()

	sig, err := crypto.Sign(signaturePayload(entryType, payload, actorID, timestamp), privPEM)
	if err != nil {
		return nil, err
	}
	hash, err := contentHash(id, entryType, payload, actorID, timestamp)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:        id,
		Type:      entryType,
		Payload:   payload,
		ActorID:   actorID,
		Timestamp: timestamp,
		Signature: sig,
		Hash:      hash,
	}, nil
}

// NewSystemEntry builds an entry authored by the ledger itself. Its
// signature field carries a documentary SHA3-256 of the payload rather than
// a cryptographic signature, since there is no actor private key to sign
// with (spec.md §3).
func NewSystemEntry(entryType EntryType, payload interface{}) (*Entry, error) {
	id := crypto.GenerateID()
	timestamp := nowMillis()

	payloadDigest, err := crypto.Hash(payload)
	if err != nil {
		return nil, err
	}
	hash, err := contentHash(id, entryType, payload, SystemActorID, timestamp)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:        id,
		Type:      entryType,
		Payload:   payload,
		ActorID:   SystemActorID,
		Timestamp: timestamp,
		Signature: payloadDigest,
		Hash:      hash,
	}, nil
}

// RecomputeHash returns the hash the entry's fields currently produce,
// independent of the stored Hash field.
func (e *Entry) RecomputeHash() (string, error) {
	return contentHash(e.ID, e.Type, e.Payload, e.ActorID, e.Timestamp)
}

// IsSystem reports whether the entry was authored by the ledger itself.
func (e *Entry) IsSystem() bool {
	return e.ActorID == SystemActorID
}
