// Package voting implements the per-proposal commit-reveal voting engine,
// tally, and ballot Merkle root (spec.md §4.6), grounded on the teacher's
// native/governance Vote/Tally/VoteChoice shape adapted from basis-point
// voting power to one-fingerprint-one-ballot commit/reveal, and on the
// commit-reveal commitment binding already established in
// govledger/crypto.
package voting

// Choice enumerates the supported ballot selections (spec.md §3).
type Choice string

const (
	ChoiceYea     Choice = "YEA"
	ChoiceNay     Choice = "NAY"
	ChoiceAbstain Choice = "ABSTAIN"
)

// Valid reports whether c is a supported ballot choice.
func (c Choice) Valid() bool {
	switch c {
	case ChoiceYea, ChoiceNay, ChoiceAbstain:
		return true
	default:
		return false
	}
}

// Ballot is a revealed vote (spec.md §3).
type Ballot struct {
	ID               string `json:"id"`
	VoterFingerprint string `json:"voterFingerprint"`
	ProposalID       string `json:"proposalId"`
	Choice           Choice `json:"choice"`
	Nonce            string `json:"nonce"`
	Commitment       string `json:"commitment"`
	Revealed         bool   `json:"revealed"`
	Timestamp        int64  `json:"timestamp"`
}
