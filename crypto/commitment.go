package crypto

// CreateCommitment binds value to a nonce: commitment = hash(value ‖ nonce).
// If nonce is empty a fresh 32-byte random nonce is generated.
func CreateCommitment(value string, nonce string) (commitment string, usedNonce string) {
	usedNonce = nonce
	if usedNonce == "" {
		usedNonce = GenerateNonce()
	}
	return HashRaw(value + usedNonce), usedNonce
}

// OpenCommitment reports whether value/nonce reproduce commitment.
func OpenCommitment(value, nonce, commitment string) bool {
	return HashRaw(value+nonce) == commitment
}
