package crypto

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// GenerateID returns a content-independent random 128-bit identifier as hex.
// It is backed by google/uuid's random source but hex-encodes the raw 16
// bytes rather than the dashed UUID string form, matching spec.md's "random
// 128-bit hex" id shape.
func GenerateID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// GenerateNonce returns 32 random bytes as hex, the shape spec.md mandates
// for ballot nonces and identity challenge nonces.
func GenerateNonce() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
