package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
)

// Sign signs the stable-stringified form of payload with the Ed25519 private
// key in privPEM, returning the hex-encoded signature.
func Sign(payload interface{}, privPEM string) (string, error) {
	priv, err := parsePrivateKey(privPEM)
	if err != nil {
		return "", err
	}
	msg, err := StableStringify(payload)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(priv, msg)
	return hex.EncodeToString(sig), nil
}

// Verify reports whether hexSig is a valid Ed25519 signature over the
// stable-stringified form of payload under pubPEM. Any error decoding the
// key or signature yields false rather than propagating.
func Verify(payload interface{}, hexSig string, pubPEM string) bool {
	pub, err := parsePublicKey(pubPEM)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(hexSig)
	if err != nil {
		return false
	}
	msg, err := StableStringify(payload)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, msg, sigBytes)
}

// SignRaw signs raw bytes directly (used for handshake digests and other
// non-JSON payloads) rather than a stable-stringified structure.
func SignRaw(msg []byte, privPEM string) (string, error) {
	priv, err := parsePrivateKey(privPEM)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ed25519.Sign(priv, msg)), nil
}

// VerifyRaw verifies a raw-byte Ed25519 signature.
func VerifyRaw(msg []byte, hexSig string, pubPEM string) bool {
	pub, err := parsePublicKey(pubPEM)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(hexSig)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, msg, sigBytes)
}
