package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

const (
	pemBlockPublicKey  = "PUBLIC KEY"
	pemBlockPrivateKey = "PRIVATE KEY"
)

// GenerateKeyPair creates a fresh Ed25519 key pair and returns the public and
// private keys PEM-encoded (PKIX and PKCS8 respectively), matching the wire
// form identities carry in the registry.
func GenerateKeyPair() (pubPEM string, privPEM string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("crypto: generate key pair: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", "", fmt.Errorf("crypto: marshal public key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", fmt.Errorf("crypto: marshal private key: %w", err)
	}

	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: pemBlockPublicKey, Bytes: pubDER}))
	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: pemBlockPrivateKey, Bytes: privDER}))
	return pubPEM, privPEM, nil
}

// FingerprintPublicKey returns the SHA3-256 hex digest of the trimmed PEM,
// which is the stable identity of a participant across the ledger.
func FingerprintPublicKey(pubPEM string) (string, error) {
	trimmed := strings.TrimSpace(pubPEM)
	if trimmed == "" {
		return "", fmt.Errorf("crypto: empty public key")
	}
	return HashRaw(trimmed), nil
}

func parsePublicKey(pubPEM string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(pubPEM))
	if block == nil {
		return nil, fmt.Errorf("crypto: invalid public key PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse public key: %w", err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("crypto: public key is not Ed25519")
	}
	return pub, nil
}

func parsePrivateKey(privPEM string) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privPEM))
	if block == nil {
		return nil, fmt.Errorf("crypto: invalid private key PEM")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse private key: %w", err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("crypto: private key is not Ed25519")
	}
	return priv, nil
}
