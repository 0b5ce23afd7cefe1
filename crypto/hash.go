// Package crypto implements the stable-serialization, hashing, signing, and
// Merkle primitives the rest of the ledger builds on. Every hash in this
// package is SHA3-256; every structured payload that is hashed or signed is
// first passed through StableStringify so independent implementations agree
// byte-for-byte.
package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"
)

// sha3Hex returns the hex-encoded SHA3-256 digest of b.
func sha3Hex(b []byte) string {
	sum := sha3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// StableStringify serializes v to JSON with object keys sorted
// lexicographically at every nesting level. Array order is preserved.
// This is the only function permitted for producing bytes to hash or sign
// for a structured payload; any other serialization breaks signature and
// hash portability across implementations.
func StableStringify(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal payload: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("crypto: decode payload for canonicalization: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case json.Number:
		buf.WriteString(val.String())
	case string:
		sb, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(sb)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("crypto: unsupported canonical type %T", v)
	}
	return nil
}

// Hash returns the hex-encoded SHA3-256 digest of the stable-stringified form
// of x. Two semantically equal values hash identically regardless of the key
// insertion order used to construct them.
func Hash(x interface{}) (string, error) {
	canonical, err := StableStringify(x)
	if err != nil {
		return "", err
	}
	return sha3Hex(canonical), nil
}

// HashRaw returns the hex-encoded SHA3-256 digest of the raw bytes of s with
// no canonicalization. It backs commitment hashing, public-key
// fingerprinting, and the empty Merkle root, where the input is a plain
// string rather than a structured payload. Merkle pair-hashing hashes the
// decoded child digests directly and does not go through HashRaw.
func HashRaw(s string) string {
	return sha3Hex([]byte(s))
}
