package escrow

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// IdentityPrefix is the textual prefix of every account hash.
const IdentityPrefix = "account-hash-"

// identityLen is the byte length of an account hash.
const identityLen = blake2b.Size256

// Identity is an account hash rendered as "account-hash-<64 lowercase hex>".
// It names callers, recipients, creators and the fee collector.
type Identity string

// Algorithm tags the key scheme an account hash was derived from.
type Algorithm string

const (
	AlgorithmEd25519   Algorithm = "ed25519"
	AlgorithmSecp256k1 Algorithm = "secp256k1"
)

// ParseIdentity parses and normalizes an account hash string.
// Hex digits are accepted in either case and stored lowercase.
// The all-zero hash is rejected.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToLower(s), IdentityPrefix) {
		return "", fmt.Errorf("parse identity %q: missing %q prefix", s, IdentityPrefix)
	}
	raw := strings.ToLower(s[len(IdentityPrefix):])
	b, err := hex.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("parse identity %q: %w", s, err)
	}
	if len(b) != identityLen {
		return "", fmt.Errorf("parse identity %q: want %d bytes, got %d", s, identityLen, len(b))
	}
	if isZero(b) {
		return "", fmt.Errorf("parse identity %q: zero account hash", s)
	}
	return Identity(IdentityPrefix + raw), nil
}

// MustParseIdentity is like ParseIdentity but panics on error.
// Use only in tests or with constant inputs.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// DeriveIdentity computes the account hash of a public key:
//
//	blake2b-256(algorithm || 0x00 || publicKey)
func DeriveIdentity(alg Algorithm, publicKey []byte) Identity {
	h, _ := blake2b.New256(nil) // only errors for oversized keys
	h.Write([]byte(alg))
	h.Write([]byte{0x00})
	h.Write(publicKey)
	return Identity(IdentityPrefix + hex.EncodeToString(h.Sum(nil)))
}

// Valid reports whether the identity is a well-formed, non-zero account hash
// in canonical (lowercase) form.
func (id Identity) Valid() bool {
	parsed, err := ParseIdentity(string(id))
	return err == nil && parsed == id
}

// Bytes returns the raw account hash. Returns nil if the identity is malformed.
func (id Identity) Bytes() []byte {
	if !id.Valid() {
		return nil
	}
	b, _ := hex.DecodeString(string(id)[len(IdentityPrefix):])
	return b
}

// Short returns an abbreviated form for logs ("account-hash-1a2b…9f0e").
func (id Identity) Short() string {
	s := string(id)
	if len(s) < len(IdentityPrefix)+12 {
		return s
	}
	return s[:len(IdentityPrefix)+4] + "…" + s[len(s)-4:]
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return string(id)
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
