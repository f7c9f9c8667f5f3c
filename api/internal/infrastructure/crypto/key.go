// Package crypto encrypts credentials and other secrets at rest.
//
// A single operational Key is derived from the operator secret at startup.
// Fixed-size values are sealed with AES-256-CBC + HMAC-SHA512
// (encrypt-then-MAC); streamed values use an unauthenticated AES-256-CBC
// format with a cipher-spec header. Service wraps both behind "maybe"
// operations that pass values through untouched when no key is configured.
package crypto

import (
	"crypto/sha512"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeySize         = 64 // derived key material
	MinSecretLength = 16 // characters, not bytes
	KDFIterations   = 100_000
	subKeySize      = 32
	macKeyOffset    = 0
	cipherKeyOffset = 32
)

// Key is the operational key shared read-only by every codec call.
// The zero value is not usable; obtain one from DeriveKey or LoadKey.
type Key struct {
	material [KeySize]byte
}

// DeriveKey runs PBKDF2-HMAC-SHA512 over secret with no salt, so the same
// secret always re-derives the same key across restarts.
func DeriveKey(secret string) (*Key, error) {
	if n := utf8.RuneCountInString(secret); n < MinSecretLength {
		return nil, fmt.Errorf("%w: secret must be at least %d characters (got %d)", ErrConfiguration, MinSecretLength, n)
	}

	derived := pbkdf2.Key([]byte(secret), nil, KDFIterations, KeySize, sha512.New)

	k := &Key{}
	copy(k.material[:], derived)

	// 🛡️ Hygiene: the slice returned by pbkdf2 is ours to wipe
	for i := range derived {
		derived[i] = 0
	}
	return k, nil
}

// LoadKey is DeriveKey for optional configuration: a blank secret disables
// encryption and yields a nil key with no error.
func LoadKey(secret string) (*Key, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, nil
	}
	return DeriveKey(secret)
}

// macKey is the HMAC-SHA512 half of the key material.
func (k *Key) macKey() []byte {
	return k.material[macKeyOffset : macKeyOffset+subKeySize]
}

// cipherKey is the AES-256 half, used by both the block and the stream codec.
func (k *Key) cipherKey() []byte {
	return k.material[cipherKeyOffset : cipherKeyOffset+subKeySize]
}

// String keeps key material out of logs and fmt verbs.
func (k *Key) String() string {
	return "crypto.Key(redacted)"
}

// GoString covers %#v as well.
func (k *Key) GoString() string {
	return k.String()
}
