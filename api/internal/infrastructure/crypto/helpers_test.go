package crypto_test

import (
	"testing"

	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
)

const testSecret = "abcdefghijklmnop"

// Derivation runs 100k PBKDF2 rounds, so tests share keys.
var (
	testKey  = mustDerive(testSecret)
	otherKey = mustDerive("ponmlkjihgfedcba-other")
)

func mustDerive(secret string) *crypto.Key {
	k, err := crypto.DeriveKey(secret)
	if err != nil {
		panic(err)
	}
	return k
}

func flipBit(t *testing.T, b []byte, bit int) []byte {
	t.Helper()
	out := append([]byte(nil), b...)
	out[bit/8] ^= 1 << (bit % 8)
	return out
}
