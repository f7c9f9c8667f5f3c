package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PBKDF2-HMAC-SHA512("abcdefghijklmnop", salt="", 100000, 64)
const knownKeyHex = "0ab4df00fafe8b817c9280ddfe23154950d0c96a1efbc10cf890f46184f85bba" +
	"54d058a89b09fac8d155951a2d644dd0865958fa47d897b297385ef40924e514"

func TestDeriveKey_KnownVector(t *testing.T) {
	k, err := DeriveKey("abcdefghijklmnop")
	require.NoError(t, err)

	assert.Equal(t, knownKeyHex, hex.EncodeToString(k.material[:]))
	assert.Equal(t, knownKeyHex[:64], hex.EncodeToString(k.macKey()))
	assert.Equal(t, knownKeyHex[64:], hex.EncodeToString(k.cipherKey()))
}

func TestDeriveKey_IsDeterministic(t *testing.T) {
	a, err := DeriveKey("the same operator secret")
	require.NoError(t, err)
	b, err := DeriveKey("the same operator secret")
	require.NoError(t, err)

	assert.Equal(t, a.material, b.material)
}

func TestDeriveKey_MinimumLength(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"empty", "", true},
		{"fifteen ascii", "abcdefghijklmno", true},
		{"sixteen ascii", "abcdefghijklmnop", false},
		// 15 runes but 30 bytes: length is counted in characters
		{"fifteen runes", "ééééééééééééééé", true},
		{"sixteen runes", "éééééééééééééééé", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := DeriveKey(tt.secret)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
				assert.Nil(t, k)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, k)
		})
	}
}

func TestLoadKey(t *testing.T) {
	t.Run("blank secret disables encryption", func(t *testing.T) {
		for _, secret := range []string{"", "   ", "\t\n"} {
			k, err := LoadKey(secret)
			assert.NoError(t, err)
			assert.Nil(t, k)
		}
	})

	t.Run("short secret is a configuration error", func(t *testing.T) {
		_, err := LoadKey("too-short")
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("valid secret derives", func(t *testing.T) {
		k, err := LoadKey("abcdefghijklmnop")
		require.NoError(t, err)
		assert.Equal(t, knownKeyHex, hex.EncodeToString(k.material[:]))
	})
}

func TestKey_NeverPrintsMaterial(t *testing.T) {
	k, err := DeriveKey("abcdefghijklmnop")
	require.NoError(t, err)

	for _, verb := range []string{"%v", "%s", "%+v", "%#v"} {
		out := fmt.Sprintf(verb, k)
		assert.Equal(t, "crypto.Key(redacted)", out, verb)
	}
}
