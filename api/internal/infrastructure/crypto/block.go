package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
)

// Block ciphertext layout: IV(16) || AES-256-CBC(PKCS#7) || TAG(32).
const (
	BlockSize = aes.BlockSize
	IVSize    = aes.BlockSize
	TagSize   = 32
	Overhead  = IVSize + TagSize
)

// Encrypt seals plaintext under key with a fresh random IV. The tag is the
// first 32 bytes of HMAC-SHA512 over IV || ciphertext || AL, computed with
// the MAC half of the key (AES_256_CBC_HMAC_SHA_512, no associated data).
func Encrypt(key *Key, plaintext []byte) ([]byte, error) {
	if key == nil {
		return nil, ErrNoKey
	}

	block, err := aes.NewCipher(key.cipherKey())
	if err != nil {
		return nil, fmt.Errorf("crypto: block cipher failure: %w", err)
	}

	padded := pkcs7Pad(plaintext)

	// 🛡️ Memory Safety: one allocation sized for IV + body + tag
	out := make([]byte, IVSize+len(padded)+TagSize)
	iv := out[:IVSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("crypto: IV generation failure: %w", err)
	}

	body := out[IVSize : IVSize+len(padded)]
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(body, padded)
	copy(out[IVSize+len(padded):], computeTag(key, iv, body))

	return out, nil
}

// Decrypt verifies the tag before touching the cipher, then strips padding.
// Tag failures are ErrAuthentication and are never swallowed here.
func Decrypt(key *Key, ciphertext []byte) ([]byte, error) {
	if key == nil {
		return nil, ErrNoKey
	}

	n := len(ciphertext)
	if n < Overhead+BlockSize || (n-Overhead)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: unexpected length %d", ErrMalformedCiphertext, n)
	}

	iv := ciphertext[:IVSize]
	body := ciphertext[IVSize : n-TagSize]
	tag := ciphertext[n-TagSize:]

	if !hmac.Equal(tag, computeTag(key, iv, body)) {
		return nil, ErrAuthentication
	}

	block, err := aes.NewCipher(key.cipherKey())
	if err != nil {
		return nil, fmt.Errorf("crypto: block cipher failure: %w", err)
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	return pkcs7Unpad(plain)
}

// EncryptText is Encrypt for string columns: UTF-8 in, base64 out.
func EncryptText(key *Key, plaintext string) (string, error) {
	sealed, err := Encrypt(key, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptText reverses EncryptText.
func DecryptText(key *Key, ciphertext string) (string, error) {
	if key == nil {
		return "", ErrNoKey
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failure: %v", ErrMalformedCiphertext, err)
	}

	plain, err := Decrypt(key, data)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func computeTag(key *Key, iv, body []byte) []byte {
	mac := hmac.New(sha512.New, key.macKey())
	mac.Write(iv)
	mac.Write(body)

	// AL: bit length of the (empty) associated data, big-endian
	var al [8]byte
	binary.BigEndian.PutUint64(al[:], 0)
	mac.Write(al[:])

	return mac.Sum(nil)[:TagSize]
}
