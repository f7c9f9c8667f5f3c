package crypto

import (
	"encoding/base64"
	"strings"
)

// LooksEncrypted reports whether b has the shape of a block ciphertext:
// 32 bytes of fixed overhead plus whole cipher blocks. It is a length
// heuristic only; callers must tolerate both false positives and negatives.
func LooksEncrypted(b []byte) bool {
	n := len(b) - 32
	return n >= 0 && n%BlockSize == 0
}

// LooksEncryptedText applies LooksEncrypted to the base64 payload of s.
// Blank strings and anything that is not strict standard base64 are plaintext.
func LooksEncryptedText(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}

	data, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return false
	}
	return LooksEncrypted(data)
}
