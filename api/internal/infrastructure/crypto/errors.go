package crypto

import "errors"

var (
	// ErrConfiguration is returned when the operator secret cannot produce a key.
	// It is fatal at startup and never retryable.
	ErrConfiguration = errors.New("crypto: invalid encryption secret")

	// ErrAuthentication means the tag did not verify: the value was tampered
	// with or was sealed under a different key.
	ErrAuthentication = errors.New("crypto: integrity violation - authentication tag mismatch")

	// ErrMalformedCiphertext means the input cannot be ciphertext at all
	// (wrong length, bad header, bad base64, bad padding).
	ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")

	// ErrNoKey is returned by the strict codec functions when called without a key.
	ErrNoKey = errors.New("crypto: no encryption key configured")
)
