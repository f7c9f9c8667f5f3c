package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Stream ciphertext layout: HEADER(32) || IV(16) || AES-256-CBC(PKCS#7).
//
// The stream format carries no authentication tag. Corruption of the body
// is not detected; only the fixed-size codec guarantees integrity.
const (
	StreamCipherSpec = "AES/CBC/PKCS5Padding"
	StreamHeaderSize = 32
	streamChunkSize  = 32 * 1024
)

// streamHeader is StreamCipherSpec right-padded with spaces.
var streamHeader = []byte(fmt.Sprintf("%-*s", StreamHeaderSize, StreamCipherSpec))

// EncryptStream returns a reader producing the header, a fresh IV and then
// the encrypted body of r, one chunk at a time. It takes ownership of r:
// closing the returned reader closes r if r is an io.Closer, and r is closed
// straight away if an error is returned.
func EncryptStream(key *Key, r io.Reader) (io.ReadCloser, error) {
	if key == nil {
		closeSource(r)
		return nil, ErrNoKey
	}

	block, err := aes.NewCipher(key.cipherKey())
	if err != nil {
		closeSource(r)
		return nil, fmt.Errorf("crypto: block cipher failure: %w", err)
	}

	prefix := make([]byte, StreamHeaderSize+IVSize)
	copy(prefix, streamHeader)
	iv := prefix[StreamHeaderSize:]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		closeSource(r)
		return nil, fmt.Errorf("crypto: IV generation failure: %w", err)
	}

	enc := &cbcEncryptReader{
		src:  r,
		mode: cipher.NewCBCEncrypter(block, iv),
		buf:  make([]byte, streamChunkSize),
		obuf: make([]byte, streamChunkSize+BlockSize),
		out:  prefix,
	}
	return &streamReadCloser{Reader: enc, src: r, wipe: enc.wipe}, nil
}

// DecryptStreamIfEncrypted peeks at the first 32 bytes of r. A recognised
// header starts a decrypting reader; anything else (including a stream
// shorter than the header) is replayed byte for byte. Ownership of r
// follows EncryptStream.
func DecryptStreamIfEncrypted(key *Key, r io.Reader) (io.ReadCloser, error) {
	return decryptStream(key, r, nil)
}

// decryptStream implements DecryptStreamIfEncrypted. When onTruncated is
// set, a stream that ends inside the IV is replayed instead of failing.
func decryptStream(key *Key, r io.Reader, onTruncated func(error)) (io.ReadCloser, error) {
	if key == nil {
		closeSource(r)
		return nil, ErrNoKey
	}

	head := make([]byte, StreamHeaderSize)
	n, err := io.ReadFull(r, head)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return replay(head[:n], r), nil
	case err != nil:
		closeSource(r)
		return nil, fmt.Errorf("crypto: reading stream header: %w", err)
	}

	if strings.TrimSpace(string(head)) != StreamCipherSpec {
		return replay(head, r), nil
	}

	iv := make([]byte, IVSize)
	if m, err := io.ReadFull(r, iv); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			truncated := fmt.Errorf("%w: stream truncated inside IV", ErrMalformedCiphertext)
			if onTruncated != nil {
				onTruncated(truncated)
				return replay(append(head, iv[:m]...), r), nil
			}
			closeSource(r)
			return nil, truncated
		}
		closeSource(r)
		return nil, fmt.Errorf("crypto: reading stream IV: %w", err)
	}

	block, err := aes.NewCipher(key.cipherKey())
	if err != nil {
		closeSource(r)
		return nil, fmt.Errorf("crypto: block cipher failure: %w", err)
	}

	dec := &cbcDecryptReader{
		src:  r,
		mode: cipher.NewCBCDecrypter(block, iv),
		buf:  make([]byte, streamChunkSize),
		obuf: make([]byte, streamChunkSize+BlockSize),
	}
	return &streamReadCloser{Reader: dec, src: r, wipe: dec.wipe}, nil
}

// replay hands back the peeked prefix followed by the untouched remainder.
func replay(prefix []byte, r io.Reader) io.ReadCloser {
	return &streamReadCloser{
		Reader: io.MultiReader(bytes.NewReader(prefix), r),
		src:    r,
	}
}

// cbcEncryptReader encrypts whole blocks as they arrive and pads the tail
// once the source reports EOF.
type cbcEncryptReader struct {
	src  io.Reader
	mode cipher.BlockMode
	buf  []byte // read buffer
	in   []byte // pending plaintext, always shorter than one block between fills
	obuf []byte // reused ciphertext buffer
	out  []byte // ciphertext not yet handed to the caller
	done bool
	err  error
}

func (e *cbcEncryptReader) Read(p []byte) (int, error) {
	for len(e.out) == 0 {
		if e.err != nil {
			return 0, e.err
		}
		if e.done {
			return 0, io.EOF
		}
		e.fill()
	}

	n := copy(p, e.out)
	e.out = e.out[n:]
	return n, nil
}

func (e *cbcEncryptReader) fill() {
	n, err := e.src.Read(e.buf)
	e.in = append(e.in, e.buf[:n]...)

	switch {
	case errors.Is(err, io.EOF):
		padded := pkcs7Pad(e.in)
		e.mode.CryptBlocks(padded, padded)
		e.out = padded
		e.in = e.in[:0]
		e.done = true
	case err != nil:
		e.err = err
	default:
		full := len(e.in) - len(e.in)%BlockSize
		if full == 0 {
			return
		}
		chunk := e.obuf[:full]
		e.mode.CryptBlocks(chunk, e.in[:full])
		e.out = chunk
		e.in = append(e.in[:0], e.in[full:]...)
	}
}

func (e *cbcEncryptReader) wipe() {
	zero(e.buf)
	zero(e.obuf)
	zero(e.in[:cap(e.in)])
}

// cbcDecryptReader keeps the last full block back until EOF so the padding
// can be stripped without buffering the body.
type cbcDecryptReader struct {
	src  io.Reader
	mode cipher.BlockMode
	buf  []byte
	in   []byte
	obuf []byte
	out  []byte
	done bool
	err  error
}

func (d *cbcDecryptReader) Read(p []byte) (int, error) {
	for len(d.out) == 0 {
		if d.err != nil {
			return 0, d.err
		}
		if d.done {
			return 0, io.EOF
		}
		d.fill()
	}

	n := copy(p, d.out)
	d.out = d.out[n:]
	return n, nil
}

func (d *cbcDecryptReader) fill() {
	n, err := d.src.Read(d.buf)
	d.in = append(d.in, d.buf[:n]...)

	switch {
	case errors.Is(err, io.EOF):
		d.done = true
		if len(d.in) == 0 || len(d.in)%BlockSize != 0 {
			d.err = fmt.Errorf("%w: stream body of %d trailing bytes is not block aligned", ErrMalformedCiphertext, len(d.in))
			return
		}
		plain := make([]byte, len(d.in))
		d.mode.CryptBlocks(plain, d.in)
		unpadded, perr := pkcs7Unpad(plain)
		if perr != nil {
			d.err = perr
			return
		}
		d.out = unpadded
		d.in = d.in[:0]
	case err != nil:
		d.err = err
	default:
		ready := len(d.in) - len(d.in)%BlockSize
		if len(d.in)%BlockSize == 0 {
			ready -= BlockSize
		}
		if ready <= 0 {
			return
		}
		chunk := d.obuf[:ready]
		d.mode.CryptBlocks(chunk, d.in[:ready])
		d.out = chunk
		d.in = append(d.in[:0], d.in[ready:]...)
	}
}

func (d *cbcDecryptReader) wipe() {
	zero(d.buf)
	zero(d.obuf)
	zero(d.in[:cap(d.in)])
}

// streamReadCloser ties a transform to the source it reads from.
type streamReadCloser struct {
	io.Reader
	src    io.Reader
	wipe   func()
	closed bool
}

func (s *streamReadCloser) Read(p []byte) (int, error) {
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	return s.Reader.Read(p)
}

// Close releases the source and clears cipher buffers. Repeated calls are no-ops.
func (s *streamReadCloser) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.wipe != nil {
		s.wipe()
	}
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func closeSource(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
