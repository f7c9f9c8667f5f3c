package crypto

import "fmt"

// pkcs7Pad always appends between 1 and BlockSize bytes, so empty input
// still produces one full block.
func pkcs7Pad(data []byte) []byte {
	pad := BlockSize - len(data)%BlockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: padded length %d", ErrMalformedCiphertext, len(data))
	}

	pad := int(data[len(data)-1])
	if pad == 0 || pad > BlockSize {
		return nil, fmt.Errorf("%w: bad padding", ErrMalformedCiphertext)
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: bad padding", ErrMalformedCiphertext)
		}
	}
	return data[:len(data)-pad], nil
}
