package qmc

import (
	"errors"
	"fmt"
)

// ErrUnknownFormat is returned when the container does not match any known layout or the key
// it carries cannot drive any cipher.
var ErrUnknownFormat = errors.New("unknown file format")

// mapCipherMaxKeyLen is the longest key handled by MapCipher, longer keys use RC4Cipher.
const mapCipherMaxKeyLen = 300

type CipherKind int

const (
	CipherStatic CipherKind = iota
	CipherMap
	CipherRC4
)

func (k CipherKind) String() string {
	switch k {
	case CipherStatic:
		return "static"
	case CipherMap:
		return "map"
	case CipherRC4:
		return "rc4"
	default:
		return fmt.Sprintf("CipherKind(%d)", int(k))
	}
}

// StreamCipher is a position dependent XOR cipher. Decrypt transforms buf in place and advances
// the cursor by len(buf): decrypting a stream in many calls yields the same bytes as a single
// call over the whole stream.
type StreamCipher interface {
	Decrypt(buf []byte)
	// DecryptAt transforms buf as if it started at offset, leaving the cursor alone.
	DecryptAt(buf []byte, offset int64)
	// Offset is the number of bytes processed so far.
	Offset() int64
	Kind() CipherKind
}

var (
	_ StreamCipher = (*StaticCipher)(nil)
	_ StreamCipher = (*MapCipher)(nil)
	_ StreamCipher = (*RC4Cipher)(nil)
)

// NewKeyedCipher picks the cipher for an unwrapped key by its length.
func NewKeyedCipher(key []byte) (StreamCipher, error) {
	switch {
	case len(key) == 0:
		return nil, ErrUnknownFormat
	case len(key) > mapCipherMaxKeyLen:
		return NewRC4Cipher(key), nil
	default:
		return NewMapCipher(key), nil
	}
}
