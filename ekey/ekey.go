// Package ekey unwraps the per-file key material embedded in container trailers.
//
// A wrapped key is a base64 string, optionally prefixed once decoded, made of 8 clear bytes
// followed by the rest of the key encrypted with a chained TEA mode. The TEA key is built from
// the clear bytes and a fixed "simple key".
package ekey

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/devgianlu/go-qmcdecoder/tea"
)

// ErrInvalidKey is wrapped by every structural failure while unwrapping a key.
var ErrInvalidKey = errors.New("invalid key")

const (
	keyPrefix  = "QQMusic EncV2,Key:"
	clearBytes = 8
)

// simpleKey is floor(|tan(106 + i*0.1)| * 100) truncated to a byte, for i in [0, 8).
var simpleKey = [clearBytes]byte{0x69, 0x56, 0x46, 0x38, 0x2b, 0x20, 0x15, 0x0b}

func deriveTeaKey(clear []byte) []byte {
	key := make([]byte, tea.KeySize)
	for i := 0; i < clearBytes; i++ {
		key[i<<1] = simpleKey[i]
		key[i<<1+1] = clear[i]
	}
	return key
}

// Decrypt unwraps a base64 encoded key. Trailing NUL characters are ignored.
func Decrypt(raw string) ([]byte, error) {
	raw = strings.TrimRight(raw, "\x00")

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: key is not base64 encoded: %w", ErrInvalidKey, err)
	}

	if len(data) > len(keyPrefix) && bytes.HasPrefix(data, []byte(keyPrefix)) {
		data = data[len(keyPrefix):]
	}

	if len(data) < clearBytes {
		return nil, fmt.Errorf("%w: key too short: %d bytes", ErrInvalidKey, len(data))
	}

	rest, err := decryptTencentTea(data[clearBytes:], deriveTeaKey(data[:clearBytes]))
	if err != nil {
		return nil, err
	}

	key := make([]byte, 0, clearBytes+len(rest))
	key = append(key, data[:clearBytes]...)
	key = append(key, rest...)
	return key, nil
}

// Encrypt wraps key so that Decrypt returns it back. The key must be made of 8 clear bytes
// followed by a multiple of 8 bytes. Random filler is read from r, crypto/rand if nil.
func Encrypt(key []byte, r io.Reader) (string, error) {
	if len(key) < clearBytes {
		return "", fmt.Errorf("key too short: %d bytes", len(key))
	}

	if r == nil {
		r = rand.Reader
	}

	enc, err := encryptTencentTea(key[clearBytes:], deriveTeaKey(key[:clearBytes]), r)
	if err != nil {
		return "", fmt.Errorf("failed wrapping key: %w", err)
	}

	data := make([]byte, 0, clearBytes+len(enc))
	data = append(data, key[:clearBytes]...)
	data = append(data, enc...)
	return base64.StdEncoding.EncodeToString(data), nil
}
