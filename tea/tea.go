// Package tea implements the Tiny Encryption Algorithm with a configurable number of rounds.
//
// It is only used as a primitive to unwrap per-file key material, it must not be used to protect
// anything.
package tea

import (
	"crypto/cipher"
	"fmt"

	xtea "golang.org/x/crypto/tea"
)

const (
	// BlockSize is the size of a TEA block, in bytes.
	BlockSize = 8
	// KeySize is the size of a TEA key, in bytes.
	KeySize = 16
	// DefaultRounds is the number of rounds used by NewCipher.
	DefaultRounds = 64
)

// Cipher is a TEA instance with a precomputed key schedule. The key is read as four big-endian
// words and blocks as two big-endian words.
type Cipher struct {
	cipher.Block

	rounds int
}

// NewCipher creates a cipher running DefaultRounds rounds.
func NewCipher(key []byte) (*Cipher, error) {
	return NewCipherWithRounds(key, DefaultRounds)
}

// NewCipherWithRounds creates a cipher running the given number of rounds, every two rounds
// make a single Feistel step.
func NewCipherWithRounds(key []byte, rounds int) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid tea key size: %d", len(key))
	} else if rounds <= 0 || rounds&1 != 0 {
		return nil, fmt.Errorf("invalid tea rounds: %d", rounds)
	}

	block, err := xtea.NewCipherWithRounds(key, rounds)
	if err != nil {
		return nil, fmt.Errorf("failed creating tea cipher: %w", err)
	}

	return &Cipher{Block: block, rounds: rounds}, nil
}

// BlockSize is always 8.
func (c *Cipher) BlockSize() int {
	return BlockSize
}

// Rounds is the number of rounds the cipher was created with.
func (c *Cipher) Rounds() int {
	return c.rounds
}
