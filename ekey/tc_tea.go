package ekey

import (
	"fmt"
	"io"

	"github.com/devgianlu/go-qmcdecoder/tea"
)

const (
	teaRounds = 32

	padLen  = 6
	saltLen = 2
	zeroLen = 7
)

// decryptTencentTea reverses the chained mode used to wrap key material. Every block i is
// recovered as x_i = D(C_i ^ x_(i-1)) and the plaintext is x_i ^ C_(i-1). The plaintext is laid
// out as a flag byte (low 3 bits are the pad length), the padding, the salt, the payload and
// seven zero bytes.
func decryptTencentTea(buf []byte, key []byte) ([]byte, error) {
	if len(buf)%tea.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext size %d is not a multiple of the block size", ErrInvalidKey, len(buf))
	} else if len(buf) < 2*tea.BlockSize {
		return nil, fmt.Errorf("%w: ciphertext size %d is too small", ErrInvalidKey, len(buf))
	}

	c, err := tea.NewCipherWithRounds(key, teaRounds)
	if err != nil {
		return nil, fmt.Errorf("failed creating tea cipher: %w", err)
	}

	var x [tea.BlockSize]byte
	c.Decrypt(x[:], buf[:tea.BlockSize])
	if pad := int(x[0] & 0x7); pad != padLen {
		return nil, fmt.Errorf("%w: invalid pad length %d", ErrInvalidKey, pad)
	}

	plain := make([]byte, len(buf))
	copy(plain, x[:])

	for off := tea.BlockSize; off < len(buf); off += tea.BlockSize {
		for j := 0; j < tea.BlockSize; j++ {
			x[j] ^= buf[off+j]
		}

		c.Decrypt(x[:], x[:])

		prev := buf[off-tea.BlockSize : off]
		for j := 0; j < tea.BlockSize; j++ {
			plain[off+j] = x[j] ^ prev[j]
		}
	}

	for i, b := range plain[len(plain)-zeroLen:] {
		if b != 0 {
			return nil, fmt.Errorf("%w: zero check failed at byte %d", ErrInvalidKey, i)
		}
	}

	return plain[1+padLen+saltLen : len(plain)-zeroLen], nil
}

// encryptTencentTea is the inverse of decryptTencentTea. The flag, padding and salt bytes are
// read from rand. The payload size must be a multiple of the block size so that the pad length
// comes out as the one decryptTencentTea accepts.
func encryptTencentTea(payload []byte, key []byte, rand io.Reader) ([]byte, error) {
	if len(payload)%tea.BlockSize != 0 {
		return nil, fmt.Errorf("payload size %d is not a multiple of the block size", len(payload))
	}

	c, err := tea.NewCipherWithRounds(key, teaRounds)
	if err != nil {
		return nil, fmt.Errorf("failed creating tea cipher: %w", err)
	}

	buf := make([]byte, 1+padLen+saltLen+len(payload)+zeroLen)
	if _, err := io.ReadFull(rand, buf[:1+padLen+saltLen]); err != nil {
		return nil, fmt.Errorf("failed reading random filler: %w", err)
	}

	buf[0] = buf[0]&^0x7 | padLen
	copy(buf[1+padLen+saltLen:], payload)

	var x, prevX [tea.BlockSize]byte
	for off := 0; off < len(buf); off += tea.BlockSize {
		block := buf[off : off+tea.BlockSize]

		copy(x[:], block)
		if off > 0 {
			prevC := buf[off-tea.BlockSize : off]
			for j := 0; j < tea.BlockSize; j++ {
				x[j] ^= prevC[j]
			}
		}

		c.Encrypt(block, x[:])
		for j := 0; j < tea.BlockSize; j++ {
			block[j] ^= prevX[j]
		}

		prevX = x
	}

	return buf, nil
}
