package qmc

import "bytes"

// MapCipher derives every mask from a single key byte picked by a quadratic map of the position.
type MapCipher struct {
	key    []byte
	offset int64
}

func NewMapCipher(key []byte) *MapCipher {
	return &MapCipher{key: bytes.Clone(key)}
}

// rotateMask mixes the two shifted halves of the key byte. Both shifts use the same amount,
// the containers are produced this way: this is not a plain 8 bit rotation.
func rotateMask(value byte, bits byte) byte {
	rotate := (bits + 4) % 8
	return value<<rotate | value>>rotate
}

func (c *MapCipher) mask(offset int64) byte {
	offset %= 0x7FFF

	idx := (offset*offset + 71214) % int64(len(c.key))
	return rotateMask(c.key[idx], byte(idx&0x7))
}

func (c *MapCipher) Decrypt(buf []byte) {
	c.DecryptAt(buf, c.offset)
	c.offset += int64(len(buf))
}

func (c *MapCipher) DecryptAt(buf []byte, offset int64) {
	for i := range buf {
		buf[i] ^= c.mask(offset + int64(i))
	}
}

func (c *MapCipher) Offset() int64 {
	return c.offset
}

func (c *MapCipher) Kind() CipherKind {
	return CipherMap
}
