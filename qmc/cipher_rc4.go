package qmc

import (
	"bytes"
	"math"
)

const (
	rc4FirstSegmentSize = 128
	rc4SegmentSize      = 5120
)

// RC4Cipher is used with long keys. The stream is split in segments: the first 128 bytes are
// masked straight from the key, every following 5120 bytes segment restarts an RC4 keystream
// from the initial box, skipping a key dependent amount of output.
type RC4Cipher struct {
	key  []byte
	box  []byte
	hash uint32

	offset int64
}

func NewRC4Cipher(key []byte) *RC4Cipher {
	c := &RC4Cipher{key: bytes.Clone(key)}

	n := len(c.key)
	c.box = make([]byte, n)
	for i := 0; i < n; i++ {
		c.box[i] = byte(i)
	}

	j := 0
	for i := 0; i < n; i++ {
		j = (j + int(c.box[i]) + int(c.key[i])) % n
		c.box[i], c.box[j] = c.box[j], c.box[i]
	}

	c.hash = hashBase(c.key)
	return c
}

// hashBase multiplies the non-zero key bytes together, stopping as soon as the product wraps
// around or stops growing. Only a prefix of the key takes part for most keys.
func hashBase(key []byte) uint32 {
	hash := uint32(1)
	for _, v := range key {
		if v == 0 {
			continue
		}

		next := hash * uint32(v)
		if next == 0 || next <= hash {
			break
		}

		hash = next
	}

	return hash
}

// segmentSkip computes the key index for the first segment bytes and the keystream skip for
// the other segments. A zero seed divides by zero: the resulting +Inf is pinned to the largest
// int64 rather than left to the platform float to integer conversion.
func (c *RC4Cipher) segmentSkip(id int64) int64 {
	n := int64(len(c.key))

	seed := int64(c.key[id%n])
	if seed == 0 {
		return math.MaxInt64 % n
	}

	v := float64(c.hash) / float64((id+1)*seed) * 100.0
	return int64(v) % n
}

func (c *RC4Cipher) decryptFirstSegment(buf []byte, offset int64) {
	for i := range buf {
		buf[i] ^= c.key[c.segmentSkip(offset+int64(i))]
	}
}

func (c *RC4Cipher) decryptSegment(buf []byte, offset int64) {
	n := len(c.key)
	box := bytes.Clone(c.box)

	skip := offset%rc4SegmentSize + c.segmentSkip(offset/rc4SegmentSize)

	j, k := 0, 0
	for i := -skip; i < int64(len(buf)); i++ {
		j = (j + 1) % n
		k = (int(box[j]) + k) % n
		box[j], box[k] = box[k], box[j]

		if i >= 0 {
			buf[i] ^= box[(int(box[j])+int(box[k]))%n]
		}
	}
}

func (c *RC4Cipher) Decrypt(buf []byte) {
	c.DecryptAt(buf, c.offset)
	c.offset += int64(len(buf))
}

func (c *RC4Cipher) DecryptAt(buf []byte, offset int64) {
	for len(buf) > 0 {
		var size int64
		if offset < rc4FirstSegmentSize {
			size = min(int64(len(buf)), rc4FirstSegmentSize-offset)
			c.decryptFirstSegment(buf[:size], offset)
		} else {
			size = min(int64(len(buf)), rc4SegmentSize-offset%rc4SegmentSize)
			c.decryptSegment(buf[:size], offset)
		}

		offset += size
		buf = buf[size:]
	}
}

func (c *RC4Cipher) Offset() int64 {
	return c.offset
}

func (c *RC4Cipher) Kind() CipherKind {
	return CipherRC4
}
