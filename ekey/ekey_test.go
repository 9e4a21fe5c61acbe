package ekey

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/devgianlu/go-qmcdecoder/tea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWrappedKey       = "CzBVep/E6Q70h6wx2UxC6aeOjqX8qtAqpEBiK62aqGyMPaSmzclBTlxuf6cAgXgk2ZIzTIGZMBQ="
	testWrappedKeyPrefix = "UVFNdXNpYyBFbmNWMixLZXk6CzBVep/E6Q70h6wx2UxC6aeOjqX8qtAqpEBiK62aqGyMPaSmzclBTlxuf6cAgXgk2ZIzTIGZMBQ="
	testKey              = "0b30557a9fc4e90e33587da2c7ec11365b80a5caef14395e83a8cdf2173c6186abd0f51a3f6489ae"
)

var testFiller = []byte{0xa8, 1, 2, 3, 4, 5, 6, 7, 8}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestSimpleKey(t *testing.T) {
	for i := 0; i < len(simpleKey); i++ {
		v := byte(int64(math.Abs(math.Tan(106+float64(i)*0.1)) * 100))
		assert.Equal(t, simpleKey[i], v, "simple key byte %d", i)
	}
}

func TestDeriveTeaKey(t *testing.T) {
	key := deriveTeaKey(mustHex(t, testKey)[:8])
	assert.Equal(t, "690b56304655387a2b9f20c415e90b0e", hex.EncodeToString(key))
}

func TestDecrypt(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain", raw: testWrappedKey},
		{name: "prefixed", raw: testWrappedKeyPrefix},
		{name: "trailing nul", raw: testWrappedKey + "\x00\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := Decrypt(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, testKey, hex.EncodeToString(key))
		})
	}
}

func TestEncryptVector(t *testing.T) {
	raw, err := Encrypt(mustHex(t, testKey), bytes.NewReader(testFiller))
	require.NoError(t, err)
	assert.Equal(t, testWrappedKey, raw)
}

func TestEncryptRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for _, size := range []int{8, 16, 64, 256, 512, 704} {
		key := make([]byte, size)
		_, _ = rng.Read(key)

		raw, err := Encrypt(key, rng)
		require.NoError(t, err)

		got, err := Decrypt(raw)
		require.NoError(t, err)
		assert.Equal(t, key, got, "size %d", size)
	}
}

func TestEncryptInvalid(t *testing.T) {
	_, err := Encrypt(make([]byte, 4), nil)
	assert.Error(t, err)

	_, err = Encrypt(make([]byte, 13), nil)
	assert.Error(t, err)
}

func TestDecryptInvalid(t *testing.T) {
	corrupt := func(idx int) string {
		data, err := base64.StdEncoding.DecodeString(testWrappedKey)
		require.NoError(t, err)
		data[idx] ^= 0x01
		return base64.StdEncoding.EncodeToString(data)
	}

	tests := []struct {
		name        string
		raw         string
		errContains string
	}{
		{name: "not base64", raw: "!!not base64!!", errContains: "base64"},
		{name: "too short", raw: base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), errContains: "too short"},
		{name: "no ciphertext", raw: base64.StdEncoding.EncodeToString(make([]byte, 8)), errContains: "too small"},
		{name: "unaligned", raw: base64.StdEncoding.EncodeToString(make([]byte, 8+17)), errContains: "multiple of the block size"},
		{name: "corrupted first block", raw: corrupt(8), errContains: "pad length"},
		{name: "corrupted last block", raw: corrupt(55), errContains: "zero check"},
		{name: "corrupted previous block", raw: corrupt(47), errContains: "zero check"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidKey)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestDecryptTencentTeaPadLength(t *testing.T) {
	key := deriveTeaKey([]byte("01234567"))
	c, err := tea.NewCipherWithRounds(key, teaRounds)
	require.NoError(t, err)

	// flag byte with a pad length of 2
	buf := make([]byte, 16)
	c.Encrypt(buf[:8], []byte{0x02, 0, 0, 0, 0, 0, 0, 0})

	_, err = decryptTencentTea(buf, key)
	require.ErrorIs(t, err, ErrInvalidKey)
	assert.True(t, strings.Contains(err.Error(), "invalid pad length 2"))
}

func TestDecryptTencentTeaEmptyPayload(t *testing.T) {
	key := deriveTeaKey([]byte("abcdefgh"))

	enc, err := encryptTencentTea(nil, key, bytes.NewReader(testFiller))
	require.NoError(t, err)
	assert.Len(t, enc, 16)

	out, err := decryptTencentTea(enc, key)
	require.NoError(t, err)
	assert.Empty(t, out)
}
