package qmc

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func littleEndian(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func rawKeyContainer(audio []byte, key string) []byte {
	var buf bytes.Buffer
	buf.Write(audio)
	buf.WriteString(key)
	buf.Write(littleEndian(uint32(len(key))))
	return buf.Bytes()
}

func taggedContainer(audio []byte, meta string) []byte {
	var buf bytes.Buffer
	buf.Write(audio)
	buf.WriteString(meta)
	buf.Write(littleEndian(uint32(len(meta))))
	buf.WriteString("QTag")
	return buf.Bytes()
}

func TestLocateLayouts(t *testing.T) {
	audio := bytes.Repeat([]byte{0xaa}, 1000)

	tests := []struct {
		name      string
		container []byte
		layout    TrailerLayout
		audioLen  int64
		rawKey    string
		extra     [2]int
	}{
		{
			name:      "zero length",
			container: append(bytes.Clone(audio), littleEndian(0)...),
			layout:    LayoutNone,
			audioLen:  1000,
		},
		{
			name:      "length out of range",
			container: append(bytes.Clone(audio), littleEndian(0x300)...),
			layout:    LayoutNone,
			audioLen:  1000,
		},
		{
			name:      "audio tail",
			container: append(bytes.Clone(audio), 0x12, 0x34, 0x56, 0x78),
			layout:    LayoutNone,
			audioLen:  1000,
		},
		{
			name:      "raw key",
			container: rawKeyContainer(audio, "c2VjcmV0"),
			layout:    LayoutRawKey,
			audioLen:  1000,
			rawKey:    "c2VjcmV0",
		},
		{
			name:      "raw key with nul",
			container: rawKeyContainer(audio, "c2VjcmV0\x00"),
			layout:    LayoutRawKey,
			audioLen:  1000,
			rawKey:    "c2VjcmV0",
		},
		{
			name:      "raw key longest",
			container: rawKeyContainer(audio, strings.Repeat("A", 0x2FF)),
			layout:    LayoutRawKey,
			audioLen:  1000,
			rawKey:    strings.Repeat("A", 0x2FF),
		},
		{
			name:      "tagged",
			container: taggedContainer(audio, "c2VjcmV0,12345,2"),
			layout:    LayoutTagged,
			audioLen:  1000,
			rawKey:    "c2VjcmV0",
			extra:     [2]int{12345, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.container)

			trailer, err := Locate(r)
			require.NoError(t, err)
			assert.Equal(t, tt.layout, trailer.Layout)
			assert.Equal(t, tt.audioLen, trailer.AudioLen)
			assert.Equal(t, tt.rawKey, trailer.RawKey)
			assert.Equal(t, tt.extra, trailer.Extra)
			assert.Equal(t, tt.layout != LayoutNone, trailer.HasKey())

			pos, err := r.Seek(0, io.SeekCurrent)
			require.NoError(t, err)
			assert.Zero(t, pos)
		})
	}
}

func TestLocateInvalid(t *testing.T) {
	tests := []struct {
		name        string
		container   []byte
		errContains string
	}{
		{
			name:        "too small",
			container:   []byte{1, 2},
			errContains: "container too small",
		},
		{
			name:        "raw key longer than container",
			container:   append([]byte("abc"), littleEndian(0x100)...),
			errContains: "exceeds container size",
		},
		{
			name:        "tagged metadata longer than container",
			container:   append(append([]byte("abc"), littleEndian(0x100)...), "QTag"...),
			errContains: "exceeds container size",
		},
		{
			name:        "tagged without length",
			container:   []byte("xQTag"),
			errContains: "too small for tagged trailer",
		},
		{
			name:        "tagged two fields",
			container:   taggedContainer([]byte("audio"), "c2VjcmV0,1"),
			errContains: "has 2 fields",
		},
		{
			name:        "tagged four fields",
			container:   taggedContainer([]byte("audio"), "c2VjcmV0,1,2,3"),
			errContains: "has 4 fields",
		},
		{
			name:        "tagged non integer field",
			container:   taggedContainer([]byte("audio"), "c2VjcmV0,1,two"),
			errContains: "invalid tagged metadata field 3",
		},
		{
			name:        "raw key not utf-8",
			container:   rawKeyContainer([]byte("audio"), "\xff\xfe"),
			errContains: "not valid utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Locate(bytes.NewReader(tt.container))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTrailer)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestTrailerLayoutString(t *testing.T) {
	assert.Equal(t, "none", LayoutNone.String())
	assert.Equal(t, "raw-key", LayoutRawKey.String())
	assert.Equal(t, "tagged", LayoutTagged.String())
}
