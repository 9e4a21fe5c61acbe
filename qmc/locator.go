package qmc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	qmcdecoder "github.com/devgianlu/go-qmcdecoder"
)

// ErrInvalidTrailer is returned when the trailing metadata of a container is malformed.
var ErrInvalidTrailer = errors.New("invalid container trailer")

const (
	// rawKeyMaxLen bounds the length field of raw key trailers, exclusive.
	rawKeyMaxLen = 0x300

	tailSize = 4
)

var taggedMarker = []byte("QTag")

type TrailerLayout int

const (
	// LayoutNone is a container without an embedded key, the last 4 bytes are not audio.
	LayoutNone TrailerLayout = iota
	// LayoutRawKey is a container ending with the wrapped key and its little-endian length.
	LayoutRawKey
	// LayoutTagged is a container ending with "<key>,<int>,<int>", its length and "QTag".
	LayoutTagged
)

func (l TrailerLayout) String() string {
	switch l {
	case LayoutNone:
		return "none"
	case LayoutRawKey:
		return "raw-key"
	case LayoutTagged:
		return "tagged"
	default:
		return fmt.Sprintf("TrailerLayout(%d)", int(l))
	}
}

// Trailer describes where the audio payload ends and which key material follows it.
type Trailer struct {
	Layout TrailerLayout

	// AudioLen is the size of the payload, starting at offset 0.
	AudioLen int64
	// RawKey is the still wrapped key, empty for LayoutNone.
	RawKey string
	// Extra are the two integers following the key in tagged trailers. They are not needed
	// for decoding.
	Extra [2]int
}

func (t *Trailer) HasKey() bool {
	return t.Layout != LayoutNone
}

func readAt(r io.ReadSeeker, buf []byte, offset int64) error {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed seeking to %d: %w", offset, err)
	}

	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("failed reading %d bytes at %d: %w", len(buf), offset, err)
	}

	return nil
}

// Locate inspects the tail of the container to find out its layout. The stream is left at
// offset 0 on success.
func Locate(r io.ReadSeeker) (*Trailer, error) {
	size, err := qmcdecoder.StreamSize(r)
	if err != nil {
		return nil, fmt.Errorf("failed getting container size: %w", err)
	} else if size < tailSize {
		return nil, fmt.Errorf("%w: container too small: %d bytes", ErrInvalidTrailer, size)
	}

	tail := make([]byte, tailSize)
	if err := readAt(r, tail, size-tailSize); err != nil {
		return nil, fmt.Errorf("failed reading container tail: %w", err)
	}

	var trailer *Trailer
	if string(tail) == string(taggedMarker) {
		trailer, err = readTaggedTrailer(r, size)
	} else if keyLen := binary.LittleEndian.Uint32(tail); keyLen > 0 && keyLen < rawKeyMaxLen {
		trailer, err = readRawKeyTrailer(r, size, int64(keyLen))
	} else {
		trailer = &Trailer{Layout: LayoutNone, AudioLen: size - tailSize}
	}

	if err != nil {
		return nil, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed seeking to audio start: %w", err)
	}

	return trailer, nil
}

func readRawKeyTrailer(r io.ReadSeeker, size, keyLen int64) (*Trailer, error) {
	start := size - tailSize - keyLen
	if start < 0 {
		return nil, fmt.Errorf("%w: key length %d exceeds container size %d", ErrInvalidTrailer, keyLen, size)
	}

	key := make([]byte, keyLen)
	if err := readAt(r, key, start); err != nil {
		return nil, fmt.Errorf("failed reading raw key: %w", err)
	}

	// some writers terminate the key with a NUL byte
	if key[len(key)-1] == 0 {
		key = key[:len(key)-1]
	}

	if !utf8.Valid(key) {
		return nil, fmt.Errorf("%w: raw key is not valid utf-8", ErrInvalidTrailer)
	}

	return &Trailer{Layout: LayoutRawKey, AudioLen: start, RawKey: string(key)}, nil
}

func readTaggedTrailer(r io.ReadSeeker, size int64) (*Trailer, error) {
	if size < 2*tailSize {
		return nil, fmt.Errorf("%w: container too small for tagged trailer: %d bytes", ErrInvalidTrailer, size)
	}

	lenBuf := make([]byte, tailSize)
	if err := readAt(r, lenBuf, size-2*tailSize); err != nil {
		return nil, fmt.Errorf("failed reading tagged metadata length: %w", err)
	}

	metaLen := int64(binary.LittleEndian.Uint32(lenBuf))
	start := size - 2*tailSize - metaLen
	if start < 0 {
		return nil, fmt.Errorf("%w: metadata length %d exceeds container size %d", ErrInvalidTrailer, metaLen, size)
	}

	meta := make([]byte, metaLen)
	if err := readAt(r, meta, start); err != nil {
		return nil, fmt.Errorf("failed reading tagged metadata: %w", err)
	}

	if !utf8.Valid(meta) {
		return nil, fmt.Errorf("%w: tagged metadata is not valid utf-8", ErrInvalidTrailer)
	}

	items := strings.Split(string(meta), ",")
	if len(items) != 3 {
		return nil, fmt.Errorf("%w: tagged metadata has %d fields", ErrInvalidTrailer, len(items))
	}

	trailer := &Trailer{Layout: LayoutTagged, AudioLen: start, RawKey: items[0]}
	for i, item := range items[1:] {
		v, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid tagged metadata field %d: %w", ErrInvalidTrailer, i+2, err)
		}

		trailer.Extra[i] = v
	}

	return trailer, nil
}
