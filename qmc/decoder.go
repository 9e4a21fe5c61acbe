package qmc

import (
	"fmt"
	"io"

	qmcdecoder "github.com/devgianlu/go-qmcdecoder"
	"github.com/devgianlu/go-qmcdecoder/ekey"
)

// maxEmptyReads is how many consecutive (0, nil) reads are tolerated from the container.
const maxEmptyReads = 100

// Decoder strips the obfuscation layer from a container, yielding exactly the audio payload.
type Decoder struct {
	log qmcdecoder.Logger

	reader  io.ReadSeeker
	trailer *Trailer
	cipher  StreamCipher
}

// NewDecoder locates the key material at the end of the container, unwraps it and prepares the
// matching cipher. The reader is rewound to the start of the audio payload.
func NewDecoder(log qmcdecoder.Logger, r io.ReadSeeker) (*Decoder, error) {
	if log == nil {
		log = &qmcdecoder.NullLogger{}
	}

	trailer, c, err := prepare(log, r)
	if err != nil {
		return nil, err
	}

	return &Decoder{log: log, reader: r, trailer: trailer, cipher: c}, nil
}

// prepare locates and unwraps the key of the container and builds the matching cipher.
func prepare(log qmcdecoder.Logger, r io.ReadSeeker) (*Trailer, StreamCipher, error) {
	trailer, err := Locate(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed locating key: %w", err)
	}

	var c StreamCipher
	if trailer.HasKey() {
		key, err := ekey.Decrypt(trailer.RawKey)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed decrypting %s key: %w", ErrUnknownFormat, trailer.Layout, err)
		}

		c, err = NewKeyedCipher(key)
		if err != nil {
			return nil, nil, fmt.Errorf("failed selecting cipher: %w", err)
		}

		log.Debugf("decrypted %s key of %d bytes", trailer.Layout, len(key))
	} else {
		c = NewStaticCipher()
	}

	log.WithFields(map[string]interface{}{
		"layout": trailer.Layout.String(),
		"cipher": c.Kind().String(),
	}).Debugf("prepared decoder for %d bytes of audio", trailer.AudioLen)
	return trailer, c, nil
}

func (d *Decoder) Trailer() *Trailer {
	return d.trailer
}

func (d *Decoder) CipherKind() CipherKind {
	return d.cipher.Kind()
}

// AudioLen is the total size of the decoded output.
func (d *Decoder) AudioLen() int64 {
	return d.trailer.AudioLen
}

// Remaining is the amount of audio not decoded yet, it reaches 0 exactly at the end of the
// payload.
func (d *Decoder) Remaining() int64 {
	return d.trailer.AudioLen - d.cipher.Offset()
}

// Decode reads and decrypts the next chunk of audio into p. It returns 0 without an error only
// once the payload has been consumed, the trailing metadata is never read. An empty p while audio
// is left is io.ErrShortBuffer.
func (d *Decoder) Decode(p []byte) (int, error) {
	left := d.Remaining()
	if left <= 0 {
		return 0, nil
	} else if len(p) == 0 {
		return 0, io.ErrShortBuffer
	}

	if int64(len(p)) > left {
		p = p[:left]
	}

	var n int
	var err error
	for i := 0; n == 0 && err == nil; i++ {
		if i == maxEmptyReads {
			return 0, io.ErrNoProgress
		}

		n, err = d.reader.Read(p)
	}

	if n > 0 {
		d.cipher.Decrypt(p[:n])
	}

	if err == io.EOF {
		if n == 0 {
			return 0, fmt.Errorf("container ended %d bytes before the end of audio: %w", left, io.ErrUnexpectedEOF)
		}

		err = nil
	}

	return n, err
}

// Read implements io.Reader on top of Decode.
func (d *Decoder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n, err := d.Decode(p)
	if err != nil {
		return n, err
	} else if n == 0 && d.Remaining() <= 0 {
		return 0, io.EOF
	}

	return n, nil
}
