package qmc

import (
	"io"

	qmcdecoder "github.com/devgianlu/go-qmcdecoder"
)

// Decryptor gives random access to the audio of a container, for players that need to seek.
// It is safe for concurrent use as ReadAt never touches the cipher cursor.
type Decryptor struct {
	reader  io.ReaderAt
	trailer *Trailer
	cipher  StreamCipher
}

// NewDecryptor prepares random access to the container stored in the first size bytes of r.
func NewDecryptor(log qmcdecoder.Logger, r io.ReaderAt, size int64) (*Decryptor, error) {
	if log == nil {
		log = &qmcdecoder.NullLogger{}
	}

	trailer, c, err := prepare(log, io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, err
	}

	return &Decryptor{reader: r, trailer: trailer, cipher: c}, nil
}

func (d *Decryptor) Trailer() *Trailer {
	return d.trailer
}

// Size is the length of the audio, reads never reach into the trailer.
func (d *Decryptor) Size() int64 {
	return d.trailer.AudioLen
}

func (d *Decryptor) ReadAt(p []byte, pos int64) (n int, err error) {
	if pos >= d.trailer.AudioLen {
		return 0, io.EOF
	}

	clamped := false
	if int64(len(p)) > d.trailer.AudioLen-pos {
		p = p[:d.trailer.AudioLen-pos]
		clamped = true
	}

	n, err = d.reader.ReadAt(p, pos)
	if n > 0 {
		d.cipher.DecryptAt(p[:n], pos)
	}

	if err == nil && clamped {
		err = io.EOF
	}

	return n, err
}

func (d *Decryptor) Close() error {
	if closer, ok := d.reader.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
