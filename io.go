package go_qmcdecoder

import "io"

type SizedReadSeeker interface {
	io.ReadSeeker

	Size() int64
}

// StreamSize returns the total length of the stream. Streams that know their size are asked
// directly, any other stream is seeked to its end: the position is not preserved in that case.
func StreamSize(r io.Seeker) (int64, error) {
	if sized, ok := r.(SizedReadSeeker); ok {
		return sized.Size(), nil
	}

	return r.Seek(0, io.SeekEnd)
}
