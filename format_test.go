package go_qmcdecoder

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		path   string
		outDir string
		want   string
		ok     bool
	}{
		{path: "music/song.qmcflac", want: "music/song.flac", ok: true},
		{path: "music/song.mflac", want: "music/song.flac", ok: true},
		{path: "music/song.qmcogg", want: "music/song.ogg", ok: true},
		{path: "music/song.mogg", want: "music/song.ogg", ok: true},
		{path: "music/song.qmc0", want: "music/song.mp3", ok: true},
		{path: "music/song.QMC3", want: "music/song.mp3", ok: true},
		{path: "music/song.qmc0", outDir: "out", want: filepath.Join("out", "song.mp3"), ok: true},
		{path: "music/song.mp3", ok: false},
		{path: "music/song", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := OutputPath(tt.path, tt.outDir)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, IsContainerPath(tt.path))
		})
	}
}

func TestContainerExtensions(t *testing.T) {
	assert.Equal(t, []string{".mflac", ".mogg", ".qmc0", ".qmc3", ".qmcflac", ".qmcogg"}, ContainerExtensions())
}

func TestStreamSize(t *testing.T) {
	r := bytes.NewReader(make([]byte, 123))
	size, err := StreamSize(r)
	require.NoError(t, err)
	assert.EqualValues(t, 123, size)

	f, err := os.CreateTemp(t.TempDir(), "stream")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	_, err = f.Write(make([]byte, 456))
	require.NoError(t, err)
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	size, err = StreamSize(f)
	require.NoError(t, err)
	assert.EqualValues(t, 456, size)
}
