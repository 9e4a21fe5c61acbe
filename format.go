package go_qmcdecoder

import (
	"path/filepath"
	"sort"
	"strings"
)

// AudioFormat is the format of the payload hidden inside a container. The decoder never looks
// at the payload itself, the format only decides the output file extension.
type AudioFormat string

const (
	AudioFormatFlac AudioFormat = "flac"
	AudioFormatOgg  AudioFormat = "ogg"
	AudioFormatMp3  AudioFormat = "mp3"
)

func (f AudioFormat) Extension() string {
	return "." + string(f)
}

var containerFormats = map[string]AudioFormat{
	".qmcflac": AudioFormatFlac,
	".mflac":   AudioFormatFlac,
	".qmcogg":  AudioFormatOgg,
	".mogg":    AudioFormatOgg,
	".qmc0":    AudioFormatMp3,
	".qmc3":    AudioFormatMp3,
}

// FormatFromExtension maps a container extension (with the leading dot, any case) to the
// format of its payload.
func FormatFromExtension(ext string) (AudioFormat, bool) {
	f, ok := containerFormats[strings.ToLower(ext)]
	return f, ok
}

// IsContainerPath reports whether the file name carries a known container extension.
func IsContainerPath(path string) bool {
	_, ok := FormatFromExtension(filepath.Ext(path))
	return ok
}

// OutputPath returns the path of the decoded file for the given container: same directory
// (or outDir when not empty), same base name, translated extension.
func OutputPath(path, outDir string) (string, bool) {
	ext := filepath.Ext(path)
	f, ok := FormatFromExtension(ext)
	if !ok {
		return "", false
	}

	out := strings.TrimSuffix(path, ext) + f.Extension()
	if len(outDir) > 0 {
		out = filepath.Join(outDir, filepath.Base(out))
	}

	return out, true
}

// ContainerExtensions lists the known container extensions, sorted.
func ContainerExtensions() []string {
	exts := make([]string, 0, len(containerFormats))
	for ext := range containerFormats {
		exts = append(exts, ext)
	}

	sort.Strings(exts)
	return exts
}
