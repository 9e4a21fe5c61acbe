package go_qmcdecoder

import (
	"fmt"
	"runtime"
)

// version is set at build time with -ldflags "-X github.com/devgianlu/go-qmcdecoder.version=..."
var version = "dev"

func VersionNumberString() string {
	return version
}

func VersionString() string {
	return fmt.Sprintf("go-qmcdecoder %s", VersionNumberString())
}

func SystemInfoString() string {
	return fmt.Sprintf("%s; Go %s (%s/%s)", VersionString(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
