package contracts

import (
	"fmt"
	"runtime"
)

// Version is the current version of the pipeline binaries.
const Version = "0.3.0"

// DataFormatVersion tracks the canonical parquet layout. Bump it when the
// column-naming convention or physical encodings change.
const DataFormatVersion = "v2"

// FullVersion returns the version with build environment details, for
// startup logs.
func FullVersion() string {
	return fmt.Sprintf("%s (%s, %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
