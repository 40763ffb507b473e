// Package version holds build metadata injected via ldflags:
//
//	go build -ldflags "-X github.com/kailas-cloud/receiptdex/internal/version.Version=v0.3.0 \
//	    -X github.com/kailas-cloud/receiptdex/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build as "version (commit, date)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
