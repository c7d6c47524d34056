// Package buildinfo carries version metadata stamped at link time:
//
//	go build -ldflags "-X github.com/justlikeclockwork/clockwork/internal/buildinfo.Version=1.2.0"
package buildinfo

import "fmt"

var (
	Version   = "N/A"
	BuildDate = "N/A"
	Commit    = "N/A"
)

func String() string {
	return fmt.Sprintf("Build version: %s\nBuild date: %s\nBuild commit: %s", Version, BuildDate, Commit)
}
