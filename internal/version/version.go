// Package version holds the build-time version variables for the orgtrail
// binary. Local builds keep the zero values; release builds inject real ones
// with -ldflags "-X github.com/pankaj-dahiya-devops/orgtrail/internal/version.Version=...".
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns the formatted version string printed by orgtrail version.
func Info() string {
	return fmt.Sprintf(
		"orgtrail version %s\ncommit: %s\nbuilt: %s\n",
		Version,
		Commit,
		Date,
	)
}
