// Package version holds build metadata for the awsmcp binaries, set through
// -ldflags at release time.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns the multi-line string printed by awsmcp version.
func Info() string {
	return fmt.Sprintf("awsmcp %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}

// UserAgent identifies the client in outgoing requests.
func UserAgent() string {
	return "awsmcp/" + Version
}
