package envmeta

import "fmt"

// Version of the envmeta library. Distinct from the envelope's own version
// field, which tracks the wire format (see DefaultVersion).
const Version = "1.0.0"

// Build information (set by ldflags during build)
var (
	GitCommit string
	BuildDate string
)

// VersionInfo returns formatted version information
func VersionInfo() string {
	if GitCommit == "" {
		return fmt.Sprintf("envmeta v%s", Version)
	}
	return fmt.Sprintf("envmeta v%s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}
