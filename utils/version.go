package utils

import "fmt"

var (
	BuildVersion string
	BuildRelease string
)

// GetBuildVersion returns the version stamped in by the linker, or "git-dev"
// for local builds.
func GetBuildVersion() string {
	if BuildRelease != "" {
		return fmt.Sprintf("%s (%s)", BuildRelease, BuildVersion)
	}

	if BuildVersion == "" {
		return "git-dev"
	}

	return fmt.Sprintf("git-%s", BuildVersion)
}
