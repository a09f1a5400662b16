// SPDX-License-Identifier: MIT
//
// Package build carries the metadata embedded into the micscope binary at
// link time. The values are set with -ldflags, for example:
//
//	go build -ldflags "-X micscope/pkg/build.buildName=micscope \
//	  -X micscope/pkg/build.buildVersion=0.1.0 ..."
//
// Development builds run with the "unknown" placeholders.
package build

import "fmt"

// Description is the one-line summary shown by the CLI.
const Description = "Real-time audio spectrum display"

// Info is the build metadata of the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:        "micscope",
		Description: Description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
	}
}

// Initialize validates and copies build information from ldflags variables
// into the build info. It should be called early in program startup. When a
// flag is missing the placeholders are kept and an error is returned.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildFlags
}

// String formats the build information for the version output.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
