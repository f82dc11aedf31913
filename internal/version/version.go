package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time variables set via ldflags, e.g.
// -X tablero/internal/version.Version=v1.4.0
var (
	// Version is the semantic version of the application
	Version = "dev"

	// Commit is the git commit hash
	Commit = "unknown"

	// Date is the build date
	Date = "unknown"

	// GoVersion is the Go version used to build
	GoVersion = runtime.Version()
)

// readBuildInfo is swapped out in tests.
var readBuildInfo = debug.ReadBuildInfo

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo returns structured build information. Binaries built with
// `go install tablero@vX` carry no ldflags, so the module version and VCS
// stamp fill in whatever ldflags left at its default.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value
				if len(info.Commit) > 12 {
					info.Commit = info.Commit[:12]
				}
			}
		case "vcs.time":
			if info.Date == "unknown" && s.Value != "" {
				info.Date = s.Value
			}
		}
	}
	return info
}

// GetVersionString returns a formatted version string
func GetVersionString() string {
	info := GetBuildInfo()
	if info.Version == "dev" {
		return fmt.Sprintf("tablero %s (%s) built with %s on %s",
			info.Version, info.Commit, info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("tablero %s (%s) built on %s with %s for %s",
		info.Version, info.Commit, info.Date, info.GoVersion, info.Platform)
}

// GetShortVersion returns just the version number
func GetShortVersion() string {
	return GetBuildInfo().Version
}
