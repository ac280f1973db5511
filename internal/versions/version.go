// Package versions reports build information and compares release versions.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Build information, set with -ldflags "-X github.com/hustsync/hustsync/internal/versions.Version=..."
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// VersionInfo describes the running binary
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the build information. Missing commit data is
// filled in from the VCS stamp embedded by the Go toolchain.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			}
		}
	}
	return info
}

// UserAgent is the User-Agent sent by hustsync HTTP clients
func UserAgent() string {
	return "hustsync/" + Version
}

// ParseUserAgent extracts the version from a hustsync User-Agent.
// It returns "" for any other client.
func ParseUserAgent(ua string) string {
	product, _, _ := strings.Cut(ua, " ")
	name, version, ok := strings.Cut(product, "/")
	if !ok || name != "hustsync" {
		return ""
	}
	return version
}
