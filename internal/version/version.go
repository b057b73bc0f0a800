// Package version reports build metadata for file2sql. Release builds set
// the values through -ldflags; other builds fall back to the module info
// embedded by the Go toolchain.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/hupe1980/file2sql/internal/version.version=...".
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info holds the build metadata for the binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	SQLDriver string `json:"sqlDriver,omitempty"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	info := Info{
		Version:   version,
		GitCommit: shortCommit(gitCommit),
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.SQLDriver = depVersion(bi, "modernc.org/sqlite")

		if info.GitCommit == "none" {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info.GitCommit = shortCommit(s.Value)
				}
			}
		}
	}

	return info
}

// String returns a human-readable single-line version string.
func (i Info) String() string {
	s := fmt.Sprintf("file2sql %s (commit: %s, built: %s, %s %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
	if i.SQLDriver != "" {
		s += ", sqlite " + i.SQLDriver
	}

	return s + ")"
}

// JSON returns the version info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}

	return string(data), nil
}

func depVersion(bi *debug.BuildInfo, path string) string {
	for _, d := range bi.Deps {
		if d.Path == path {
			if d.Replace != nil {
				return d.Replace.Version
			}

			return d.Version
		}
	}

	return ""
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
