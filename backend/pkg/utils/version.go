package utils

import (
	"fmt"
	"runtime/debug"
)

// Version is overridden at build time with -ldflags "-X redalert/backend/pkg/utils.Version=...".
//
//nolint:gochecknoglobals // Set by the linker
var Version = "0.1.0"

func getVCSInfo() (commit, buildTime, modified string) {
	commit, buildTime, modified = "unknown", "unknown", "false"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, buildTime, modified
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
			if len(commit) > 7 {
				commit = commit[:7]
			}
		case "vcs.time":
			buildTime = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}

	return commit, buildTime, modified
}

func dirtySuffix(modified string) string {
	if modified == "true" {
		return "-dirty"
	}

	return ""
}

// GetVersionShort returns "v<version> (<commit>)".
func GetVersionShort() string {
	commit, _, modified := getVCSInfo()

	return fmt.Sprintf("v%s (%s%s)", Version, commit, dirtySuffix(modified))
}

// GetBuildVersion returns the short version followed by the build time.
func GetBuildVersion() string {
	commit, buildTime, modified := getVCSInfo()

	return fmt.Sprintf("v%s (%s%s) built at %s", Version, commit, dirtySuffix(modified), buildTime)
}

// GetBuildInfo returns version metadata as a flat map, used by the health endpoint.
func GetBuildInfo() map[string]string {
	commit, buildTime, modified := getVCSInfo()

	info := map[string]string{
		"version":      Version,
		"commit":       commit,
		"build_time":   buildTime,
		"vcs_modified": modified,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info["go_version"] = bi.GoVersion
	}

	return info
}
