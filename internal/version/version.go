// Package version exposes build information injected at build time via
// -ldflags "-X" on Version, Commit, and Date.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// Injected at build time; unset in development builds.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// ApplicationName is the canonical name of this application.
const ApplicationName = "locastarr"

// Info is the structured form of the build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// GetInfo returns the build information as a structured type.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
	}
}

// String returns the long human-readable form used by the version command.
func String() string {
	info := GetInfo()
	if Commit != "unknown" && len(Commit) >= 8 {
		return fmt.Sprintf("%s version %s (commit: %s, built: %s, %s)",
			ApplicationName, info.Version, info.Commit[:8], info.Date, info.GoVersion)
	}
	return fmt.Sprintf("%s version %s (%s)", ApplicationName, info.Version, info.GoVersion)
}

// Short returns the form used for cobra's --version output.
func Short() string {
	if Commit != "unknown" && len(Commit) >= 8 {
		return fmt.Sprintf("%s %s (%s)", ApplicationName, Version, Commit[:8])
	}
	return fmt.Sprintf("%s %s", ApplicationName, Version)
}

// JSON returns the build information as indented JSON.
func JSON() string {
	data, err := json.MarshalIndent(GetInfo(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// UserAgent identifies outbound requests that do not need to present a
// browser client.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", ApplicationName, Version)
}
