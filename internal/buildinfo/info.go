// Package buildinfo holds version metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/cleared-dev/recon/internal/buildinfo.Version=v0.3.0"
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line shown by `recon --version`. Unstamped
// builds fall back to the VCS revision recorded by the go tool.
func String() string {
	commit := Commit
	if commit == "none" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					commit = s.Value[:7]
				}
			}
		}
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, commit, Date)
}
