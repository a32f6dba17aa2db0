// Package version reports build information of the running diggit binary.
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "<unknown>"

// Set at link time with -ldflags "-X"; filled from the embedded build info otherwise.
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// BinaryGitHash is the Git hash of the diggit binary file which is executing.
var BinaryGitHash = unknown

// InitBinaryVersion fills unset version fields from the module build info.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}

	if BinaryGitHash == unknown {
		BinaryGitHash = Commit
	}
}

// String is the one-line version banner.
func String() string {
	return fmt.Sprintf("diggit %s (commit: %s, built: %s)", Version, Commit, Date)
}
