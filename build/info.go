package build

import (
	"fmt"
	"runtime/debug"
)

// Version is stamped at link time with -ldflags "-X shadowswap/build.Version=...".
var Version = "dev"

type Info struct {
	Version    string `json:"version"`
	GoVersion  string `json:"goVersion,omitempty"`
	Path       string `json:"path,omitempty"`
	Checksum   string `json:"checksum,omitempty"`
	CommitHash string `json:"commitHash,omitempty"`
	CommitTime string `json:"commitTime,omitempty"`
	Modified   bool   `json:"modified,omitempty"`
}

func GetBuildInfo() *Info {
	result := &Info{Version: Version}

	if bi, ok := debug.ReadBuildInfo(); ok {
		result.GoVersion = bi.GoVersion
		result.Path = bi.Main.Path
		result.Checksum = bi.Main.Sum

		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				result.CommitHash = s.Value
			case "vcs.time":
				result.CommitTime = s.Value
			case "vcs.modified":
				result.Modified = s.Value == "true"
			}
		}
	}
	return result
}

func (i *Info) String() string {
	commit := i.CommitHash
	if commit == "" {
		commit = "unknown"
	} else if len(commit) > 12 {
		commit = commit[:12]
	}
	if i.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("shadowswap %s (%s)", i.Version, commit)
}
