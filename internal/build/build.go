// Package build describes the running binary. The variables are set with -ldflags
// by release builds.
package build

import (
	"runtime/debug"
	"time"
)

var (
	commit  = ""
	date    = ""
	version = "dev"
	repoURL = "https://github.com/ItsNotGoodName/composer"
)

var Current = load()

type Build struct {
	Commit     string    `json:"commit,omitempty"`
	Version    string    `json:"version,omitempty"`
	Date       time.Time `json:"date,omitempty"`
	GoVersion  string    `json:"go_version,omitempty"`
	RepoURL    string    `json:"repo_url,omitempty"`
	CommitURL  string    `json:"commit_url,omitempty"`
	ReleaseURL string    `json:"release_url,omitempty"`
}

func load() Build {
	b := Build{
		Commit:  commit,
		Version: version,
		RepoURL: repoURL,
	}
	b.Date, _ = time.Parse(time.RFC3339, date)

	// Fall back to the VCS stamp of go build when ldflags were not set.
	if info, ok := debug.ReadBuildInfo(); ok {
		b.GoVersion = info.GoVersion
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.Date.IsZero() {
					b.Date, _ = time.Parse(time.RFC3339, s.Value)
				}
			}
		}
	}

	if b.Commit != "" {
		b.CommitURL = repoURL + "/tree/" + b.Commit
	}
	if b.Version != "dev" {
		b.ReleaseURL = repoURL + "/releases/tag/" + b.Version
	}
	return b
}
