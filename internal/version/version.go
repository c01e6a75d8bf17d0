package version

import "fmt"

// Overridden with -ldflags "-X github.com/ericogr/idlerpg-arena/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = ""
	Dirty   = "false"
)

// Info is the build metadata reported by the status API and the logs.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date,omitempty"`
	Dirty   bool   `json:"dirty"`
}

func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date, Dirty: Dirty == "true"}
}

func (i Info) String() string {
	s := fmt.Sprintf("%s (%s)", i.Version, i.Commit)
	if i.Dirty {
		s += " dirty"
	}
	return s
}
