package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version string = SetupSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// SetupSemVer is the current version of kiisetup.
	// It's the Semantic Version of the software.
	SetupSemVer = "0.1.0"
)

// Info is the machine readable output of `kiisetup version --verbose`.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
}

// Current returns the build information of this binary.
func Current() Info {
	return Info{Version: Version, GitCommit: GitCommit}
}
