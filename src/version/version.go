package version

// Flag marks a development build. It must be empty on release branches.
const Flag = ""

// base is the release number the full Version is derived from.
const base = "0.1.0"

var (
	// Version is the full version string
	Version = base

	// GitCommit is set with --ldflags "-X github.com/mosaicnetworks/party/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	Version = full(base, Flag, GitCommit)
}

// full appends the flag and the short commit hash, when there are any.
func full(release, flag, commit string) string {
	v := release
	if flag != "" {
		v += "-" + flag
	}
	if len(commit) >= 8 {
		v += "-" + commit[:8]
	}
	return v
}
