// +build !unit

package version

import (
	"strings"
	"testing"
)

// TestReleaseFlag fails on a build that still carries a development flag.
func TestReleaseFlag(t *testing.T) {
	if Flag != "" {
		t.Fatalf("Version Flag is not empty: %s", Flag)
	}
	if !strings.HasPrefix(Version, base) {
		t.Fatalf("Version %s does not start with %s", Version, base)
	}
}

func TestFull(t *testing.T) {
	cases := []struct {
		flag, commit, want string
	}{
		{"", "", "0.1.0"},
		{"rc1", "", "0.1.0-rc1"},
		{"", "1a2b3c4d5e6f", "0.1.0-1a2b3c4d"},
		{"rc1", "1a2b3c4d5e6f", "0.1.0-rc1-1a2b3c4d"},
		// too short to be a commit hash
		{"", "1a2b", "0.1.0"},
	}
	for _, c := range cases {
		if got := full("0.1.0", c.flag, c.commit); got != c.want {
			t.Errorf("full(%q, %q) = %q, want %q", c.flag, c.commit, got, c.want)
		}
	}
}
