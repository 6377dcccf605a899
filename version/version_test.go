package version

import (
	"strings"
	"testing"
	"time"
)

func restore() func() {
	v, c, b := Version, GitCommit, BuildTime
	return func() { Version, GitCommit, BuildTime = v, c, b }
}

func TestGetUsesLdflags(t *testing.T) {
	defer restore()()
	Version = "v1.2.0"
	GitCommit = "abcdef1234567"
	BuildTime = "2026-01-02T03:04:05Z"

	info := Get()
	if info.Version != "v1.2.0" {
		t.Errorf("expected v1.2.0, got %s", info.Version)
	}
	if info.GitCommit != "abcdef1" {
		t.Errorf("expected commit truncated to 7 chars, got %s", info.GitCommit)
	}
	if !info.BuildDate.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("unexpected build date %v", info.BuildDate)
	}
}

func TestGetIgnoresBadBuildTime(t *testing.T) {
	defer restore()()
	BuildTime = "yesterday"
	GitCommit = "x"
	if info := Get(); info.Version == "" {
		t.Error("expected a version")
	}
}

func TestShortAndString(t *testing.T) {
	info := Info{Version: "v1.0.0"}
	if info.Short() != "v1.0.0" {
		t.Errorf("unexpected short version %q", info.Short())
	}

	info = Info{
		Version:   "v1.0.0",
		GitCommit: "abc1234",
		Dirty:     true,
		GoVersion: "go1.26.0",
		BuildDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if info.Short() != "v1.0.0-abc1234-dirty" {
		t.Errorf("unexpected short version %q", info.Short())
	}
	s := info.String()
	for _, want := range []string{"v1.0.0-abc1234-dirty", "built 2026-05-01T00:00:00Z", "go1.26.0"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in %q", want, s)
		}
	}
}
