package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withBuild(t *testing.T, version, commit string, bi *debug.BuildInfo) {
	t.Helper()
	oldVersion, oldCommit, oldRead := Version, Commit, readBuildInfo
	t.Cleanup(func() { Version, Commit, readBuildInfo = oldVersion, oldCommit, oldRead })
	Version, Commit = version, commit
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestGetBuildInfo(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		commit      string
		bi          *debug.BuildInfo
		wantVersion string
		wantCommit  string
	}{
		{
			name:        "ldflags win",
			version:     "v1.4.0",
			commit:      "abc1234",
			bi:          &debug.BuildInfo{Main: debug.Module{Version: "v1.3.0"}},
			wantVersion: "v1.4.0",
			wantCommit:  "abc1234",
		},
		{
			name:    "go install fills in",
			version: "dev",
			commit:  "unknown",
			bi: &debug.BuildInfo{
				Main:     debug.Module{Version: "v1.3.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef0123"}},
			},
			wantVersion: "v1.3.0",
			wantCommit:  "0123456789ab",
		},
		{
			name:        "local build stays dev",
			version:     "dev",
			commit:      "unknown",
			bi:          &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			wantVersion: "dev",
			wantCommit:  "unknown",
		},
		{
			name:        "no build info",
			version:     "dev",
			commit:      "unknown",
			wantVersion: "dev",
			wantCommit:  "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuild(t, tt.version, tt.commit, tt.bi)
			info := GetBuildInfo()
			if info.Version != tt.wantVersion || info.Commit != tt.wantCommit {
				t.Errorf("GetBuildInfo() = %s (%s), want %s (%s)", info.Version, info.Commit, tt.wantVersion, tt.wantCommit)
			}
			if GetShortVersion() != tt.wantVersion {
				t.Errorf("GetShortVersion() = %q", GetShortVersion())
			}
		})
	}
}

func TestGetVersionString(t *testing.T) {
	withBuild(t, "dev", "unknown", nil)
	if got := GetVersionString(); !strings.HasPrefix(got, "tablero dev (unknown) built with ") {
		t.Errorf("dev version string = %q", got)
	}

	withBuild(t, "v1.4.0", "abc1234", nil)
	if got := GetVersionString(); !strings.HasPrefix(got, "tablero v1.4.0 (abc1234) built on ") {
		t.Errorf("release version string = %q", got)
	}
}
