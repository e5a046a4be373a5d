package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, version, commit, buildTime string, info *debug.BuildInfo) {
	t.Helper()
	oldVersion, oldCommit, oldTime, oldRead := Version, GitCommit, BuildTime, readBuildInfo
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, readBuildInfo = oldVersion, oldCommit, oldTime, oldRead
	})
	Version, GitCommit, BuildTime = version, commit, buildTime
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
}

func TestReleaseBuild(t *testing.T) {
	withBuild(t, "v1.2.0", "abcdef1234567", "2024-05-01T10:00:00Z", nil)

	info := GetBuildInfo()
	assert.Equal(t, "v1.2.0", info.Version)
	assert.Equal(t, "abcdef1234567", info.GitCommit)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), info.BuildTime)
	assert.False(t, info.Dirty)
	assert.True(t, IsRelease())
	assert.Equal(t, "v1.2.0 (abcdef1)", GetShortVersion())
}

func TestDevBuildFromVCS(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown", &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	assert.Equal(t, "dev-0123456", GetVersion())
	assert.Equal(t, "0123456789abcdef", GetGitCommit())
	assert.Equal(t, "dev-0123456", GetShortVersion())
	assert.False(t, IsRelease())
	assert.True(t, IsDirty())
	assert.True(t, GetBuildInfo().BuildTime.IsZero())
}

func TestModuleVersion(t *testing.T) {
	withBuild(t, "", "", "", &debug.BuildInfo{Main: debug.Module{Version: "v0.3.1"}})

	assert.Equal(t, "v0.3.1", GetVersion())
	assert.Equal(t, "unknown", GetGitCommit())
	assert.Equal(t, "v0.3.1", GetShortVersion())
	assert.True(t, IsRelease())
}

func TestNoBuildInfo(t *testing.T) {
	withBuild(t, "dev", "unknown", "not a time", nil)

	assert.Equal(t, "dev", GetVersion())
	assert.Equal(t, "unknown", GetGitCommit())
	assert.False(t, IsDirty())
	assert.False(t, IsRelease())
}
