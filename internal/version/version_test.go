package version

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBuildInfo(t *testing.T, v, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = v, commit, date
	t.Cleanup(func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	})
}

func TestGetInfo(t *testing.T) {
	withBuildInfo(t, "1.0.0", "abc123def456", "2024-01-01T12:00:00Z")

	info := GetInfo()
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "abc123def456", info.Commit)
	assert.Equal(t, "2024-01-01T12:00:00Z", info.Date)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		want   string
	}{
		{"long commit is shortened", "abc123def456", "codemuse 1.2.3 (abc123de) built 2024-01-01"},
		{"short commit is kept", "abc", "codemuse 1.2.3 (abc) built 2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuildInfo(t, "1.2.3", tt.commit, "2024-01-01")
			assert.Contains(t, GetInfo().String(), tt.want)
		})
	}
}

func TestInfoShortAndJSON(t *testing.T) {
	withBuildInfo(t, "2.0.0", "deadbeef", "today")
	info := GetInfo()
	assert.Equal(t, "2.0.0", info.Short())

	data, err := json.Marshal(info)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"go_version":`)
	assert.Contains(t, string(data), `"version":"2.0.0"`)
}

func TestFillFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/security-union/codemuse", Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2025-03-01T10:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	t.Run("unstamped build", func(t *testing.T) {
		info := Info{Version: "dev", Commit: "unknown", Date: "unknown"}
		info.fill(bi)
		assert.Equal(t, "v0.4.0", info.Version)
		assert.Equal(t, "0123456789abcdef", info.Commit)
		assert.Equal(t, "2025-03-01T10:00:00Z", info.Date)
		assert.Contains(t, info.String(), "(01234567-dirty)")
	})

	t.Run("ldflags win", func(t *testing.T) {
		info := Info{Version: "1.0.0", Commit: "feedface", Date: "today"}
		info.fill(bi)
		assert.Equal(t, "1.0.0", info.Version)
		assert.Equal(t, "feedface", info.Commit)
		assert.Equal(t, "today", info.Date)
	})

	t.Run("devel module version is ignored", func(t *testing.T) {
		info := Info{Version: "dev", Commit: "unknown", Date: "unknown"}
		info.fill(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
		assert.Equal(t, "dev", info.Version)
		assert.False(t, info.Modified)
	})
}

func TestDefaults(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, Commit)
	assert.NotEmpty(t, Date)
}
