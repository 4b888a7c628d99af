package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBuildInfo(t *testing.T, version, commit string) {
	t.Helper()
	origVersion, origCommit := Version, Commit
	Version, Commit = version, commit
	t.Cleanup(func() {
		Version, Commit = origVersion, origCommit
	})
}

func TestShort(t *testing.T) {
	withBuildInfo(t, "dev", "unknown")
	assert.Equal(t, "locastarr dev", Short())

	withBuildInfo(t, "1.2.3", "0123456789abcdef")
	assert.Equal(t, "locastarr 1.2.3 (01234567)", Short())
}

func TestString(t *testing.T) {
	withBuildInfo(t, "1.2.3", "0123456789abcdef")
	out := String()
	assert.Contains(t, out, "locastarr version 1.2.3")
	assert.Contains(t, out, "commit: 01234567")
}

func TestJSON(t *testing.T) {
	withBuildInfo(t, "1.2.3", "0123456789abcdef")
	var info Info
	require.NoError(t, json.Unmarshal([]byte(JSON()), &info))
	assert.Equal(t, "1.2.3", info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestUserAgent(t *testing.T) {
	withBuildInfo(t, "1.2.3", "unknown")
	assert.Equal(t, "locastarr/1.2.3", UserAgent())
}
