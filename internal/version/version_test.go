package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBanner(t *testing.T) {
	oldV, oldSHA, oldBuilt := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldBuilt })

	assert.Equal(t, "tofscan dev (unknown, built unknown)", Banner("tofscan"))

	Version, GitSHA, BuildTime = "0.3.1", "0123456789abcdef", "2026-01-02T03:04:05Z"
	assert.Equal(t, "gridmap 0.3.1 (0123456, built 2026-01-02T03:04:05Z)", Banner("gridmap"))
}
