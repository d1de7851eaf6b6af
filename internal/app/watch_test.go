package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchStopNotRunning(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("watch", "--stop", "--pid-file", filepath.Join(c.dir, "watch.pid"))
	assert.Equal(t, "Watcher is not running\n", out)
}

func TestWatchRequiresFrozenState(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("watch", "--pid-file", filepath.Join(c.dir, "watch.pid"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoFileExists(t, filepath.Join(c.dir, "watch.pid"))
}
