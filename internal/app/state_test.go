package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/freezer/internal/pkgmgr"
)

func TestStateCommands(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("state", "frozen", "--test")
	assert.Contains(t, out, "result: null")
	assert.Contains(t, out, "frozen: freezer")
	assert.Equal(t, "freezer: not frozen\n", c.mustRun("status"))

	out = c.mustRun("state", "frozen")
	assert.Contains(t, out, "result: true")

	c.fake.Packages["jq"] = pkgmgr.PackageInfo{Version: "1.7.1"}

	out = c.mustRun("state", "restored", "--test", "-o", "json")
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Nil(t, res["result"])
	assert.Equal(t, map[string]any{"pkgs_remove": []any{"jq"}}, res["changes"])
	assert.Empty(t, c.fake.Calls)

	out = c.mustRun("state", "restored")
	assert.Contains(t, out, "result: true")
	assert.Equal(t, []string{"jq"}, c.fake.CallsFor("remove"))
}

func TestStateRestoredMissing(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("state", "restored")
	assert.Error(t, err)
	assert.Contains(t, out, "result: false")
}
