package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/freezer/internal/pkgmgr"
	"github.com/blackwell-systems/freezer/internal/pkgmgr/pkgmgrtest"
	"github.com/blackwell-systems/freezer/internal/snapshots"
)

func setupRunner(t *testing.T) (*Runner, *pkgmgrtest.Fake, *snapshots.Manager) {
	t.Helper()

	fake := pkgmgrtest.New(
		pkgmgr.Packages{"git": {Version: "2.43.0"}, "curl": {Version: "8.5.0"}},
		pkgmgr.Repos{"homebrew/core": {URL: "https://github.com/Homebrew/homebrew-core", Enabled: true}},
	)
	snaps, err := snapshots.New(fake, snapshots.Options{CacheDir: t.TempDir()})
	require.NoError(t, err)

	return New(snaps, nil), fake, snaps
}

func TestFrozen(t *testing.T) {
	ctx := context.Background()

	t.Run("test mode", func(t *testing.T) {
		r, _, snaps := setupRunner(t)

		res := r.Frozen(ctx, "", false, true)
		assert.Nil(t, res.Result)
		assert.True(t, res.Succeeded())
		assert.Equal(t, "freezer", res.Changes["frozen"])
		assert.False(t, snaps.Status(""))
	})

	t.Run("freezes", func(t *testing.T) {
		r, _, snaps := setupRunner(t)

		res := r.Frozen(ctx, "base", false, false)
		require.NotNil(t, res.Result)
		assert.True(t, *res.Result)
		assert.Equal(t, "base", res.Name)
		assert.Equal(t, map[string]any{"frozen": "base"}, res.Changes)
		assert.True(t, snaps.Status("base"))
	})

	t.Run("already frozen", func(t *testing.T) {
		r, _, _ := setupRunner(t)

		r.Frozen(ctx, "", false, false)
		res := r.Frozen(ctx, "", false, false)
		require.NotNil(t, res.Result)
		assert.True(t, *res.Result)
		assert.Empty(t, res.Changes)
		assert.Contains(t, res.Comment, "already present")
	})

	t.Run("force refreezes", func(t *testing.T) {
		r, _, _ := setupRunner(t)

		r.Frozen(ctx, "", false, false)
		res := r.Frozen(ctx, "", true, false)
		require.NotNil(t, res.Result)
		assert.True(t, *res.Result)
		assert.Equal(t, "freezer", res.Changes["frozen"])
	})

	t.Run("freeze failure", func(t *testing.T) {
		r, fake, _ := setupRunner(t)
		fake.ListErr = errors.New("brew not found")

		res := r.Frozen(ctx, "", false, false)
		require.NotNil(t, res.Result)
		assert.False(t, *res.Result)
		assert.Contains(t, res.Comment, "brew not found")
	})
}

func TestRestored(t *testing.T) {
	ctx := context.Background()

	t.Run("missing snapshot", func(t *testing.T) {
		r, _, _ := setupRunner(t)

		res := r.Restored(ctx, "", false, false)
		require.NotNil(t, res.Result)
		assert.False(t, *res.Result)
		assert.Contains(t, res.Comment, "not found")
	})

	t.Run("in sync", func(t *testing.T) {
		r, _, _ := setupRunner(t)
		r.Frozen(ctx, "", false, false)

		res := r.Restored(ctx, "", false, false)
		require.NotNil(t, res.Result)
		assert.True(t, *res.Result)
		assert.Empty(t, res.Changes)
		assert.Contains(t, res.Comment, "already in sync")
	})

	t.Run("test mode reports pending changes", func(t *testing.T) {
		r, fake, _ := setupRunner(t)
		r.Frozen(ctx, "", false, false)
		fake.Packages["jq"] = pkgmgr.PackageInfo{Version: "1.7.1"}

		res := r.Restored(ctx, "", false, true)
		assert.Nil(t, res.Result)
		assert.Equal(t, []string{"jq"}, res.Changes["pkgs_remove"])
		assert.Empty(t, fake.Calls)
	})

	t.Run("restores", func(t *testing.T) {
		r, fake, snaps := setupRunner(t)
		r.Frozen(ctx, "", false, false)
		delete(fake.Packages, "git")

		res := r.Restored(ctx, "", true, false)
		require.NotNil(t, res.Result)
		assert.True(t, *res.Result)
		assert.Equal(t, map[string]any{"pkgs_add": []string{"git"}}, res.Changes)
		assert.False(t, snaps.Status(""), "clean should remove the snapshot")
	})

	t.Run("item failure", func(t *testing.T) {
		r, fake, _ := setupRunner(t)
		r.Frozen(ctx, "", false, false)
		delete(fake.Packages, "git")
		fake.Fail["install:git"] = errors.New("no bottle available")

		res := r.Restored(ctx, "", false, false)
		require.NotNil(t, res.Result)
		assert.False(t, *res.Result)
		assert.Contains(t, res.Comment, "Error adding git package")
	})
}
