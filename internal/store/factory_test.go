package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/mindatlas/internal/logger"
	"github.com/pbaille/mindatlas/internal/store/objectstore"
)

func TestPlatformResolve(t *testing.T) {
	assert.Equal(t, PlatformWeb, PlatformWeb.Resolve())
	assert.Equal(t, PlatformNative, PlatformNative.Resolve())
	if nativeAvailable {
		assert.Equal(t, PlatformNative, PlatformAuto.Resolve())
		assert.Equal(t, PlatformNative, Platform("").Resolve())
	} else {
		assert.Equal(t, PlatformWeb, PlatformAuto.Resolve())
	}
	assert.False(t, Platform("desktop").Valid())
}

func TestNewSelectsBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	repo, platform, err := New(Options{Platform: PlatformWeb, Path: path}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, PlatformWeb, platform)
	assert.IsType(t, &objectstore.Store{}, repo)
	assert.False(t, repo.IsReady(), "New does not initialize")

	if nativeAvailable {
		repo, platform, err = New(Options{Platform: PlatformNative, Path: path}, logger.Nop())
		require.NoError(t, err)
		assert.Equal(t, PlatformNative, platform)
		assert.IsType(t, &SQLiteStore{}, repo)
	}

	_, _, err = New(Options{Platform: "desktop", Path: path}, logger.Nop())
	assert.Error(t, err)
	_, _, err = New(Options{Platform: PlatformWeb}, logger.Nop())
	assert.Error(t, err)
}

func TestOpenInitializes(t *testing.T) {
	ctx := context.Background()
	repo, platform, err := Open(ctx, Options{Platform: PlatformAuto, Path: filepath.Join(t.TempDir(), "test.db")}, logger.Nop())
	require.NoError(t, err)
	defer repo.Close()

	assert.True(t, repo.IsReady())
	assert.Equal(t, PlatformAuto.Resolve(), platform)

	v, ok := repo.(Versioned)
	require.True(t, ok)
	version, err := v.Version(ctx)
	require.NoError(t, err)
	assert.Positive(t, version)
}

func TestOpenSurfacesInitializeFailure(t *testing.T) {
	// a directory cannot be opened as a database file
	_, _, err := Open(context.Background(), Options{Platform: PlatformAuto, Path: t.TempDir()}, logger.Nop())
	assert.Error(t, err)
}
