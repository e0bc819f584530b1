package board

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/postsync/internal/core/config"
	"github.com/hay-kot/postsync/internal/core/notify"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/reconcile"
)

func testConfig(t *testing.T, backend config.Backend) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Store.Backend = backend
	return &cfg
}

func TestNewApp_Backends(t *testing.T) {
	for _, backend := range []config.Backend{config.BackendSQLite, config.BackendJSON} {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, backend)

			app, err := NewApp(ctx, cfg, zerolog.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = app.Close() })

			posts, err := app.Store.ReadAll(ctx)
			require.NoError(t, err)
			assert.Len(t, posts, 3, "empty store is seeded")

			if backend == config.BackendSQLite {
				assert.NotNil(t, app.Notifications)
			} else {
				assert.Nil(t, app.Notifications)
				assert.FileExists(t, cfg.PostsFile())
			}
		})
	}
}

func TestNewApp_SeedDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendJSON)
	cfg.Store.Seed = false

	app, err := NewApp(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)

	posts, err := app.Store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestNewApp_CorruptStoreStillOpens(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendJSON)
	require.NoError(t, os.WriteFile(cfg.PostsFile(), []byte("{not json"), 0o644))

	app, err := NewApp(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)

	notes := notify.NewBuffer()
	tab, err := app.OpenTab(ctx, notes)
	t.Cleanup(func() { _ = tab.Close() })

	require.ErrorIs(t, err, post.ErrStoreUnavailable)
	assert.Equal(t, reconcile.StateFailed, tab.State())
	assert.Equal(t, []string{TitleLoadFail}, titles(notes.Drain()))
}

func TestApp_TabsInOneDataDirSync(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendSQLite)
	cfg.Store.Seed = false

	// Two apps on one data dir behave like two processes.
	first, err := NewApp(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	second, err := NewApp(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	one, err := first.OpenTab(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = one.Close() })

	two, err := second.OpenTab(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = two.Close() })

	require.True(t, one.Synced())
	assert.NotEqual(t, one.ID(), two.ID())

	created, err := one.Create(ctx, validInput())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := two.Get(created.ID)
		return ok
	}, waitFor, 10*time.Millisecond)

	ok, err := one.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := two.Get(created.ID)
		return !ok
	}, waitFor, 10*time.Millisecond)

	entries, err := os.ReadDir(filepath.Join(cfg.ChannelsDir(), cfg.Relay.Channel))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestApp_StartSweepWithoutRelay(t *testing.T) {
	cfg := testConfig(t, config.BackendJSON)
	cfg.Relay.Enabled = false

	app, err := NewApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	// returns immediately
	app.StartSweep(context.Background())
}
