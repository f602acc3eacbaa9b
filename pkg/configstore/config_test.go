package configstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/illmade-knight/go-flowtransforms/pkg/configstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreFromConfig_LayerOrder(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	mr.Set(configstore.KeyVideoStreamURL, "from-redis")

	path := filepath.Join(t.TempDir(), "globals.yaml")
	require.NoError(t, os.WriteFile(path, []byte("FTH_FTS_VIDEO_URL: from-file\nFTH_FTS_URL: from-file\n"), 0o600))

	t.Setenv(configstore.KeyStreamServerAPIPort, "from-env")

	store, err := configstore.NewStoreFromConfig(ctx, &configstore.Config{
		Redis:  &configstore.RedisConfig{Addr: mr.Addr()},
		File:   path,
		UseEnv: true,
		Defaults: map[string]any{
			configstore.KeyStreamServerAPIPort: "from-defaults",
			configstore.KeyStreamPort:          554,
		},
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	assert.Equal(t, "from-redis", store.Get(ctx, configstore.KeyVideoStreamURL).String())
	assert.Equal(t, "from-file", store.Get(ctx, configstore.KeyStreamServerAddress).String())
	assert.Equal(t, "from-env", store.Get(ctx, configstore.KeyStreamServerAPIPort).String())
	assert.Equal(t, "554", store.Get(ctx, configstore.KeyStreamPort).String())
}

func TestNewStoreFromConfig_NoBackends(t *testing.T) {
	store, err := configstore.NewStoreFromConfig(context.Background(), &configstore.Config{}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, store.Get(context.Background(), configstore.KeyStreamPort).IsPresent())
}

func TestNewStoreFromConfig_BadFileFails(t *testing.T) {
	mr := miniredis.RunT(t)
	_, err := configstore.NewStoreFromConfig(context.Background(), &configstore.Config{
		Redis: &configstore.RedisConfig{Addr: mr.Addr()},
		File:  filepath.Join(t.TempDir(), "missing.yaml"),
	}, zerolog.Nop())
	require.Error(t, err)
}
