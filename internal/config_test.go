package internal_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/pvp-arena/internal"
)

// TestDefaultConfig 測試預設配置
func TestDefaultConfig(t *testing.T) {
	cfg := internal.DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Arena.ConnectionTimeout)
	assert.Equal(t, 10*time.Second, cfg.Arena.HeartbeatInterval)
	assert.Len(t, cfg.Arena.Rooms, 4)
	assert.Equal(t, "Alpha Arena", cfg.Arena.Rooms[0].Name)
	require.NoError(t, cfg.Validate())
}

// TestLoadConfig 測試配置檔載入
func TestLoadConfig(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := internal.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, internal.DefaultConfig().Arena.ConnectionTimeout, cfg.Arena.ConnectionTimeout)
	})

	t.Run("yaml overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
arena:
  connection_timeout: 60s
  heartbeat_interval: 20s
  rooms:
    - id: 1
      name: Test Arena
      stake: 500
log:
  level: debug
`), 0o644))

		cfg, err := internal.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 60*time.Second, cfg.Arena.ConnectionTimeout)
		assert.Equal(t, 20*time.Second, cfg.Arena.HeartbeatInterval)
		require.Len(t, cfg.Arena.Rooms, 1)
		assert.Equal(t, "Test Arena", cfg.Arena.Rooms[0].Name)
		assert.Equal(t, int64(500), cfg.Arena.Rooms[0].Stake)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("NATS_URL env overrides file", func(t *testing.T) {
		t.Setenv("NATS_URL", "nats://broker:4222")

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("nats:\n  url: nats://file:4222\n"), 0o644))

		cfg, err := internal.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

		_, err := internal.LoadConfig(path)
		require.Error(t, err)
	})
}

// TestConfig_Validate 測試配置一致性檢查
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *internal.Config)
		wantErr bool
	}{
		{"defaults are valid", func(cfg *internal.Config) {}, false},
		{
			"timeout exactly twice the interval is allowed",
			func(cfg *internal.Config) {
				cfg.Arena.ConnectionTimeout = 20 * time.Second
				cfg.Arena.HeartbeatInterval = 10 * time.Second
			},
			false,
		},
		{
			"timeout below twice the interval is rejected",
			func(cfg *internal.Config) {
				cfg.Arena.ConnectionTimeout = 15 * time.Second
				cfg.Arena.HeartbeatInterval = 10 * time.Second
			},
			true,
		},
		{
			"zero heartbeat interval is rejected",
			func(cfg *internal.Config) { cfg.Arena.HeartbeatInterval = 0 },
			true,
		},
		{
			"empty room roster is rejected",
			func(cfg *internal.Config) { cfg.Arena.Rooms = nil },
			true,
		},
		{
			"duplicate room ids are rejected",
			func(cfg *internal.Config) {
				cfg.Arena.Rooms = []internal.RoomConfig{
					{ID: 1, Name: "A", Stake: 100},
					{ID: 1, Name: "B", Stake: 100},
				}
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := internal.DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
