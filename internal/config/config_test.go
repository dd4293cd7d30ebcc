package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipgrab/pkg/models"
)

func TestNewManager(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	manager, err := NewManager(configPath)
	require.NoError(t, err)
	require.NotNil(t, manager)

	// Should create config with defaults
	cfg := manager.Get()
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, models.StrategyYtdlp, cfg.DownloadStrategy)
	assert.Equal(t, models.StrategyOEmbed, cfg.InfoStrategy)
	assert.Equal(t, 30*time.Second, cfg.MetadataTimeout)
	assert.FileExists(t, configPath)
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *Manager)
	}{
		{
			name: "valid config",
			yaml: `
port: 8080
download_strategy: api
metadata_timeout: 10s
providers:
  youtube:
    fallback:
      endpoint: https://yt.example.com/download
`,
			check: func(t *testing.T, manager *Manager) {
				cfg := manager.Get()
				assert.Equal(t, 8080, cfg.Port)
				assert.Equal(t, models.StrategyAPI, cfg.DownloadStrategy)
				assert.Equal(t, 10*time.Second, cfg.MetadataTimeout)
				assert.Equal(t, "https://yt.example.com/download", cfg.Providers.YouTube.Fallback.Endpoint)
				// untouched provider fields keep their defaults
				assert.Equal(t, "tikwm", cfg.Providers.TikTok.Primary.Name)
			},
		},
		{
			name: "empty config uses defaults",
			yaml: `{}`,
			check: func(t *testing.T, manager *Manager) {
				cfg := manager.Get()
				assert.Equal(t, 3000, cfg.Port)
				assert.True(t, cfg.OpenGraphFallback)
			},
		},
		{
			name: "blank strings fall back to defaults",
			yaml: `
temp_dir: ""
log_level: ""
`,
			check: func(t *testing.T, manager *Manager) {
				cfg := manager.Get()
				assert.NotEmpty(t, cfg.TempDir)
				assert.Equal(t, "info", cfg.LogLevel)
			},
		},
		{
			name:    "invalid YAML",
			yaml:    "port: [unterminated",
			wantErr: true,
		},
		{
			name:    "invalid strategy",
			yaml:    "download_strategy: carrier-pigeon",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			configPath := filepath.Join(tempDir, "config.yaml")

			err := os.WriteFile(configPath, []byte(tt.yaml), 0644)
			require.NoError(t, err)

			manager, err := NewManager(configPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, manager)
			}
		})
	}
}

func TestSaveConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	manager, err := NewManager(configPath)
	require.NoError(t, err)

	err = manager.Update(func(cfg *models.Config) {
		cfg.Port = 8080
		cfg.DownloadStrategy = models.StrategyAPI
	})
	require.NoError(t, err)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "port: 8080")
	assert.Contains(t, string(data), "download_strategy: api")
}

func TestUpdate(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	manager, err := NewManager(configPath)
	require.NoError(t, err)

	err = manager.Update(func(cfg *models.Config) {
		cfg.Port = 7777
		cfg.DownloadTimeout = 2 * time.Minute
	})
	require.NoError(t, err)

	cfg := manager.Get()
	assert.Equal(t, 7777, cfg.Port)

	// Verify saved to disk
	newManager, err := NewManager(configPath)
	require.NoError(t, err)
	cfg = newManager.Get()
	assert.Equal(t, 7777, cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.DownloadTimeout)
}

func TestUpdateRejectsInvalid(t *testing.T) {
	manager, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	err = manager.Update(func(cfg *models.Config) {
		cfg.Port = -1
	})
	assert.ErrorIs(t, err, ErrInvalidPort)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvDownloadStrategy, "API")
	t.Setenv(EnvTempDir, "/var/tmp/clipgrab")
	t.Setenv(EnvDownloadTimeout, "90s")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	manager, err := NewManager(configPath)
	require.NoError(t, err)

	cfg := manager.Get()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, models.StrategyAPI, cfg.DownloadStrategy)
	assert.Equal(t, "/var/tmp/clipgrab", cfg.TempDir)
	assert.Equal(t, 90*time.Second, cfg.DownloadTimeout)

	// overrides are not persisted
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "port: 3000")
}

func TestEnvOverrideInvalidPort(t *testing.T) {
	t.Setenv(EnvPort, "not-a-port")

	_, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	assert.ErrorIs(t, err, ErrInvalidPort)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("CLIPGRAB_LOG_LEVEL=debug\n"), 0644))

	// make sure t.Setenv restores the variable afterwards
	t.Setenv(EnvLogLevel, "")
	os.Unsetenv(EnvLogLevel)

	require.NoError(t, LoadDotEnv(envPath))
	assert.Equal(t, "debug", os.Getenv(EnvLogLevel))

	// missing files are ignored
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(cfg *models.Config)
		wantErr error
	}{
		{
			name:  "valid config",
			setup: func(cfg *models.Config) {},
		},
		{
			name:    "invalid port - too low",
			setup:   func(cfg *models.Config) { cfg.Port = 0 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "invalid port - too high",
			setup:   func(cfg *models.Config) { cfg.Port = 70000 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "unknown download strategy",
			setup:   func(cfg *models.Config) { cfg.DownloadStrategy = "oembed" },
			wantErr: ErrInvalidDownloadStrategy,
		},
		{
			name:    "unknown info strategy",
			setup:   func(cfg *models.Config) { cfg.InfoStrategy = "api" },
			wantErr: ErrInvalidInfoStrategy,
		},
		{
			name:    "zero metadata timeout",
			setup:   func(cfg *models.Config) { cfg.MetadataTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "bad cron schedule",
			setup:   func(cfg *models.Config) { cfg.JanitorSchedule = "every now and then" },
			wantErr: ErrInvalidSchedule,
		},
		{
			name:  "standard cron schedule",
			setup: func(cfg *models.Config) { cfg.JanitorSchedule = "*/5 * * * *" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultConfig()
			tt.setup(cfg)

			err := Validate(cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetDataDir(t *testing.T) {
	dir := GetDataDir()
	assert.NotEmpty(t, dir)
	assert.DirExists(t, dir)
}
