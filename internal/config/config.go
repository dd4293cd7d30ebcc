package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"clipgrab/pkg/models"
)

var (
	ErrInvalidPort             = errors.New("invalid port: must be between 1 and 65535")
	ErrInvalidDownloadStrategy = errors.New("invalid download strategy: must be ytdlp or api")
	ErrInvalidInfoStrategy     = errors.New("invalid info strategy: must be ytdlp or oembed")
	ErrInvalidTimeout          = errors.New("invalid timeout: must be positive")
	ErrInvalidSchedule         = errors.New("invalid janitor schedule")
)

// Environment variables that override the file configuration
const (
	EnvHost             = "CLIPGRAB_HOST"
	EnvPort             = "CLIPGRAB_PORT"
	EnvDownloadStrategy = "CLIPGRAB_DOWNLOAD_STRATEGY"
	EnvInfoStrategy     = "CLIPGRAB_INFO_STRATEGY"
	EnvYtdlPath         = "CLIPGRAB_YTDLP_PATH"
	EnvTempDir          = "CLIPGRAB_TEMP_DIR"
	EnvLogLevel         = "CLIPGRAB_LOG_LEVEL"
	EnvDownloadTimeout  = "CLIPGRAB_DOWNLOAD_TIMEOUT"
)

// Manager handles configuration loading, saving, and updates
type Manager struct {
	mu         sync.RWMutex
	config     *models.Config
	configPath string
}

// NewManager creates a new configuration manager.
// If the config file doesn't exist, it creates one with default values.
// Environment overrides are applied after the file is read and are never
// written back to disk.
func NewManager(configPath string) (*Manager, error) {
	manager := &Manager{
		configPath: configPath,
		config:     models.DefaultConfig(),
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := manager.load(); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		configDir := filepath.Dir(configPath)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		if err := manager.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	if err := ApplyEnv(manager.config); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := Validate(manager.config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return manager, nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *models.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := *m.config
	return &cfg
}

// Update applies a function to the configuration and saves it
func (m *Manager) Update(fn func(*models.Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn(m.config)

	if err := Validate(m.config); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return m.save()
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.save()
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

// load reads configuration from disk on top of the defaults
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := models.DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}

	m.config = mergeWithDefaults(cfg)

	return nil
}

// save writes configuration to disk (must be called with lock held)
func (m *Manager) save() error {
	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// mergeWithDefaults fills in values a config file explicitly blanked out
func mergeWithDefaults(cfg *models.Config) *models.Config {
	defaults := models.DefaultConfig()

	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.DownloadStrategy == "" {
		cfg.DownloadStrategy = defaults.DownloadStrategy
	}
	if cfg.InfoStrategy == "" {
		cfg.InfoStrategy = defaults.InfoStrategy
	}
	if cfg.TempDir == "" {
		cfg.TempDir = defaults.TempDir
	}
	if cfg.DownloadTimeout == 0 {
		cfg.DownloadTimeout = defaults.DownloadTimeout
	}
	if cfg.MetadataTimeout == 0 {
		cfg.MetadataTimeout = defaults.MetadataTimeout
	}
	if cfg.APITimeout == 0 {
		cfg.APITimeout = defaults.APITimeout
	}
	if cfg.JanitorSchedule == "" {
		cfg.JanitorSchedule = defaults.JanitorSchedule
	}
	if cfg.JanitorMaxAge == 0 {
		cfg.JanitorMaxAge = defaults.JanitorMaxAge
	}
	if cfg.OEmbed.TikTok == "" {
		cfg.OEmbed.TikTok = defaults.OEmbed.TikTok
	}
	if cfg.OEmbed.YouTube == "" {
		cfg.OEmbed.YouTube = defaults.OEmbed.YouTube
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	return cfg
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the
// process environment. Missing files are ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	return godotenv.Load(existing...)
}

// ApplyEnv overrides cfg fields from CLIPGRAB_* environment variables
func ApplyEnv(cfg *models.Config) error {
	if v, ok := lookupEnv(EnvHost); ok {
		cfg.Host = v
	}
	if v, ok := lookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, ErrInvalidPort)
		}
		cfg.Port = port
	}
	if v, ok := lookupEnv(EnvDownloadStrategy); ok {
		cfg.DownloadStrategy = strings.ToLower(v)
	}
	if v, ok := lookupEnv(EnvInfoStrategy); ok {
		cfg.InfoStrategy = strings.ToLower(v)
	}
	if v, ok := lookupEnv(EnvYtdlPath); ok {
		cfg.YtdlPath = v
	}
	if v, ok := lookupEnv(EnvTempDir); ok {
		cfg.TempDir = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookupEnv(EnvDownloadTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDownloadTimeout, ErrInvalidTimeout)
		}
		cfg.DownloadTimeout = d
	}

	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Validate checks if the configuration is valid
func Validate(cfg *models.Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return ErrInvalidPort
	}

	switch cfg.DownloadStrategy {
	case models.StrategyYtdlp, models.StrategyAPI:
	default:
		return ErrInvalidDownloadStrategy
	}

	switch cfg.InfoStrategy {
	case models.StrategyYtdlp, models.StrategyOEmbed:
	default:
		return ErrInvalidInfoStrategy
	}

	if cfg.DownloadTimeout <= 0 || cfg.MetadataTimeout <= 0 || cfg.APITimeout <= 0 || cfg.JanitorMaxAge <= 0 {
		return ErrInvalidTimeout
	}

	if _, err := cron.ParseStandard(cfg.JanitorSchedule); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	return nil
}

// GetDataDir returns the application data directory
func GetDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		dataDir := filepath.Join(dir, "clipgrab")
		os.MkdirAll(dataDir, 0755)
		return dataDir
	}

	if home, err := os.UserHomeDir(); err == nil {
		dataDir := filepath.Join(home, ".clipgrab")
		os.MkdirAll(dataDir, 0755)
		return dataDir
	}

	return "."
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return filepath.Join(GetDataDir(), "config.yaml")
}
