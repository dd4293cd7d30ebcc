package models

import (
	"os"
	"path/filepath"
	"time"
)

// Deployment strategies for the download and info endpoints
const (
	StrategyYtdlp  = "ytdlp"
	StrategyAPI    = "api"
	StrategyOEmbed = "oembed"
)

// Config represents the application configuration
type Config struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	DownloadStrategy string `yaml:"download_strategy"`
	InfoStrategy     string `yaml:"info_strategy"`

	YtdlPath        string `yaml:"ytdlp_path"`
	YtdlAutoInstall bool   `yaml:"ytdlp_auto_install"`
	YtdlAutoUpdate  bool   `yaml:"ytdlp_auto_update"`

	TempDir         string        `yaml:"temp_dir"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	MetadataTimeout time.Duration `yaml:"metadata_timeout"`
	APITimeout      time.Duration `yaml:"api_timeout"`

	JanitorSchedule string        `yaml:"janitor_schedule"`
	JanitorMaxAge   time.Duration `yaml:"janitor_max_age"`

	OpenGraphFallback bool            `yaml:"opengraph_fallback"`
	OEmbed            OEmbedConfig    `yaml:"oembed"`
	Providers         ProvidersConfig `yaml:"providers"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`
}

// OEmbedConfig holds the embed-metadata endpoints per platform
type OEmbedConfig struct {
	TikTok  string `yaml:"tiktok"`
	YouTube string `yaml:"youtube"`
}

// ProvidersConfig lists the third-party download APIs per platform
type ProvidersConfig struct {
	TikTok  PlatformProviders `yaml:"tiktok"`
	YouTube PlatformProviders `yaml:"youtube"`
}

// PlatformProviders is the ordered pair of APIs tried for one platform
type PlatformProviders struct {
	Primary  ProviderConfig `yaml:"primary"`
	Fallback ProviderConfig `yaml:"fallback"`
}

// ProviderConfig describes one JSON download API.
//
// Query and Body values may contain the placeholders {url}, {type}, {quality},
// {height}, {mode} and {ext}; they are expanded per request.
type ProviderConfig struct {
	Name       string            `yaml:"name"`
	Endpoint   string            `yaml:"endpoint"`
	Method     string            `yaml:"method"`
	Query      map[string]string `yaml:"query,omitempty"`
	Body       map[string]string `yaml:"body,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	VideoPaths []string          `yaml:"video_paths"`
	AudioPaths []string          `yaml:"audio_paths"`
}

// Enabled reports whether the provider has an endpoint configured
func (p ProviderConfig) Enabled() bool {
	return p.Endpoint != ""
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              3000,
		DownloadStrategy:  StrategyYtdlp,
		InfoStrategy:      StrategyOEmbed,
		YtdlPath:          "",
		YtdlAutoInstall:   false,
		YtdlAutoUpdate:    false,
		TempDir:           filepath.Join(os.TempDir(), "downloads"),
		DownloadTimeout:   10 * time.Minute,
		MetadataTimeout:   30 * time.Second,
		APITimeout:        20 * time.Second,
		JanitorSchedule:   "@every 15m",
		JanitorMaxAge:     time.Hour,
		OpenGraphFallback: true,
		OEmbed: OEmbedConfig{
			TikTok:  "https://www.tiktok.com/oembed",
			YouTube: "https://www.youtube.com/oembed",
		},
		Providers: DefaultProviders(),
		LogLevel:  "info",
		LogPretty: false,
	}
}

// DefaultProviders returns the built-in third-party API table
func DefaultProviders() ProvidersConfig {
	return ProvidersConfig{
		TikTok: PlatformProviders{
			Primary: ProviderConfig{
				Name:       "tikwm",
				Endpoint:   "https://www.tikwm.com/api/",
				Method:     "GET",
				Query:      map[string]string{"url": "{url}", "hd": "1"},
				VideoPaths: []string{"data.hdplay", "data.play", "data.wmplay"},
				AudioPaths: []string{"data.music", "data.music_info.play"},
			},
			Fallback: ProviderConfig{
				Name:       "tiklydown",
				Endpoint:   "https://api.tiklydown.eu.org/api/download",
				Method:     "GET",
				Query:      map[string]string{"url": "{url}"},
				VideoPaths: []string{"video.noWatermark", "video.watermark"},
				AudioPaths: []string{"music.play_url"},
			},
		},
		YouTube: PlatformProviders{
			Primary: ProviderConfig{
				Name:     "cobalt",
				Endpoint: "https://api.cobalt.tools/",
				Method:   "POST",
				Body: map[string]string{
					"url":          "{url}",
					"downloadMode": "{mode}",
					"videoQuality": "{height}",
					"audioFormat":  "mp3",
				},
				Headers:    map[string]string{"Accept": "application/json"},
				VideoPaths: []string{"url"},
				AudioPaths: []string{"url"},
			},
			Fallback: ProviderConfig{
				Name:       "ytapi",
				Endpoint:   "",
				Method:     "GET",
				Query:      map[string]string{"url": "{url}", "format": "{ext}", "quality": "{quality}"},
				VideoPaths: []string{"download_url", "url", "link"},
				AudioPaths: []string{"download_url", "url", "link"},
			},
		},
	}
}
