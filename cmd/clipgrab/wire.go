package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"clipgrab/internal/api"
	"clipgrab/internal/config"
	"clipgrab/internal/downloader"
	"clipgrab/internal/metadata"
	"clipgrab/internal/remote"
	"clipgrab/internal/scratch"
	"clipgrab/internal/ytdl"
	"clipgrab/pkg/models"
)

// services is everything runServer starts and stops
type services struct {
	server  *api.Server
	janitor *scratch.Janitor
}

// needsYtdlp reports whether any endpoint shells out to yt-dlp
func needsYtdlp(cfg *models.Config) bool {
	return cfg.DownloadStrategy == models.StrategyYtdlp || cfg.InfoStrategy == models.StrategyYtdlp
}

// prepareYtdlp installs or updates the managed binary when configured and
// returns the path to execute.
func prepareYtdlp(cfg *models.Config, mgr *ytdl.Manager, log zerolog.Logger) string {
	if cfg.YtdlPath == "" && cfg.YtdlAutoInstall {
		if err := mgr.EnsureInstalled(); err != nil {
			log.Warn().Err(err).Msg("Failed to install yt-dlp")
		}
	}
	if cfg.YtdlPath == "" && cfg.YtdlAutoUpdate && mgr.IsInstalled() {
		if err := mgr.AutoUpdate(); err != nil {
			log.Warn().Err(err).Msg("Failed to update yt-dlp")
		}
	}

	path := mgr.ResolvePath(cfg.YtdlPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if v, err := ytdl.NewExecRunner(path).Version(ctx); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("yt-dlp is not runnable; ytdlp endpoints will fail")
	} else {
		log.Info().Str("path", path).Str("version", v).Msg("Using yt-dlp")
	}

	return path
}

// buildServices selects the fetch and info strategies from cfg and wires
// them into an API server. ytdlpPath is only used by the ytdlp strategies.
func buildServices(cfg *models.Config, ytdlpPath, version string, log zerolog.Logger) (*services, error) {
	dir := scratch.NewDir(cfg.TempDir)
	runner := ytdl.NewExecRunner(ytdlpPath)

	var (
		fetcher api.Fetcher
		info    api.InfoResolver
		janitor *scratch.Janitor
		scr     *scratch.Dir
	)

	switch cfg.DownloadStrategy {
	case models.StrategyYtdlp:
		fetcher = downloader.NewDownloader(dir, runner, cfg.DownloadTimeout, log)
		scr = dir

		j, err := scratch.NewJanitor(dir, cfg.JanitorSchedule, cfg.JanitorMaxAge, log)
		if err != nil {
			return nil, err
		}
		janitor = j
	case models.StrategyAPI:
		fetcher = remote.NewClient(cfg.Providers, cfg.APITimeout, log)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidDownloadStrategy, cfg.DownloadStrategy)
	}

	switch cfg.InfoStrategy {
	case models.StrategyYtdlp:
		info = metadata.NewYtdlpResolver(runner, cfg.MetadataTimeout, log)
	case models.StrategyOEmbed:
		info = metadata.NewOEmbedResolver(cfg.OEmbed, cfg.OpenGraphFallback, cfg.APITimeout, log)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidInfoStrategy, cfg.InfoStrategy)
	}

	if !needsYtdlp(cfg) {
		ytdlpPath = ""
	}

	server := api.NewServer(api.Options{
		Config:    cfg,
		Fetcher:   fetcher,
		Info:      info,
		Scratch:   scr,
		YtdlpPath: ytdlpPath,
		Version:   version,
		Logger:    log,
	})

	return &services{server: server, janitor: janitor}, nil
}

func utilsDir() string {
	return filepath.Join(config.GetDataDir(), "bin")
}
