package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipgrab/internal/cli"
	"clipgrab/internal/config"
	"clipgrab/internal/logging"
	"clipgrab/internal/ytdl"
	"clipgrab/pkg/client"
)

const (
	Version         = "0.1.0"
	shutdownTimeout = 30 * time.Second
)

func main() {
	cliApp := cli.NewCLI(Version)

	if len(os.Args) < 2 {
		cliApp.PrintHelp(os.Stderr)
		os.Exit(1)
	}

	cmd, err := cliApp.ParseCommand(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		cliApp.PrintHelp(os.Stderr)
		os.Exit(1)
	}

	if cmd.Type == cli.CommandHelp {
		cliApp.PrintHelp(os.Stdout)
		os.Exit(0)
	}

	if cmd.Type == cli.CommandVersion {
		cliApp.PrintVersion(os.Stdout)
		os.Exit(0)
	}

	os.Exit(executeCommand(cmd))
}

func executeCommand(cmd *cli.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd.Type {
	case cli.CommandServer:
		return runServer(ctx, cmd)
	case cli.CommandInfo, cli.CommandDownload:
		c := &cli.Client{
			Backend: client.New(cmd.Server, nil),
			Out:     os.Stdout,
			Err:     os.Stderr,
		}
		if cmd.Type == cli.CommandInfo {
			return c.RunInfo(ctx, cmd)
		}
		return c.RunDownload(ctx, cmd)
	case cli.CommandYtdlpUpdate:
		return runYtdlpUpdate(cmd.CheckOnly)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd.String())
		return 1
	}
}

func runServer(ctx context.Context, cmd *cli.Command) int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		return 1
	}

	configPath := cmd.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfgMgr, err := config.NewManager(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	// Flags win over file and environment
	cfg := cfgMgr.Get()
	if cmd.Port != 0 {
		cfg.Port = cmd.Port
	}
	if cmd.Host != "" {
		cfg.Host = cmd.Host
	}

	log := logging.New(cfg.LogLevel, cfg.LogPretty)
	log.Info().
		Str("config", cfgMgr.Path()).
		Str("download_strategy", cfg.DownloadStrategy).
		Str("info_strategy", cfg.InfoStrategy).
		Msg("Starting clipgrab")

	var ytdlpPath string
	if needsYtdlp(cfg) {
		ytdlpPath = prepareYtdlp(cfg, ytdl.NewManager(utilsDir(), log), log)
	}

	svc, err := buildServices(cfg, ytdlpPath, Version, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialise services")
		return 1
	}

	if err := svc.server.Start(); err != nil {
		log.Error().Err(err).Msg("Server error")
		return 1
	}
	if svc.janitor != nil {
		svc.janitor.Start()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	code := 0
	if err := svc.server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		code = 1
	}
	if svc.janitor != nil {
		if err := svc.janitor.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Janitor did not stop cleanly")
		}
	}

	return code
}

func runYtdlpUpdate(checkOnly bool) int {
	log := logging.New("info", true)
	mgr := ytdl.NewManager(utilsDir(), log)

	latest, hasUpdate, err := mgr.CheckForUpdate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error checking for updates: %v\n", err)
		return 1
	}

	current := mgr.GetCurrentVersion()
	if !hasUpdate {
		fmt.Printf("yt-dlp is up to date (version %s)\n", current)
		return 0
	}

	if current == "" {
		fmt.Printf("yt-dlp is not installed, latest is %s\n", latest)
	} else {
		fmt.Printf("Update available: %s -> %s\n", current, latest)
	}

	if checkOnly {
		fmt.Println("Run 'clipgrab ytdlp-update' to install it")
		return 0
	}

	if err := mgr.Download(); err != nil {
		fmt.Fprintf(os.Stderr, "Error updating yt-dlp: %v\n", err)
		return 1
	}

	fmt.Printf("Installed yt-dlp %s at %s\n", latest, mgr.GetYtdlpPath())
	return 0
}
