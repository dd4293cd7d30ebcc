package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"clipgrab/pkg/models"
)

// DefaultServer is the API base URL used by the client commands
const DefaultServer = "http://localhost:3000"

// CommandType represents the type of CLI command
type CommandType int

const (
	CommandHelp CommandType = iota
	CommandVersion
	CommandServer
	CommandInfo
	CommandDownload
	CommandYtdlpUpdate
)

// Command represents a parsed CLI command
type Command struct {
	Type CommandType

	// server
	Port       int
	Host       string
	ConfigPath string

	// info / download
	Server   string
	Platform models.Platform
	URL      string
	Option   string
	OutDir   string

	// ytdlp-update
	CheckOnly bool
}

// String returns a string representation of the command
func (c *Command) String() string {
	switch c.Type {
	case CommandHelp:
		return "help"
	case CommandVersion:
		return "version"
	case CommandServer:
		if c.Port != 0 {
			return fmt.Sprintf("server (port: %d)", c.Port)
		}
		return "server"
	case CommandInfo:
		return fmt.Sprintf("info (%s %s)", c.Platform, c.URL)
	case CommandDownload:
		return fmt.Sprintf("download (%s %s option %s)", c.Platform, c.URL, c.Option)
	case CommandYtdlpUpdate:
		if c.CheckOnly {
			return "ytdlp-update (check only)"
		}
		return "ytdlp-update"
	default:
		return "unknown"
	}
}

// CLI represents the command-line interface
type CLI struct {
	version string
}

// NewCLI creates a new CLI instance
func NewCLI(version string) *CLI {
	return &CLI{
		version: version,
	}
}

// ParseCommand parses command-line arguments and returns a Command
func (c *CLI) ParseCommand(args []string) (*Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no command specified")
	}

	// Check for global flags first
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return &Command{Type: CommandHelp}, nil
	}

	if args[0] == "-v" || args[0] == "--version" || args[0] == "version" {
		return &Command{Type: CommandVersion}, nil
	}

	switch args[0] {
	case "server":
		return c.parseServerCommand(args[1:])
	case "info":
		return c.parseInfoCommand(args[1:])
	case "download":
		return c.parseDownloadCommand(args[1:])
	case "ytdlp-update":
		return c.parseYtdlpUpdateCommand(args[1:])
	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

// parseServerCommand parses the server command. A zero port keeps the
// configured one.
func (c *CLI) parseServerCommand(args []string) (*Command, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	port := fs.Int("port", 0, "Server port (overrides config)")
	host := fs.String("host", "", "Listen address (overrides config)")
	configPath := fs.String("config", "", "Config file path")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *port < 0 || *port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", *port)
	}

	return &Command{
		Type:       CommandServer,
		Port:       *port,
		Host:       *host,
		ConfigPath: *configPath,
	}, nil
}

// parseInfoCommand parses the info command
func (c *CLI) parseInfoCommand(args []string) (*Command, error) {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	server := fs.String("server", serverDefault(), "API base URL")
	platform := fs.String("platform", "", "tiktok or youtube (detected from the URL if empty)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	url, err := singleURL(fs)
	if err != nil {
		return nil, err
	}

	return &Command{
		Type:     CommandInfo,
		Server:   *server,
		Platform: resolvePlatform(*platform, url),
		URL:      url,
	}, nil
}

// parseDownloadCommand parses the download command
func (c *CLI) parseDownloadCommand(args []string) (*Command, error) {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	server := fs.String("server", serverDefault(), "API base URL")
	platform := fs.String("platform", "", "tiktok or youtube (detected from the URL if empty)")
	option := fs.String("option", "1", "Download option number or title")
	out := fs.String("out", ".", "Directory for streamed downloads")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	url, err := singleURL(fs)
	if err != nil {
		return nil, err
	}

	return &Command{
		Type:     CommandDownload,
		Server:   *server,
		Platform: resolvePlatform(*platform, url),
		URL:      url,
		Option:   *option,
		OutDir:   *out,
	}, nil
}

// parseYtdlpUpdateCommand parses the ytdlp-update command
func (c *CLI) parseYtdlpUpdateCommand(args []string) (*Command, error) {
	fs := flag.NewFlagSet("ytdlp-update", flag.ContinueOnError)
	checkOnly := fs.Bool("check", false, "Only check for updates without installing")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Command{
		Type:      CommandYtdlpUpdate,
		CheckOnly: *checkOnly,
	}, nil
}

func singleURL(fs *flag.FlagSet) (string, error) {
	switch fs.NArg() {
	case 0:
		return "", fmt.Errorf("%s: URL argument is required", fs.Name())
	case 1:
		return strings.TrimSpace(fs.Arg(0)), nil
	default:
		return "", fmt.Errorf("%s: expected one URL, got %d arguments", fs.Name(), fs.NArg())
	}
}

func serverDefault() string {
	if v := os.Getenv("CLIPGRAB_SERVER"); v != "" {
		return v
	}
	return DefaultServer
}

// resolvePlatform honours an explicit platform, otherwise guesses from the URL
func resolvePlatform(flagValue, url string) models.Platform {
	if p := strings.ToLower(strings.TrimSpace(flagValue)); p != "" {
		return models.Platform(p)
	}
	if strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be") {
		return models.PlatformYouTube
	}
	return models.PlatformTikTok
}

// PrintHelp prints the help message
func (c *CLI) PrintHelp(w io.Writer) {
	help := `clipgrab - TikTok and YouTube download service

Usage:
  clipgrab [command] [flags]

Available Commands:
  server        Start HTTP API server
  info          Show metadata for a video URL
  download      Download a video or its audio through a running server
  ytdlp-update  Install or update the managed yt-dlp binary
  version       Print version information
  help          Print this help message

Server Flags:
  -port int        Server port (default from config, 3000)
  -host string     Listen address (default from config, 0.0.0.0)
  -config string   Config file path

Info/Download Flags (before the URL):
  -server string     API base URL (default $CLIPGRAB_SERVER or http://localhost:3000)
  -platform string   tiktok or youtube (detected from the URL if empty)
  -option string     Download option number or title (download only, default 1)
  -out string        Directory for streamed files (download only, default .)

ytdlp-update Flags:
  -check   Only check for updates without installing

Examples:
  clipgrab server
  clipgrab server -port 8080
  clipgrab info https://youtu.be/jNQXAC9IVRw
  clipgrab download -option "Audio MP3" https://www.tiktok.com/@user/video/123
  clipgrab download -platform youtube -option 2 -out ~/Videos https://www.youtube.com/watch?v=jNQXAC9IVRw
  clipgrab ytdlp-update -check
  clipgrab version
`
	fmt.Fprint(w, help)
}

// PrintVersion prints the version information
func (c *CLI) PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "clipgrab version %s\n", c.version)
}

// Run executes the CLI with the given arguments
func (c *CLI) Run(args []string) int {
	cmd, err := c.ParseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		c.PrintHelp(os.Stderr)
		return 1
	}

	switch cmd.Type {
	case CommandHelp:
		c.PrintHelp(os.Stdout)
		return 0
	case CommandVersion:
		c.PrintVersion(os.Stdout)
		return 0
	default:
		// Other commands are handled by the main function
		return 0
	}
}
