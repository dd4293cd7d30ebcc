package ytdl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	ytdlpReleaseAPI = "https://api.github.com/repos/yt-dlp/yt-dlp/releases/latest"
	versionFile     = "yt-dlp.version"
)

// HTTPClient is the subset of *http.Client used by Manager
type HTTPClient interface {
	Get(url string) (*http.Response, error)
}

// Manager installs and updates a private copy of yt-dlp
type Manager struct {
	mu             sync.Mutex
	utilsDir       string
	client         HTTPClient
	log            zerolog.Logger
	currentVersion string
	lastCheckTime  time.Time
}

// GitHubRelease represents a GitHub release
type GitHubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// NewManager creates a new yt-dlp manager that stores the binary in utilsDir
func NewManager(utilsDir string, log zerolog.Logger) *Manager {
	return NewManagerWithClient(utilsDir, &http.Client{Timeout: 5 * time.Minute}, log)
}

// NewManagerWithClient creates a manager using the given HTTP client
func NewManagerWithClient(utilsDir string, client HTTPClient, log zerolog.Logger) *Manager {
	os.MkdirAll(utilsDir, 0755)

	m := &Manager{
		utilsDir: utilsDir,
		client:   client,
		log:      log.With().Str("component", "ytdl").Logger(),
	}

	if data, err := os.ReadFile(filepath.Join(utilsDir, versionFile)); err == nil {
		m.currentVersion = strings.TrimSpace(string(data))
	}

	return m
}

// GetYtdlpPath returns the path of the managed yt-dlp executable
func (m *Manager) GetYtdlpPath() string {
	return filepath.Join(m.utilsDir, detectPlatform())
}

// IsInstalled checks if the managed yt-dlp is present
func (m *Manager) IsInstalled() bool {
	_, err := os.Stat(m.GetYtdlpPath())
	return err == nil
}

// GetCurrentVersion returns the installed release tag, if known
func (m *Manager) GetCurrentVersion() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentVersion
}

// LastCheck returns when the release API was last queried
func (m *Manager) LastCheck() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCheckTime
}

// ResolvePath picks the binary to execute: an explicitly configured path,
// then the managed copy, then yt-dlp from PATH.
func (m *Manager) ResolvePath(configured string) string {
	if configured != "" {
		return configured
	}
	if m.IsInstalled() {
		return m.GetYtdlpPath()
	}
	if p, err := exec.LookPath("yt-dlp"); err == nil {
		return p
	}
	return "yt-dlp"
}

// CheckForUpdate checks if a newer version is available
func (m *Manager) CheckForUpdate() (string, bool, error) {
	release, err := m.latestRelease()
	if err != nil {
		return "", false, fmt.Errorf("failed to check for updates: %w", err)
	}

	m.mu.Lock()
	m.lastCheckTime = time.Now()
	current := m.currentVersion
	m.mu.Unlock()

	// If not installed, any version is an update
	if !m.IsInstalled() {
		return release.TagName, true, nil
	}

	if current == "" || current != release.TagName {
		return release.TagName, true, nil
	}

	return release.TagName, false, nil
}

// Download downloads and installs the latest yt-dlp release
func (m *Manager) Download() error {
	release, err := m.latestRelease()
	if err != nil {
		return fmt.Errorf("failed to fetch release info: %w", err)
	}

	platform := detectPlatform()
	var downloadURL string
	for _, asset := range release.Assets {
		if asset.Name == platform {
			downloadURL = asset.BrowserDownloadURL
			break
		}
	}

	if downloadURL == "" {
		return fmt.Errorf("no asset found for platform: %s", platform)
	}

	m.log.Info().Str("version", release.TagName).Msg("Downloading yt-dlp")
	resp, err := m.client.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("failed to download yt-dlp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	ytdlpPath := m.GetYtdlpPath()
	tmpPath := ytdlpPath + ".tmp"

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to make executable: %w", err)
	}

	// Replace old file
	if m.IsInstalled() {
		if err := os.Remove(ytdlpPath); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to remove old file: %w", err)
		}
	}

	if err := os.Rename(tmpPath, ytdlpPath); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	m.mu.Lock()
	m.currentVersion = release.TagName
	m.mu.Unlock()

	if err := os.WriteFile(filepath.Join(m.utilsDir, versionFile), []byte(release.TagName+"\n"), 0644); err != nil {
		m.log.Warn().Err(err).Msg("Failed to record yt-dlp version")
	}

	m.log.Info().Str("version", release.TagName).Str("path", ytdlpPath).Msg("yt-dlp installed")

	return nil
}

// EnsureInstalled downloads yt-dlp if the managed copy is missing
func (m *Manager) EnsureInstalled() error {
	if m.IsInstalled() {
		return nil
	}

	m.log.Info().Msg("yt-dlp not found, downloading")
	return m.Download()
}

// AutoUpdate checks for and applies updates if available
func (m *Manager) AutoUpdate() error {
	latestVersion, hasUpdate, err := m.CheckForUpdate()
	if err != nil {
		return err
	}

	if !hasUpdate {
		m.log.Info().Str("version", latestVersion).Msg("yt-dlp is up to date")
		return nil
	}

	m.log.Info().Str("version", latestVersion).Msg("Updating yt-dlp")
	return m.Download()
}

func (m *Manager) latestRelease() (*GitHubRelease, error) {
	resp, err := m.client.Get(ytdlpReleaseAPI)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release info: %w", err)
	}

	return &release, nil
}

// detectPlatform returns the yt-dlp release asset name for the current platform
func detectPlatform() string {
	switch runtime.GOOS {
	case "windows":
		return "yt-dlp.exe"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "yt-dlp_linux_aarch64"
		}
		return "yt-dlp_linux"
	case "darwin":
		return "yt-dlp_macos"
	default:
		return "yt-dlp"
	}
}
