// Package ui models the client side of clipgrab: a per-analysis session
// state machine, the progress indicator and display helpers. It has no
// rendering of its own; the terminal front-end drives it.
package ui

import (
	"context"
	"errors"
	"strings"
	"sync"

	"clipgrab/pkg/client"
	"clipgrab/pkg/models"
)

// State is a step of the analyse and download cycle
type State int

const (
	StateIdle State = iota
	StateValidating
	StateLoading
	StateInfoShown
	StateOptionsShown
	StateDownloading
	StateResult
	StateError
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateValidating:   "validating",
	StateLoading:      "loading",
	StateInfoShown:    "info",
	StateOptionsShown: "options",
	StateDownloading:  "downloading",
	StateResult:       "result",
	StateError:        "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

var (
	ErrEmptyURL         = errors.New("url is empty")
	ErrPlatformMismatch = errors.New("url does not belong to the selected platform")
	ErrNoVideo          = errors.New("no video has been analysed")
	ErrSuperseded       = errors.New("session was reset while the request was running")
)

const (
	msgEnterURL      = "Please enter a URL"
	msgNetwork       = "Network error. Please try again."
	msgAnalyzeFailed = "Failed to analyze video"
	msgDownloadFail  = "Download failed"
)

// Backend is the server API used by a session
type Backend interface {
	Info(ctx context.Context, req models.InfoRequest) (*client.Info, error)
	Download(ctx context.Context, req models.DownloadRequest, dstDir string) (*client.Download, error)
}

// Session holds the state of one analysis cycle. Selecting a platform or
// starting a new analysis discards everything downstream.
type Session struct {
	mu       sync.Mutex
	backend  Backend
	dstDir   string
	onChange func(State)

	platform models.Platform
	state    State
	gen      int
	url      string
	info     *client.Info
	options  []Option
	result   *client.Download
	message  string
}

// NewSession creates a session that saves streamed downloads into dstDir
func NewSession(backend Backend, platform models.Platform, dstDir string) *Session {
	return &Session{
		backend:  backend,
		dstDir:   dstDir,
		platform: platform,
	}
}

// OnChange registers a callback invoked on every state transition. It runs
// with the session locked and must not call back into the session.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SelectPlatform switches platform and resets the session to Idle
func (s *Session) SelectPlatform(p models.Platform) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.platform = p
	s.resetLocked()
}

// Reset clears the URL and everything derived from it
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.gen++
	s.url = ""
	s.info = nil
	s.options = nil
	s.result = nil
	s.message = ""
	s.setLocked(StateIdle)
}

// Analyze validates rawURL against the selected platform and fetches its
// metadata. On success the session ends in OptionsShown.
func (s *Session) Analyze(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	s.resetLocked()
	s.setLocked(StateValidating)

	url := strings.TrimSpace(rawURL)
	if err := validate(url, s.platform); err != nil {
		s.failLocked(validationMessage(err, s.platform))
		s.mu.Unlock()
		return err
	}

	s.url = url
	platform := s.platform
	gen := s.gen
	s.setLocked(StateLoading)
	s.mu.Unlock()

	info, err := s.backend.Info(ctx, models.InfoRequest{URL: url, Platform: platform})

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return ErrSuperseded
	}
	if err != nil {
		s.failLocked(userMessage(err, msgAnalyzeFailed))
		return err
	}

	s.info = info
	s.setLocked(StateInfoShown)
	s.options = Options(platform)
	s.setLocked(StateOptionsShown)
	return nil
}

// Download fetches the chosen option for the analysed URL. Overlapping
// downloads are allowed; the last one to finish sets the result.
func (s *Session) Download(ctx context.Context, opt Option) (*client.Download, error) {
	s.mu.Lock()
	if s.info == nil {
		s.mu.Unlock()
		return nil, ErrNoVideo
	}

	req := opt.Request(s.url, s.platform)
	gen := s.gen
	s.message = ""
	s.setLocked(StateDownloading)
	s.mu.Unlock()

	result, err := s.backend.Download(ctx, req, s.dstDir)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return nil, ErrSuperseded
	}
	if err != nil {
		s.failLocked(userMessage(err, msgDownloadFail))
		return nil, err
	}

	s.result = result
	s.setLocked(StateResult)
	return result, nil
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Platform returns the selected platform
func (s *Session) Platform() models.Platform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.platform
}

// URL returns the analysed URL
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Info returns the fetched metadata, nil before a successful analysis
func (s *Session) Info() *client.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Options returns the download choices offered for the analysed URL
func (s *Session) Options() []Option {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// Result returns the last completed download
func (s *Session) Result() *client.Download {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Message returns the user-facing error text in the Error state
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *Session) failLocked(msg string) {
	s.message = msg
	s.setLocked(StateError)
}

func (s *Session) setLocked(state State) {
	s.state = state
	if s.onChange != nil {
		s.onChange(state)
	}
}

// validate performs the client-side substring check for a platform
func validate(url string, platform models.Platform) error {
	if url == "" {
		return ErrEmptyURL
	}

	switch platform {
	case models.PlatformTikTok:
		if !strings.Contains(url, "tiktok.com") {
			return ErrPlatformMismatch
		}
	case models.PlatformYouTube:
		if !strings.Contains(url, "youtube.com") && !strings.Contains(url, "youtu.be") {
			return ErrPlatformMismatch
		}
	}
	return nil
}

func validationMessage(err error, platform models.Platform) string {
	if errors.Is(err, ErrEmptyURL) {
		return msgEnterURL
	}
	switch platform {
	case models.PlatformTikTok:
		return "Please enter a valid TikTok URL"
	case models.PlatformYouTube:
		return "Please enter a valid YouTube URL"
	}
	return msgEnterURL
}

// userMessage prefers the server's message, then a network hint, then fallback
func userMessage(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, client.ErrTransport) {
		return msgNetwork
	}
	return fallback
}
