package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipgrab/pkg/client"
	"clipgrab/pkg/models"
)

type fakeBackend struct {
	mu        sync.Mutex
	info      func(ctx context.Context, req models.InfoRequest) (*client.Info, error)
	download  func(ctx context.Context, req models.DownloadRequest) (*client.Download, error)
	infoCalls int
	downloads []models.DownloadRequest
}

func (f *fakeBackend) Info(ctx context.Context, req models.InfoRequest) (*client.Info, error) {
	f.mu.Lock()
	f.infoCalls++
	f.mu.Unlock()
	return f.info(ctx, req)
}

func (f *fakeBackend) Download(ctx context.Context, req models.DownloadRequest, dstDir string) (*client.Download, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, req)
	f.mu.Unlock()
	return f.download(ctx, req)
}

func okBackend() *fakeBackend {
	return &fakeBackend{
		info: func(ctx context.Context, req models.InfoRequest) (*client.Info, error) {
			return &client.Info{URL: req.URL, Platform: string(req.Platform), Title: "clip", Author: "someone"}, nil
		},
		download: func(ctx context.Context, req models.DownloadRequest) (*client.Download, error) {
			return &client.Download{Type: string(req.Type), Filename: "f." + req.Type.Extension(), DownloadURL: "https://cdn/f"}, nil
		},
	}
}

func recordStates(s *Session) *[]State {
	var states []State
	s.OnChange(func(st State) { states = append(states, st) })
	return &states
}

func TestSession_AnalyzeSuccess(t *testing.T) {
	backend := okBackend()
	s := NewSession(backend, models.PlatformTikTok, t.TempDir())
	states := recordStates(s)

	err := s.Analyze(context.Background(), "  https://www.tiktok.com/@u/video/1 ")
	require.NoError(t, err)

	assert.Equal(t, []State{StateIdle, StateValidating, StateLoading, StateInfoShown, StateOptionsShown}, *states)
	assert.Equal(t, StateOptionsShown, s.State())
	assert.Equal(t, "https://www.tiktok.com/@u/video/1", s.URL())
	assert.Equal(t, "clip", s.Info().Title)
	assert.Equal(t, Options(models.PlatformTikTok), s.Options())
	assert.Empty(t, s.Message())
}

func TestSession_Validation(t *testing.T) {
	tests := []struct {
		name     string
		platform models.Platform
		url      string
		wantErr  error
		wantMsg  string
	}{
		{"empty", models.PlatformTikTok, "   ", ErrEmptyURL, "Please enter a URL"},
		{"youtube url on tiktok", models.PlatformTikTok, "https://youtu.be/x", ErrPlatformMismatch, "Please enter a valid TikTok URL"},
		{"tiktok url on youtube", models.PlatformYouTube, "https://vm.tiktok.com/x", ErrPlatformMismatch, "Please enter a valid YouTube URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := okBackend()
			s := NewSession(backend, tt.platform, t.TempDir())

			err := s.Analyze(context.Background(), tt.url)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, StateError, s.State())
			assert.Equal(t, tt.wantMsg, s.Message())
			assert.Zero(t, backend.infoCalls)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		url      string
		platform models.Platform
		wantErr  error
	}{
		{"https://www.tiktok.com/@u/video/1", models.PlatformTikTok, nil},
		{"https://www.youtube.com/watch?v=x", models.PlatformYouTube, nil},
		{"https://youtu.be/x", models.PlatformYouTube, nil},
		{"https://m.youtube.com/shorts/x", models.PlatformYouTube, nil},
		// substring check only, like the web client
		{"https://evil.example/?tiktok.com", models.PlatformTikTok, nil},
		{"https://vimeo.com/1", models.PlatformYouTube, ErrPlatformMismatch},
		{"https://vimeo.com/1", "vimeo", nil},
		{"", models.PlatformTikTok, ErrEmptyURL},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.platform, tt.url), func(t *testing.T) {
			err := validate(tt.url, tt.platform)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSession_AnalyzeErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"server message", &client.APIError{StatusCode: 500, Message: "Failed to fetch video information"}, "Failed to fetch video information"},
		{"network", fmt.Errorf("%w: connection refused", client.ErrTransport), "Network error. Please try again."},
		{"other", errors.New("weird"), "Failed to analyze video"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := okBackend()
			backend.info = func(context.Context, models.InfoRequest) (*client.Info, error) { return nil, tt.err }
			s := NewSession(backend, models.PlatformYouTube, t.TempDir())

			err := s.Analyze(context.Background(), "https://youtu.be/x")
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, StateError, s.State())
			assert.Equal(t, tt.wantMsg, s.Message())
			assert.Nil(t, s.Info())
			assert.Nil(t, s.Options())
		})
	}
}

func TestSession_SelectPlatformResets(t *testing.T) {
	s := NewSession(okBackend(), models.PlatformTikTok, t.TempDir())
	require.NoError(t, s.Analyze(context.Background(), "https://www.tiktok.com/@u/video/1"))
	_, err := s.Download(context.Background(), s.Options()[0])
	require.NoError(t, err)

	s.SelectPlatform(models.PlatformYouTube)

	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, models.PlatformYouTube, s.Platform())
	assert.Empty(t, s.URL())
	assert.Nil(t, s.Info())
	assert.Nil(t, s.Options())
	assert.Nil(t, s.Result())
}

func TestSession_SelectPlatformDuringLoading(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	backend := okBackend()
	backend.info = func(ctx context.Context, req models.InfoRequest) (*client.Info, error) {
		close(entered)
		<-release
		return &client.Info{Title: "late"}, nil
	}
	s := NewSession(backend, models.PlatformTikTok, t.TempDir())

	done := make(chan error, 1)
	go func() { done <- s.Analyze(context.Background(), "https://www.tiktok.com/@u/video/1") }()

	<-entered
	s.SelectPlatform(models.PlatformYouTube)
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Info())
}

func TestSession_Download(t *testing.T) {
	backend := okBackend()
	s := NewSession(backend, models.PlatformYouTube, t.TempDir())
	require.NoError(t, s.Analyze(context.Background(), "https://youtu.be/x"))
	states := recordStates(s)

	opt, ok := FindOption(s.Options(), "Audio MP3")
	require.True(t, ok)

	result, err := s.Download(context.Background(), opt)
	require.NoError(t, err)

	assert.Equal(t, []State{StateDownloading, StateResult}, *states)
	assert.Equal(t, "f.mp3", result.Filename)
	assert.Equal(t, result, s.Result())
	assert.Equal(t, []models.DownloadRequest{{
		URL:      "https://youtu.be/x",
		Platform: models.PlatformYouTube,
		Type:     models.MediaTypeAudio,
		Quality:  "mp3",
	}}, backend.downloads)
}

func TestSession_DownloadWithoutInfo(t *testing.T) {
	backend := okBackend()
	s := NewSession(backend, models.PlatformYouTube, t.TempDir())

	_, err := s.Download(context.Background(), Options(models.PlatformYouTube)[0])
	assert.ErrorIs(t, err, ErrNoVideo)
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, backend.downloads)
}

func TestSession_DownloadError(t *testing.T) {
	backend := okBackend()
	backend.download = func(context.Context, models.DownloadRequest) (*client.Download, error) {
		return nil, &client.APIError{StatusCode: 500, Message: "Could not get download URL"}
	}
	s := NewSession(backend, models.PlatformTikTok, t.TempDir())
	require.NoError(t, s.Analyze(context.Background(), "https://www.tiktok.com/@u/video/1"))

	_, err := s.Download(context.Background(), s.Options()[1])
	require.Error(t, err)
	assert.Equal(t, StateError, s.State())
	assert.Equal(t, "Could not get download URL", s.Message())
	// the analysed video survives a failed download
	assert.NotNil(t, s.Info())
}

func TestSession_OverlappingDownloads(t *testing.T) {
	backend := okBackend()
	s := NewSession(backend, models.PlatformTikTok, t.TempDir())
	require.NoError(t, s.Analyze(context.Background(), "https://www.tiktok.com/@u/video/1"))

	var wg sync.WaitGroup
	for _, opt := range s.Options() {
		wg.Add(1)
		go func(opt Option) {
			defer wg.Done()
			_, err := s.Download(context.Background(), opt)
			assert.NoError(t, err)
		}(opt)
	}
	wg.Wait()

	assert.Len(t, backend.downloads, 3)
	assert.Equal(t, StateResult, s.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "options", StateOptionsShown.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "unknown", State(42).String())
}
