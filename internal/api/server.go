package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"clipgrab/internal/scratch"
	"clipgrab/pkg/models"
)

var (
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrServerNotRunning     = errors.New("server is not running")
)

// Fetcher produces a downloadable artifact for a request. Release is called
// once the response has been written.
type Fetcher interface {
	Fetch(ctx context.Context, req models.DownloadRequest) (*models.Artifact, error)
	Release(ctx context.Context, artifact *models.Artifact)
}

// InfoResolver looks up metadata for a URL
type InfoResolver interface {
	Resolve(ctx context.Context, req models.InfoRequest) (*models.VideoInfo, error)
}

// Options holds the collaborators of a Server
type Options struct {
	Config  *models.Config
	Fetcher Fetcher
	Info    InfoResolver
	// Scratch is reported by /api/status; nil when downloads never touch disk
	Scratch   *scratch.Dir
	YtdlpPath string
	Version   string
	Logger    zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	config    *models.Config
	fetcher   Fetcher
	info      InfoResolver
	scratch   *scratch.Dir
	ytdlpPath string
	version   string
	log       zerolog.Logger
	router    *chi.Mux
	server    *http.Server
	listener  net.Listener
	running   bool
	mu        sync.RWMutex
}

// NewServer creates a new HTTP server
func NewServer(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = models.DefaultConfig()
	}

	s := &Server{
		config:    cfg,
		fetcher:   opts.Fetcher,
		info:      opts.Info,
		scratch:   opts.Scratch,
		ytdlpPath: opts.YtdlpPath,
		version:   opts.Version,
		log:       opts.Logger.With().Str("component", "api").Logger(),
		router:    chi.NewRouter(),
	}

	s.setupRoutes()

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log)...)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors)

	// Set before Route so the /api subrouter inherits them
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/health", s.handleHealth)
			r.Get("/status", s.handleStatus)
		})

		r.Post("/info", s.handleInfo)
		r.Options("/info", handlePreflight)
		r.Post("/download", s.handleDownload)
		r.Options("/download", handlePreflight)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerAlreadyRunning
	}

	addr := s.GetAddr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listener = listener
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Downloads stream after yt-dlp finishes, so writes may legitimately take long
		WriteTimeout: s.config.DownloadTimeout + 5*time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	s.server = httpServer

	s.running = true

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("Server error")
		}
	}()

	s.log.Info().Str("addr", listener.Addr().String()).Msg("HTTP server listening")

	return nil
}

// Stop gracefully stops the HTTP server, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServerNotRunning
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.running = false
	s.server = nil
	s.listener = nil

	return nil
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetAddr returns the configured listen address
func (s *Server) GetAddr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// GetActualAddr returns the actual listening address (useful when port is 0)
func (s *Server) GetActualAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.GetAddr()
}
