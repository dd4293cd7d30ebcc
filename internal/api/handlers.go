package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"clipgrab/internal/scratch"
	"clipgrab/pkg/models"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 64 << 10

// User-facing messages. Raw error text is only logged.
const (
	msgInvalidBody    = "Invalid request body"
	msgURLRequired    = "URL is required"
	msgInfoFailed     = "Failed to fetch video information"
	msgInfoParse      = "Failed to parse video information"
	msgDownloadFailed = "Download failed"
	msgFileNotFound   = "Downloaded file not found"
	msgNoDownloadURL  = "Could not get download URL"
	msgInternal       = "Internal server error"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type infoResponse struct {
	Success   bool    `json:"success"`
	URL       string  `json:"url"`
	Platform  string  `json:"platform"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Thumbnail *string `json:"thumbnail"`
	Duration  int     `json:"duration"`
	Views     int64   `json:"views"`
	Degraded  bool    `json:"degraded"`
}

type downloadResponse struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"downloadUrl"`
	Filename    string `json:"filename"`
	Type        string `json:"type"`
}

type statusResponse struct {
	Running          bool           `json:"running"`
	Version          string         `json:"version"`
	DownloadStrategy string         `json:"downloadStrategy"`
	InfoStrategy     string         `json:"infoStrategy"`
	YtdlpPath        string         `json:"ytdlpPath,omitempty"`
	Scratch          *scratch.Stats `json:"scratch,omitempty"`
}

// handleHealth handles health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus reports the deployment strategy and scratch usage
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Running:          s.IsRunning(),
		Version:          s.version,
		DownloadStrategy: s.config.DownloadStrategy,
		InfoStrategy:     s.config.InfoStrategy,
		YtdlpPath:        s.ytdlpPath,
	}

	if s.scratch != nil {
		stats, err := s.scratch.Stats()
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Failed to read scratch stats")
		} else {
			resp.Scratch = &stats
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleInfo handles POST /api/info
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var req models.InfoRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	info, err := s.info.Resolve(r.Context(), req)
	if err != nil {
		status, msg := classify(err)
		if errors.Is(err, models.ErrFetchFailed) {
			msg = msgInfoFailed
		}
		hlog.FromRequest(r).Error().Err(err).Str("url", req.URL).Msg("Info lookup failed")
		writeError(w, status, msg)
		return
	}

	resp := infoResponse{
		Success:  true,
		URL:      req.URL,
		Platform: string(req.Platform),
		Title:    info.Title,
		Author:   info.Author,
		Duration: info.Duration,
		Views:    info.Views,
		Degraded: info.Degraded,
	}
	if info.Thumbnail != "" {
		resp.Thumbnail = &info.Thumbnail
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleDownload handles POST /api/download
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	var req models.DownloadRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	artifact, err := s.fetcher.Fetch(r.Context(), req)
	if err != nil {
		status, msg := classify(err)
		log.Error().Err(err).
			Str("url", req.URL).
			Str("platform", string(req.Platform)).
			Str("type", string(req.Type)).
			Msg("Download failed")
		writeError(w, status, msg)
		return
	}

	// Released even if the client has gone away
	defer s.fetcher.Release(context.WithoutCancel(r.Context()), artifact)

	switch {
	case artifact.Remote != nil:
		writeJSON(w, http.StatusOK, downloadResponse{
			Success:     true,
			DownloadURL: artifact.Remote.DownloadURL,
			Filename:    artifact.Remote.Filename,
			Type:        string(req.Type),
		})

	case artifact.Local != nil:
		if err := streamFile(w, artifact.Local); err != nil {
			log.Warn().Err(err).Str("file", artifact.Local.Name).Msg("Streaming interrupted")
		}

	default:
		log.Error().Msg("Fetcher returned an empty artifact")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// streamFile writes a local artifact as an attachment
func streamFile(w http.ResponseWriter, a *models.LocalArtifact) error {
	f, err := os.Open(a.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgFileNotFound)
		return err
	}
	defer f.Close()

	h := w.Header()
	h.Set("Content-Type", a.ContentType)
	h.Set("Content-Length", strconv.FormatInt(a.Size, 10))
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		return err
	}
	// Push the body out before the deferred release removes the file
	_ = http.NewResponseController(w).Flush()
	return nil
}

// decodeRequest parses a JSON body into v. An empty body decodes to the
// zero value so validation can report the missing URL.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

// classify maps a fetch error onto a status code and a fixed message
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, msgURLRequired
	case errors.Is(err, models.ErrArtifactNotFound):
		return http.StatusInternalServerError, msgFileNotFound
	case errors.Is(err, models.ErrNoDownloadURL):
		return http.StatusInternalServerError, msgNoDownloadURL
	case errors.Is(err, models.ErrMetadataParse):
		return http.StatusInternalServerError, msgInfoParse
	case errors.Is(err, models.ErrFetchFailed):
		return http.StatusInternalServerError, msgDownloadFailed
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
