// Package client is a Go client for the clipgrab HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipgrab/pkg/models"
)

// ErrTransport wraps failures to reach the server or read its response
var ErrTransport = errors.New("request failed")

// APIError is a {success:false, error} response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Info is the body of a successful /api/info response
type Info struct {
	URL       string  `json:"url"`
	Platform  string  `json:"platform"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Thumbnail *string `json:"thumbnail"`
	Duration  int     `json:"duration"`
	Views     int64   `json:"views"`
	Degraded  bool    `json:"degraded"`
}

// Download is the outcome of /api/download. DownloadURL is set when the
// server returned a link; Path when it streamed the file and it was saved.
type Download struct {
	Type        string
	Filename    string
	DownloadURL string
	Path        string
	Size        int64
}

// Client talks to a clipgrab server
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL. A nil httpClient uses a
// client without an overall timeout, since downloads may stream for minutes.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 15 * time.Minute,
		}}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Info requests metadata for a URL
func (c *Client) Info(ctx context.Context, req models.InfoRequest) (*Info, error) {
	resp, err := c.post(ctx, "/api/info", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		envelope
		Info
	}
	if err := decode(resp, &body); err != nil {
		return nil, err
	}
	if err := body.check(resp.StatusCode); err != nil {
		return nil, err
	}

	return &body.Info, nil
}

// Download requests a media file. A streamed response is written into
// dstDir under the name from Content-Disposition.
func (c *Client) Download(ctx context.Context, req models.DownloadRequest, dstDir string) (*Download, error) {
	resp, err := c.post(ctx, "/api/download", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if isJSON(resp.Header.Get("Content-Type")) {
		var body struct {
			envelope
			DownloadURL string `json:"downloadUrl"`
			Filename    string `json:"filename"`
			Type        string `json:"type"`
		}
		if err := decode(resp, &body); err != nil {
			return nil, err
		}
		if err := body.check(resp.StatusCode); err != nil {
			return nil, err
		}
		if body.DownloadURL == "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: "Download failed"}
		}
		return &Download{
			Type:        body.Type,
			Filename:    body.Filename,
			DownloadURL: body.DownloadURL,
		}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	name := attachmentName(resp.Header.Get("Content-Disposition"))
	path, size, err := save(resp.Body, dstDir, name)
	if err != nil {
		return nil, err
	}

	return &Download{
		Type:     string(req.Type),
		Filename: name,
		Path:     path,
		Size:     size,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return resp, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (e envelope) check(status int) error {
	if e.Success && status == http.StatusOK {
		return nil
	}
	msg := e.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

func decode(resp *http.Response, v any) error {
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", ErrTransport, err)
	}
	return nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// attachmentName extracts a safe base name from a Content-Disposition header
func attachmentName(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err == nil {
		name := filepath.Base(filepath.Clean("/" + params["filename"]))
		if name != "/" && name != "." && name != "" {
			return name
		}
	}
	return "download"
}

// save writes r to dir/name through a temporary file so a failed transfer
// never leaves a truncated file under the final name.
func save(r io.Reader, dir, name string) (string, int64, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create destination: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	dst := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", 0, fmt.Errorf("failed to save file: %w", err)
	}
	return dst, size, nil
}
