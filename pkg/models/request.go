package models

import (
	"fmt"
	"strings"
)

// Platform identifies the site a media URL belongs to
type Platform string

const (
	PlatformTikTok  Platform = "tiktok"
	PlatformYouTube Platform = "youtube"
)

// MediaType selects between a video download and an audio extraction
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// Extension returns the file extension used when naming a remote artifact
func (t MediaType) Extension() string {
	if t == MediaTypeAudio {
		return "mp3"
	}
	return "mp4"
}

// DownloadRequest is the body of POST /api/download
type DownloadRequest struct {
	URL      string    `json:"url"`
	Platform Platform  `json:"platform"`
	Type     MediaType `json:"type"`
	Quality  string    `json:"quality"`
}

// Validate checks the request before it is dispatched to a fetcher.
// Only presence of the URL is enforced; unknown platforms and types are
// carried through so the instruction table can fall back.
func (r *DownloadRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	r.Platform = Platform(strings.ToLower(strings.TrimSpace(string(r.Platform))))
	r.Type = MediaType(strings.ToLower(strings.TrimSpace(string(r.Type))))
	r.Quality = strings.TrimSpace(r.Quality)

	if r.URL == "" {
		return fmt.Errorf("%w: URL is required", ErrValidation)
	}
	return nil
}

// InfoRequest is the body of POST /api/info
type InfoRequest struct {
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
}

// Validate checks that a URL was supplied
func (r *InfoRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	r.Platform = Platform(strings.ToLower(strings.TrimSpace(string(r.Platform))))

	if r.URL == "" {
		return fmt.Errorf("%w: URL is required", ErrValidation)
	}
	return nil
}

// Slug reduces s to [a-z0-9-] so request values can be used in file names.
// An empty result becomes "unknown".
func Slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
