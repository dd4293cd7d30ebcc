package ui

import (
	"fmt"
	"strings"

	"clipgrab/pkg/models"
)

// Option is one download choice offered after a successful analysis
type Option struct {
	Title       string
	Description string
	Type        models.MediaType
	Quality     string
}

// Request builds the download request for this option
func (o Option) Request(url string, platform models.Platform) models.DownloadRequest {
	return models.DownloadRequest{
		URL:      url,
		Platform: platform,
		Type:     o.Type,
		Quality:  o.Quality,
	}
}

var tiktokOptions = []Option{
	{Title: "Video HD", Description: "Download without watermark", Type: models.MediaTypeVideo, Quality: "best"},
	{Title: "Audio MP3", Description: "Extract audio only", Type: models.MediaTypeAudio, Quality: "mp3"},
	{Title: "Video 720p", Description: "Medium quality", Type: models.MediaTypeVideo, Quality: "720"},
}

var youtubeOptions = []Option{
	{Title: "Video 1080p", Description: "Best quality video + audio", Type: models.MediaTypeVideo, Quality: "1080"},
	{Title: "Video 720p", Description: "Good quality, smaller size", Type: models.MediaTypeVideo, Quality: "720"},
	{Title: "Video 480p", Description: "Standard quality", Type: models.MediaTypeVideo, Quality: "480"},
	{Title: "Audio MP3", Description: "High quality audio", Type: models.MediaTypeAudio, Quality: "mp3"},
}

// Options returns the download choices for a platform. Anything other than
// TikTok gets the YouTube set.
func Options(platform models.Platform) []Option {
	src := youtubeOptions
	if platform == models.PlatformTikTok {
		src = tiktokOptions
	}
	out := make([]Option, len(src))
	copy(out, src)
	return out
}

// FindOption picks an option by 1-based index or by title, case-insensitive
func FindOption(opts []Option, key string) (Option, bool) {
	key = strings.TrimSpace(key)
	for i, o := range opts {
		if key == fmt.Sprint(i+1) || strings.EqualFold(key, o.Title) {
			return o, true
		}
	}
	return Option{}, false
}
