// Package metadata resolves title, author and thumbnail for a media URL,
// either from a yt-dlp JSON dump or from the platforms' public oEmbed
// endpoints.
package metadata

import (
	"context"

	"github.com/rs/zerolog"

	"clipgrab/pkg/models"
)

const unknownAuthor = "Unknown"

// Resolver looks up metadata for one URL
type Resolver interface {
	Resolve(ctx context.Context, req models.InfoRequest) (*models.VideoInfo, error)
}

// Placeholder returns the degraded metadata used when every lookup failed
func Placeholder(platform models.Platform) *models.VideoInfo {
	info := &models.VideoInfo{Degraded: true}

	switch platform {
	case models.PlatformTikTok:
		info.Title, info.Author = "TikTok Video", "TikTok User"
	case models.PlatformYouTube:
		info.Title, info.Author = "YouTube Video", "YouTube Creator"
	default:
		info.Title, info.Author = "Video", "User"
	}

	return info
}

// defaultTitle is used when an embed response has no title
func defaultTitle(platform models.Platform) string {
	switch platform {
	case models.PlatformTikTok:
		return "TikTok Video"
	case models.PlatformYouTube:
		return "YouTube Video"
	default:
		return "Video"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func loggerFrom(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return fallback
}
