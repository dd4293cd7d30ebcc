package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"clipgrab/internal/ytdl"
	"clipgrab/pkg/models"
)

// DefaultYtdlpTimeout bounds a metadata dump
const DefaultYtdlpTimeout = 30 * time.Second

// ytdlpInfo is the subset of yt-dlp's --dump-single-json output we read
type ytdlpInfo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Uploader  string   `json:"uploader"`
	Channel   string   `json:"channel"`
	Creator   string   `json:"creator"`
	Duration  *float64 `json:"duration"`
	ViewCount *int64   `json:"view_count"`
	Thumbnail string   `json:"thumbnail"`
}

// YtdlpResolver reads metadata from a yt-dlp JSON dump
type YtdlpResolver struct {
	runner  ytdl.Runner
	timeout time.Duration
	log     zerolog.Logger
}

// NewYtdlpResolver creates a resolver backed by runner
func NewYtdlpResolver(runner ytdl.Runner, timeout time.Duration, log zerolog.Logger) *YtdlpResolver {
	if timeout <= 0 {
		timeout = DefaultYtdlpTimeout
	}
	return &YtdlpResolver{
		runner:  runner,
		timeout: timeout,
		log:     log.With().Str("component", "metadata").Str("strategy", models.StrategyYtdlp).Logger(),
	}
}

// Resolve runs yt-dlp without downloading and maps its JSON output
func (r *YtdlpResolver) Resolve(ctx context.Context, req models.InfoRequest) (*models.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.runner.Run(ctx, ytdl.InfoArgs(req.URL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetchFailed, err)
	}

	info, err := parseYtdlpJSON(out)
	if err != nil {
		loggerFrom(ctx, &r.log).Warn().Err(err).Int("bytes", len(out)).Msg("Could not parse yt-dlp output")
		return nil, err
	}

	return info, nil
}

func parseYtdlpJSON(data []byte) (*models.VideoInfo, error) {
	var raw ytdlpInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMetadataParse, err)
	}

	title := strings.TrimSpace(firstNonEmpty(raw.Title, raw.ID))
	if title == "" {
		return nil, fmt.Errorf("%w: output has neither title nor id", models.ErrMetadataParse)
	}

	info := &models.VideoInfo{
		Title:     title,
		Author:    firstNonEmpty(raw.Uploader, raw.Channel, raw.Creator, unknownAuthor),
		Thumbnail: raw.Thumbnail,
	}
	if raw.Duration != nil && *raw.Duration > 0 {
		info.Duration = int(math.Floor(*raw.Duration))
	}
	if raw.ViewCount != nil {
		info.Views = *raw.ViewCount
	}

	return info, nil
}
