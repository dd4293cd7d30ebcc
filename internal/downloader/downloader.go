package downloader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"clipgrab/internal/scratch"
	"clipgrab/internal/ytdl"
	"clipgrab/pkg/models"
)

// DefaultTimeout bounds a single yt-dlp run
const DefaultTimeout = 10 * time.Minute

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".m4a":  "audio/mp4",
}

// ContentTypeFor infers a media type from the file extension
func ContentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Downloader runs yt-dlp into the scratch directory and hands back the
// resulting file. The caller owns the artifact until Release.
type Downloader struct {
	dir     *scratch.Dir
	runner  ytdl.Runner
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// NewDownloader creates a downloader writing into dir
func NewDownloader(dir *scratch.Dir, runner ytdl.Runner, timeout time.Duration, log zerolog.Logger) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Downloader{
		dir:     dir,
		runner:  runner,
		timeout: timeout,
		log:     log.With().Str("component", "downloader").Logger(),
		now:     time.Now,
	}
}

// Fetch downloads req synchronously and returns a local artifact.
// The run is cancelled when ctx is done or the timeout elapses.
func (d *Downloader) Fetch(ctx context.Context, req models.DownloadRequest) (*models.Artifact, error) {
	log := d.logger(ctx)

	if err := d.dir.Ensure(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetchFailed, err)
	}

	inst := ytdl.BuildInstruction(req.Platform, req.Type, req.Quality)
	stem := ytdl.Stem(req.Platform, req.Type, d.now())
	args := ytdl.Args(inst, ytdl.OutputTemplate(d.dir.Path(), stem), req.URL)

	if inst.Fallback {
		log.Debug().
			Str("platform", string(req.Platform)).
			Str("type", string(req.Type)).
			Msg("No format rule for request, using yt-dlp defaults")
	}

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	if _, err := d.runner.Run(runCtx, args); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: timed out after %s: %v", models.ErrFetchFailed, d.timeout, err)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrFetchFailed, err)
	}

	path, info, err := d.dir.Find(stem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrArtifactNotFound, err)
	}

	artifact := &models.LocalArtifact{
		Path:        path,
		Name:        info.Name(),
		ContentType: ContentTypeFor(info.Name()),
		Size:        info.Size(),
	}

	log.Info().
		Str("file", artifact.Name).
		Int64("size", artifact.Size).
		Dur("took", time.Since(start)).
		Msg("yt-dlp download finished")

	return &models.Artifact{Local: artifact}, nil
}

// Release deletes the artifact's file. Failures are logged only.
func (d *Downloader) Release(ctx context.Context, artifact *models.Artifact) {
	if artifact == nil || artifact.Local == nil {
		return
	}

	if err := d.dir.Remove(artifact.Local.Path); err != nil {
		d.logger(ctx).Warn().Err(err).Str("file", artifact.Local.Name).Msg("Failed to remove downloaded file")
	}
}

func (d *Downloader) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &d.log
}
