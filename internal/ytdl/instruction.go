package ytdl

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipgrab/pkg/models"
)

// Flags passed to every yt-dlp invocation
var baseArgs = []string{
	"--no-check-certificate",
	"--no-warnings",
	"--no-playlist",
}

const mergeMP4 = "mp4"

// Instruction is the allow-listed part of a yt-dlp command line for one
// platform/type/quality combination.
type Instruction struct {
	Headers  []string
	Format   []string
	Fallback bool
}

// youtubeHeights are the qualities that map onto a height-capped format selector
var youtubeHeights = map[string]bool{
	"1080": true,
	"720":  true,
	"480":  true,
}

var audioArgs = []string{"-x", "--audio-format", "mp3", "--audio-quality", "0"}

// BuildInstruction selects format arguments for the given combination.
// Unknown platforms or types produce a fallback instruction without format
// arguments; this is never an error.
func BuildInstruction(platform models.Platform, mediaType models.MediaType, quality string) Instruction {
	switch platform {
	case models.PlatformTikTok:
		headers := []string{"--add-header", "User-Agent:TikTok"}
		switch mediaType {
		case models.MediaTypeVideo:
			selector := "best"
			if quality == "720" {
				selector = "best[height<=720]"
			}
			return Instruction{
				Headers: headers,
				Format:  []string{"-f", selector, "--merge-output-format", mergeMP4},
			}
		case models.MediaTypeAudio:
			return Instruction{Headers: headers, Format: clone(audioArgs)}
		}
		return Instruction{Headers: headers, Fallback: true}

	case models.PlatformYouTube:
		switch mediaType {
		case models.MediaTypeVideo:
			selector := "bestvideo[ext=mp4]+bestaudio[ext=m4a]"
			if youtubeHeights[quality] {
				selector = fmt.Sprintf("bestvideo[height<=%s][ext=mp4]+bestaudio[ext=m4a]", quality)
			}
			return Instruction{Format: []string{"-f", selector, "--merge-output-format", mergeMP4}}
		case models.MediaTypeAudio:
			return Instruction{Format: clone(audioArgs)}
		}
	}

	return Instruction{Fallback: true}
}

// Args assembles the full yt-dlp argument list. The URL is always the single
// argument after "--" so it can never be parsed as an option.
func Args(inst Instruction, outputTemplate, url string) []string {
	args := make([]string, 0, len(baseArgs)+len(inst.Headers)+len(inst.Format)+4)
	args = append(args, baseArgs...)
	args = append(args, inst.Headers...)
	args = append(args, inst.Format...)
	args = append(args, "-o", outputTemplate, "--", url)
	return args
}

// InfoArgs returns the arguments for a metadata-only JSON dump of url
func InfoArgs(url string) []string {
	return []string{
		"--dump-single-json",
		"--skip-download",
		"--no-warnings",
		"--no-playlist",
		"--",
		url,
	}
}

// Stem returns a unique output file stem of the form
// {platform}_{type}_{unixMillis}_{suffix}. The extension is chosen by yt-dlp.
func Stem(platform models.Platform, mediaType models.MediaType, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%d_%s",
		models.Slug(string(platform)),
		models.Slug(string(mediaType)),
		now.UnixMilli(),
		suffix,
	)
}

// OutputTemplate returns the yt-dlp -o template for stem inside dir
func OutputTemplate(dir, stem string) string {
	return filepath.Join(dir, stem+".%(ext)s")
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
