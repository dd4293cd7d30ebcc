package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/rs/zerolog"

	"clipgrab/pkg/models"
)

const (
	maxEmbedBytes = 1 << 20
	maxPageBytes  = 2 << 20
	browserUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	errNoEndpoint     = errors.New("no oEmbed endpoint for platform")
	errBlockedURL     = errors.New("url not allowed for scraping")
	errNoPageMetadata = errors.New("page has no usable metadata")
)

// oembedResponse is the subset of the oEmbed 1.0 response we read
type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// OEmbedResolver reads public embed metadata. It never fails: when both the
// oEmbed call and the page scrape fail it returns a degraded placeholder.
type OEmbedResolver struct {
	http         *http.Client
	endpoints    models.OEmbedConfig
	openGraph    bool
	allowPrivate bool
	log          zerolog.Logger
}

// NewOEmbedResolver creates a resolver for the given endpoints. When
// openGraph is set, a failed oEmbed lookup falls back to scraping the page.
func NewOEmbedResolver(endpoints models.OEmbedConfig, openGraph bool, timeout time.Duration, log zerolog.Logger) *OEmbedResolver {
	return &OEmbedResolver{
		http:      &http.Client{Timeout: timeout},
		endpoints: endpoints,
		openGraph: openGraph,
		log:       log.With().Str("component", "metadata").Str("strategy", models.StrategyOEmbed).Logger(),
	}
}

// Resolve returns embed metadata, scraped page metadata, or a placeholder
func (r *OEmbedResolver) Resolve(ctx context.Context, req models.InfoRequest) (*models.VideoInfo, error) {
	log := loggerFrom(ctx, &r.log)

	info, err := r.fromOEmbed(ctx, req)
	if err == nil {
		return info, nil
	}
	log.Debug().Err(err).Str("platform", string(req.Platform)).Msg("oEmbed lookup failed")

	if r.openGraph {
		info, err = r.fromPage(ctx, req)
		if err == nil {
			return info, nil
		}
		log.Debug().Err(err).Msg("OpenGraph scrape failed")
	}

	log.Warn().Str("platform", string(req.Platform)).Msg("Metadata unavailable, returning placeholder")
	return Placeholder(req.Platform), nil
}

func (r *OEmbedResolver) endpoint(platform models.Platform, target string) (string, error) {
	var base string
	switch platform {
	case models.PlatformTikTok:
		base = r.endpoints.TikTok
	case models.PlatformYouTube:
		base = r.endpoints.YouTube
	}
	if base == "" {
		return "", errNoEndpoint
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid oEmbed endpoint: %w", err)
	}

	q := u.Query()
	if platform == models.PlatformYouTube {
		q.Set("format", "json")
	}
	q.Set("url", target)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (r *OEmbedResolver) fromOEmbed(ctx context.Context, req models.InfoRequest) (*models.VideoInfo, error) {
	endpoint, err := r.endpoint(req.Platform, req.URL)
	if err != nil {
		return nil, err
	}

	body, err := r.get(ctx, endpoint, "application/json", maxEmbedBytes)
	if err != nil {
		return nil, err
	}

	var embed oembedResponse
	if err := json.Unmarshal(body, &embed); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMetadataParse, err)
	}

	return &models.VideoInfo{
		Title:     firstNonEmpty(strings.TrimSpace(embed.Title), defaultTitle(req.Platform)),
		Author:    firstNonEmpty(strings.TrimSpace(embed.AuthorName), unknownAuthor),
		Thumbnail: embed.ThumbnailURL,
	}, nil
}

func (r *OEmbedResolver) fromPage(ctx context.Context, req models.InfoRequest) (*models.VideoInfo, error) {
	if !r.allowPrivate && !scrapeAllowed(req.URL) {
		return nil, errBlockedURL
	}

	body, err := r.get(ctx, req.URL, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8", maxPageBytes)
	if err != nil {
		return nil, err
	}

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("failed to parse OpenGraph: %w", err)
	}

	title := strings.TrimSpace(og.Title)
	var author string
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		if title == "" {
			title = strings.TrimSpace(doc.Find("title").First().Text())
		}
		author = extractAuthor(doc)
	}

	if title == "" {
		return nil, errNoPageMetadata
	}

	info := &models.VideoInfo{
		Title:  title,
		Author: firstNonEmpty(author, unknownAuthor),
	}
	if len(og.Images) > 0 {
		info.Thumbnail = og.Images[0].URL
	}

	return info, nil
}

// extractAuthor looks for the common author markers on video pages
func extractAuthor(doc *goquery.Document) string {
	selectors := []string{
		"meta[name='author']",
		"span[itemprop='author'] link[itemprop='name']",
		"meta[property='og:video:director']",
		"meta[name='twitter:creator']",
	}
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (r *OEmbedResolver) get(ctx context.Context, target, accept string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", models.ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// scrapeAllowed rejects non-http(s) URLs and hosts on loopback or private networks
func scrapeAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return false
		}
	}
	return true
}
