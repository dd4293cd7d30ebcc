package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"clipgrab/pkg/models"
)

// maxResponseBytes caps how much of a provider response is read
const maxResponseBytes = 1 << 20

var (
	errNoURLInResponse = errors.New("response has no usable media URL")
	errInvalidJSON     = errors.New("response is not valid JSON")
)

// Client resolves direct media URLs through third-party download APIs.
// For each platform the primary provider is tried first, then the fallback.
type Client struct {
	http      *http.Client
	providers map[models.Platform][]models.ProviderConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewClient creates a client for the configured providers
func NewClient(providers models.ProvidersConfig, timeout time.Duration, log zerolog.Logger) *Client {
	return NewClientWithHTTP(providers, &http.Client{Timeout: timeout}, log)
}

// NewClientWithHTTP creates a client that uses httpClient for provider calls
func NewClientWithHTTP(providers models.ProvidersConfig, httpClient *http.Client, log zerolog.Logger) *Client {
	return &Client{
		http: httpClient,
		providers: map[models.Platform][]models.ProviderConfig{
			models.PlatformTikTok:  enabled(providers.TikTok),
			models.PlatformYouTube: enabled(providers.YouTube),
		},
		log: log.With().Str("component", "remote").Logger(),
		now: time.Now,
	}
}

func enabled(p models.PlatformProviders) []models.ProviderConfig {
	var out []models.ProviderConfig
	for _, cfg := range []models.ProviderConfig{p.Primary, p.Fallback} {
		if cfg.Enabled() {
			out = append(out, cfg)
		}
	}
	return out
}

// Providers returns the names of the providers tried for platform, in order
func (c *Client) Providers(platform models.Platform) []string {
	var names []string
	for _, p := range c.providers[platform] {
		names = append(names, p.Name)
	}
	return names
}

// Fetch asks each provider for a direct URL until one returns a usable one
func (c *Client) Fetch(ctx context.Context, req models.DownloadRequest) (*models.Artifact, error) {
	log := c.logger(ctx)

	candidates := c.providers[req.Platform]
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no provider for platform %q", models.ErrNoDownloadURL, req.Platform)
	}

	vars := placeholders(req)
	var failures []string
	for _, p := range candidates {
		link, err := c.resolve(ctx, p, req.Type, vars)
		if err == nil {
			log.Info().Str("provider", p.Name).Msg("Resolved direct media URL")
			return &models.Artifact{Remote: &models.RemoteArtifact{
				DownloadURL: link,
				Filename:    c.filename(req),
				Provider:    p.Name,
			}}, nil
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrFetchFailed, ctx.Err())
		}

		log.Warn().Err(err).Str("provider", p.Name).Msg("Provider did not return a media URL")
		failures = append(failures, fmt.Sprintf("%s: %v", p.Name, err))
	}

	return nil, fmt.Errorf("%w: %s", models.ErrNoDownloadURL, strings.Join(failures, "; "))
}

// Release is a no-op; remote artifacts never touch disk
func (c *Client) Release(ctx context.Context, artifact *models.Artifact) {}

func (c *Client) filename(req models.DownloadRequest) string {
	return fmt.Sprintf("%s_%s_%d.%s",
		models.Slug(string(req.Platform)),
		models.Slug(string(req.Type)),
		c.now().UnixMilli(),
		req.Type.Extension(),
	)
}

func (c *Client) resolve(ctx context.Context, p models.ProviderConfig, mediaType models.MediaType, vars map[string]string) (string, error) {
	base, err := url.Parse(p.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}

	httpReq, err := buildRequest(ctx, p, base, vars)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	if !gjson.ValidBytes(body) {
		return "", errInvalidJSON
	}

	paths := p.VideoPaths
	if mediaType == models.MediaTypeAudio {
		paths = p.AudioPaths
	}

	for _, path := range paths {
		v := gjson.GetBytes(body, path)
		if v.Type != gjson.String {
			continue
		}
		if link, ok := absoluteHTTP(base, v.Str); ok {
			return link, nil
		}
	}

	return "", errNoURLInResponse
}

func buildRequest(ctx context.Context, p models.ProviderConfig, base *url.URL, vars map[string]string) (*http.Request, error) {
	method := strings.ToUpper(p.Method)
	if method == "" {
		method = http.MethodGet
	}

	target := *base
	if len(p.Query) > 0 {
		q := target.Query()
		for k, v := range p.Query {
			q.Set(k, expand(v, vars))
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	if method != http.MethodGet && len(p.Body) > 0 {
		payload := make(map[string]string, len(p.Body))
		for k, v := range p.Body {
			payload[k] = expand(v, vars)
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// placeholders returns the values substituted into provider query and body templates
func placeholders(req models.DownloadRequest) map[string]string {
	mode := "auto"
	if req.Type == models.MediaTypeAudio {
		mode = "audio"
	}

	height := "max"
	if isDigits(req.Quality) {
		height = req.Quality
	}

	return map[string]string{
		"{url}":     req.URL,
		"{type}":    string(req.Type),
		"{quality}": req.Quality,
		"{height}":  height,
		"{mode}":    mode,
		"{ext}":     req.Type.Extension(),
	}
}

func expand(tmpl string, vars map[string]string) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// absoluteHTTP resolves ref against base and accepts only http(s) URLs
func absoluteHTTP(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	u = base.ResolveReference(u)

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (c *Client) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &c.log
}
