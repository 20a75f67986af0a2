package blackmarble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

var (
	ErrNoData       = errors.New("no Black Marble granule available")
	ErrUnauthorized = errors.New("LAADS rejected the bearer token")
)

// Granule is one row of a LAADS directory listing.
type Granule struct {
	Name         string `csv:"name"`
	LastModified string `csv:"last_modified"`
	Size         int64  `csv:"size"`
}

// Tile reports whether the granule covers t, going by the hXXvYY part of its name.
func (g Granule) Tile(t Tile) bool {
	return strings.Contains(g.Name, "."+t.Name()+".")
}

type ClientConfig struct {
	BaseURL           string
	BearerToken       string
	DownloadDir       string
	Timeout           time.Duration
	RequestsPerSecond float64
	Retries           int
	RetryWait         time.Duration
}

// Client talks to the LAADS DAAC archive.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = 2 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	base := &http.Client{Timeout: cfg.Timeout}
	httpClient := base
	if cfg.BearerToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.BearerToken,
			TokenType:   "Bearer",
		}))
		httpClient.Timeout = cfg.Timeout
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With().Str("component", "laads").Logger(),
	}
}

func (c *Client) dirURL(p Product, date time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), p.Collection, p.ID, DayOfYearPath(date))
}

// List returns the granules published for the product on date.
func (c *Client) List(ctx context.Context, p Product, date time.Time) ([]Granule, error) {
	url := c.dirURL(p, date) + ".csv"
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing %s: %w", url, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty listing for %s %s", ErrNoData, p.ID, FormatDate(p, date))
	}

	var granules []Granule
	if err := gocsv.UnmarshalBytes(data, &granules); err != nil {
		return nil, fmt.Errorf("failed to parse listing %s: %w", url, err)
	}
	return granules, nil
}

// Download stores the granule under DownloadDir and returns its path. Files already on disk are reused.
func (c *Client) Download(ctx context.Context, p Product, date time.Time, g Granule) (string, error) {
	dir := filepath.Join(c.cfg.DownloadDir, p.ID, DayOfYearPath(date))
	dst := filepath.Join(dir, g.Name)
	if info, err := os.Stat(dst); err == nil && info.Size() > 0 {
		c.logger.Debug().Str("file", dst).Msg("granule already downloaded")
		return dst, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}

	body, err := c.get(ctx, c.dirURL(p, date)+"/"+g.Name)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(dir, g.Name+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", g.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close %s: %w", g.Name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move %s into place: %w", g.Name, err)
	}
	c.logger.Info().Str("file", g.Name).Msg("granule downloaded")
	return dst, nil
}

// get retries transient failures. 404 and auth errors are returned immediately.
func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err == nil {
			switch {
			case resp.StatusCode == http.StatusOK:
				return resp.Body, nil
			case resp.StatusCode == http.StatusNotFound:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %s", ErrNoData, url)
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
			}
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			err = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Str("url", url).Msg("LAADS request failed")

		if attempt == c.cfg.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.RetryWait):
		}
	}
	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", url, c.cfg.Retries, lastErr)
}
