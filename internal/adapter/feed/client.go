package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/road-defect-dashboard/internal/domain"
	"github.com/couchcryptid/road-defect-dashboard/internal/observability"
)

// Resource names of the published feed, relative to the base URL.
const (
	DefectsCSV     = "defects.csv"
	WorstRoadsJSON = "worst_roads.json"
	StatsJSON      = "stats.json"
	HeatmapJSON    = "heatmap.json"
)

// cacheBustParam is the query parameter carrying the request timestamp.
const cacheBustParam = "t"

// StatusError reports a non-success HTTP response for a feed resource.
type StatusError struct {
	Resource   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.Resource, e.StatusCode)
}

// Client fetches feed resources from a static host.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client rooted at baseURL. A URL naming a page
// (last path segment with an extension, e.g. .../index.html) is reduced to its
// directory with DetectBaseURL; any other path is treated as the directory
// itself. A zero timeout means no client-side timeout.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("feed base url %q must be absolute", baseURL)
	}
	if path.Ext(u.Path) != "" && !strings.HasSuffix(u.Path, "/") {
		dir, err := DetectBaseURL(baseURL)
		if err != nil {
			return nil, err
		}
		if u, err = url.Parse(dir); err != nil {
			return nil, fmt.Errorf("parse feed base url: %w", err)
		}
	}
	u.RawQuery = ""
	u.Fragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}, nil
}

// BaseURL returns the resolved base directory.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// URL resolves a resource against the base directory and appends the
// cache-busting timestamp.
func (c *Client) URL(resource string) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: resource})
	q := u.Query()
	q.Set(cacheBustParam, strconv.FormatInt(domain.Clock().Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch downloads one resource. Non-2xx responses return *StatusError.
func (c *Client) Fetch(ctx context.Context, resource string) ([]byte, error) {
	start := domain.Clock().Now()
	defer func() {
		c.metrics.FeedFetchDuration.WithLabelValues(resource).Observe(domain.Clock().Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(resource), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FeedFetches.WithLabelValues(resource, "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		c.metrics.FeedFetches.WithLabelValues(resource, "http_error").Inc()
		return nil, &StatusError{Resource: resource, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.FeedFetches.WithLabelValues(resource, "error").Inc()
		return nil, fmt.Errorf("read %s: %w", resource, err)
	}

	c.metrics.FeedFetches.WithLabelValues(resource, "success").Inc()
	c.logger.Debug("feed resource fetched", "resource", resource, "bytes", len(body))
	return body, nil
}

// DetectBaseURL returns the directory part of a page URL, so that a feed
// served next to a page under a sub-path resolves against that sub-path.
// Query and fragment are dropped; a path ending in "/" is already a directory.
func DetectBaseURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	u.RawQuery = ""
	u.Fragment = ""
	switch {
	case u.Path == "":
		u.Path = "/"
	case !strings.HasSuffix(u.Path, "/"):
		dir := path.Dir(u.Path)
		if dir != "/" {
			dir += "/"
		}
		u.Path = dir
	}
	u.RawPath = ""
	return u.String(), nil
}
