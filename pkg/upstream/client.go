// Package upstream fetches pages from the upstream website and defines the
// error taxonomy and source registry shared by the resolver and the
// reconciliation job.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream fetches.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overfast_upstream_requests_total",
		Help: "Total upstream page requests by status",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "overfast_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"status"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overfast_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// DefaultMaxBodySize is the largest page accepted by default.
const DefaultMaxBodySize = 10 << 20

// Config holds the page client configuration.
type Config struct {
	// BaseURL is the upstream site root (e.g. "https://overwatch.blizzard.com").
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds a single page fetch.
	Timeout time.Duration

	// AcceptLanguage header, empty to omit.
	AcceptLanguage string

	// MaxBodySize is the largest page accepted, in bytes. A larger page is a
	// ParsingError rather than a silently truncated document.
	MaxBodySize int64
}

// DefaultConfig returns a default page client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://overwatch.blizzard.com",
		UserAgent:   "overfast-proxy/0.1.0",
		Timeout:     10 * time.Second,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// Client downloads upstream pages. It never retries; retry policy belongs to
// the caller.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a page client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %v)", cfg.Timeout)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     log.With().Str("component", "upstream").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// URL returns the absolute upstream URL for loc.
func (c *Client) URL(loc cache.Locator) string {
	var b strings.Builder
	b.WriteString(c.config.BaseURL)
	if loc.Locale != "" {
		b.WriteByte('/')
		b.WriteString(strings.ToLower(loc.Locale))
	}
	if path := strings.Trim(loc.Path, "/"); path != "" {
		b.WriteByte('/')
		b.WriteString(path)
	}
	b.WriteByte('/')
	if len(loc.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(loc.Query.Encode())
	}
	return b.String()
}

// Fetch downloads the page for loc and returns its body. Any non-2xx answer
// is an UpstreamError carrying that status; transport failures map to
// StatusUnreachable and deadline expiry to StatusTimeout.
func (c *Client) Fetch(ctx context.Context, loc cache.Locator) ([]byte, error) {
	url := c.URL(loc)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if c.config.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", c.config.AcceptLanguage)
	}

	c.logger.Debug().Str("url", url).Msg("Fetching upstream page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		ue := c.transportError(ctx, err)
		c.observe(start, strconv.Itoa(ue.Status), Classify(ue))
		c.logger.Warn().Err(err).Str("url", url).Int("status", ue.Status).Msg("Upstream request failed")
		return nil, ue
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodySize+1))
	if err != nil {
		ue := c.transportError(ctx, err)
		c.observe(start, strconv.Itoa(ue.Status), Classify(ue))
		return nil, ue
	}

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ue := &UpstreamError{
			Status:  resp.StatusCode,
			Message: errorMessage(body, resp.Status),
		}
		c.observe(start, status, Classify(ue))
		c.logger.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Str("error_class", string(Classify(ue))).
			Msg("Upstream returned an error")
		return nil, ue
	}

	if int64(len(body)) > c.config.MaxBodySize {
		pe := Parsingf(url, "page exceeds %d bytes", c.config.MaxBodySize)
		c.observe(start, status, ErrorClassParsing)
		c.logger.Error().Err(pe).Str("url", url).Msg("Upstream page too large")
		return nil, pe
	}

	c.observe(start, status, "")
	return body, nil
}

func (c *Client) observe(start time.Time, status string, class ErrorClass) {
	upstreamRequestsTotal.WithLabelValues(status).Inc()
	upstreamRequestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if class != "" {
		upstreamErrorsTotal.WithLabelValues(string(class)).Inc()
	}
}

// transportError converts a client-side failure into an UpstreamError.
func (c *Client) transportError(ctx context.Context, err error) *UpstreamError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &UpstreamError{
			Status:  StatusTimeout,
			Message: fmt.Sprintf("upstream took more than %v to respond", c.config.Timeout),
			Err:     context.DeadlineExceeded,
		}
	}
	return &UpstreamError{
		Status:  StatusUnreachable,
		Message: "upstream unreachable",
		Err:     err,
	}
}

// errorMessage returns the first line of a plain-text error body, or status
// when the body is empty, too long or markup.
func errorMessage(body []byte, status string) string {
	s := strings.TrimSpace(string(body))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if s == "" || len(s) > 200 || strings.HasPrefix(s, "<") {
		return status
	}
	return s
}
