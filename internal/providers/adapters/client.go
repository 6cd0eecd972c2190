package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/nexconsult/investigacao-api/internal/models"
)

const (
	userAgent       = "investigacao-api/1.0"
	maxResponseSize = 8 << 20
)

// ErrNotFound is returned for 404 responses. Most providers answer 404 when
// the document has no records, which adapters map to an empty result.
var ErrNotFound = errors.New("provider returned 404")

// StatusError is a non-2xx response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("provider returned HTTP %d: %s", e.Code, body)
}

// Auth decorates an outgoing request with provider credentials
type Auth func(req *http.Request)

// Bearer sets an OAuth/JWT bearer token
func Bearer(token string) Auth {
	return func(req *http.Request) {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// HeaderKey sets an API key in the named header
func HeaderKey(header, value string) Auth {
	return func(req *http.Request) {
		if value != "" {
			req.Header.Set(header, value)
		}
	}
}

// Client is the HTTP client shared by adapters. Requests are smoothed by a
// token bucket so bursts from one scan do not trip provider-side throttling.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter

	// baseline restored when a provider drops its per-minute ceiling
	baseLimit rate.Limit
	baseBurst int
}

// NewClient creates a client with the given per-attempt timeout and request
// rate
func NewClient(timeout time.Duration, perSecond float64, burst int) *Client {
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
		baseLimit: rate.Limit(perSecond),
		baseBurst: burst,
	}
}

// Tune follows the provider's configured per-minute ceiling, raising or
// lowering the request rate as the config changes. Without a ceiling the
// client returns to its baseline. The burst never exceeds the ceiling.
func (c *Client) Tune(cfg *models.ProviderConfig) {
	limit, burst := c.baseLimit, c.baseBurst
	if cfg != nil && cfg.RateLimitPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RateLimitPerMinute) / 60)
		burst = min(c.baseBurst, cfg.RateLimitPerMinute)
	}
	if c.limiter.Limit() != limit {
		c.limiter.SetLimit(limit)
	}
	if c.limiter.Burst() != burst {
		c.limiter.SetBurst(burst)
	}
}

// GetJSON performs a GET and decodes the JSON body into out. The raw body is
// returned for auditing.
func (c *Client) GetJSON(ctx context.Context, url string, auth Auth, out interface{}) ([]byte, error) {
	raw, err := c.do(ctx, http.MethodGet, url, nil, "application/json", auth)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return raw, fmt.Errorf("decode response: %w", err)
	}
	return raw, nil
}

// PostJSON posts body as JSON and decodes the JSON response into out
func (c *Client) PostJSON(ctx context.Context, url string, auth Auth, body, out interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, url, payload, "application/json", auth)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return raw, fmt.Errorf("decode response: %w", err)
	}
	return raw, nil
}

// GetHTML performs a GET and parses the page
func (c *Client) GetHTML(ctx context.Context, url string, auth Auth) (*goquery.Document, []byte, error) {
	raw, err := c.do(ctx, http.MethodGet, url, nil, "text/html", auth)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, raw, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, raw, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, accept string, auth Auth) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != nil {
		auth(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return raw, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return raw, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}
