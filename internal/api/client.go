package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
	"github.com/jagoanbunda/bunda-cli/internal/infra/buildinfo"
	"github.com/jagoanbunda/bunda-cli/internal/infra/tlsroots"
	"github.com/jagoanbunda/bunda-cli/internal/telemetry/logger"
)

// DefaultBaseURL is the production API.
const DefaultBaseURL = "https://web.jagoanbunda.udahdikerjain.my.id/api/v1"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// TokenSource supplies the bearer token for each request.
// An empty token sends the request unauthenticated.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// RequestObserver is told about every completed round trip.
// status is 0 when no response was received.
type RequestObserver interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
}

// Config configures the HTTP client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// RateLimit is the sustained requests per second; 0 disables limiting.
	RateLimit float64
	Burst     int

	// CAFile adds a PEM bundle to the system roots.
	CAFile             string
	InsecureSkipVerify bool
}

// DefaultConfig returns the production client settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   30 * time.Second,
		RateLimit: 5,
		Burst:     10,
	}
}

// Client performs authenticated JSON requests against the backend.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	limiter   *rate.Limiter
	observer  RequestObserver
	logger    logger.Logger
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource sets where bearer tokens are read from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithObserver reports every request to o.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:   baseURL,
		logger:    logger.Default(),
		userAgent: buildinfo.UserAgent(),
		limiter:   rate.NewLimiter(rate.Inf, 0),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	tlsCfg, err := clientTLSConfig(cfg)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	c.http = &http.Client{Timeout: cfg.Timeout, Transport: transport}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func clientTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.CAFile == "" && !cfg.InsecureSkipVerify {
		return nil, nil
	}
	pool, err := tlsroots.NewPool()
	if err != nil {
		return nil, fmt.Errorf("load system roots: %w", err)
	}
	if cfg.CAFile != "" {
		if err := pool.AddCertFile(cfg.CAFile); err != nil {
			return nil, fmt.Errorf("load CA file: %w", err)
		}
	}
	tlsCfg := pool.TLSConfig()
	tlsCfg.InsecureSkipVerify = cfg.InsecureSkipVerify
	return tlsCfg, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request. Empty query values are dropped.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	if q := encodeQuery(query); q != "" {
		path += "?" + q
	}
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// Put performs a PUT request with an optional JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

// PutMultipart performs a PUT request with a multipart/form-data body.
func (c *Client) PutMultipart(ctx context.Context, path string, form *Form, out any) error {
	return c.doMultipart(ctx, http.MethodPut, path, form, out)
}

// PostMultipart performs a POST request with a multipart/form-data body.
func (c *Client) PostMultipart(ctx context.Context, path string, form *Form, out any) error {
	return c.doMultipart(ctx, http.MethodPost, path, form, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		payload = data
	}
	return c.do(ctx, method, path, "application/json", payload, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, form *Form, out any) error {
	payload, contentType, err := form.encode()
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	return c.do(ctx, method, path, contentType, payload, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, payload []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.NewNetworkError(fmt.Errorf("rate limit: %w", err))
	}

	token := ""
	if c.tokens != nil {
		t, err := c.tokens.GetToken(ctx)
		if err != nil {
			return err
		}
		token = t
	}

	reqID := ulid.Make().String()
	ctx = logger.WithRequestID(ctx, reqID)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.logger.WithContext(ctx).With("method", method, "path", path)
	start := time.Now()

	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(method, 0, elapsed)
		log.Debug("request failed", "error", err, "elapsed", elapsed)
		return domain.NewNetworkError(err)
	}
	defer resp.Body.Close()

	c.observe(method, resp.StatusCode, elapsed)
	log.Debug("request completed", "status", resp.StatusCode, "elapsed", elapsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.ErrAPI.WithMessage("malformed response body").WithCause(err)
	}
	return nil
}

func (c *Client) observe(method string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, status, elapsed)
	}
}

// decodeError turns a non-2xx response into a *domain.Error. An unreadable
// body falls back to the default message.
func decodeError(resp *http.Response) error {
	var body domain.ErrorResponse
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(data) > 0 {
		if jerr := json.Unmarshal(data, &body); jerr != nil {
			body = domain.ErrorResponse{}
		}
	}
	return domain.NewAPIError(resp.StatusCode, body)
}

func encodeQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	clean := url.Values{}
	for k, vs := range q {
		for _, v := range vs {
			if v != "" {
				clean.Add(k, v)
			}
		}
	}
	return clean.Encode()
}
