package eventstore

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client talks to one event store over HTTP.
//
// Every operation returns the Response it produced, so a Client is safe for
// concurrent use. LastResponse is kept for callers that prefer to inspect the
// most recent response after the fact; with concurrent callers it may belong
// to another goroutine's request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	logger     *zap.Logger
	metrics    *Metrics
	cache      FeedCache

	mu           sync.Mutex
	lastResponse *Response
}

// NewClient creates a client for the store at baseURL and probes it with
// GET baseURL.
//
// If the probe cannot be sent (DNS or connect failure) NewClient returns an
// error matching ErrConnectionFailed. An HTTP error status from the probe is
// not an error; it is available from LastResponse.
//
// Example:
//
//	client, err := eventstore.NewClient(ctx, "http://127.0.0.1:2113")
//	if errors.Is(err, eventstore.ErrConnectionFailed) {
//	    // store unreachable
//	}
func NewClient(ctx context.Context, baseURL string, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	// Default HTTP client with optimized transport settings
	httpClient := cfg.httpClient
	if httpClient == nil {
		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,

			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		}

		httpClient = &http.Client{
			Timeout:   0, // No global timeout - use context for per-request timeout
			Transport: transport,
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		headers:    cfg.headers,
		logger:     logger,
		metrics:    cfg.metrics,
		cache:      cfg.cache,
	}

	if err := c.checkConnection(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) checkConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return &ConnectionError{URL: c.baseURL, Err: err}
	}

	resp, err := c.send("probe", req)
	if err != nil {
		return &ConnectionError{URL: c.baseURL, Err: err}
	}

	if resp.OK() {
		c.logger.Info("connected to event store", zap.String("url", c.baseURL))
	} else {
		c.logger.Warn("event store probe returned error status",
			zap.String("url", c.baseURL),
			zap.Int("status", resp.StatusCode))
	}
	return nil
}

// BaseURL returns the store's base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying HTTP client.
// This can be useful for advanced configuration or testing.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// LastResponse returns the most recent response observed by any operation on
// this client, or nil before the first response.
func (c *Client) LastResponse() *Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResponse
}

func (c *Client) setLastResponse(r *Response) {
	c.mu.Lock()
	c.lastResponse = r
	c.mu.Unlock()
}

// send executes req and reads the whole body. HTTP error statuses are not
// errors; only transport failures are.
func (c *Client) send(op string, req *http.Request) (*Response, error) {
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	url := req.URL.String()
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observeRequest(op, 0, time.Since(start))
		c.logger.Debug("request failed",
			zap.String("op", op),
			zap.String("method", req.Method),
			zap.String("url", url),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observeRequest(op, 0, time.Since(start))
		return nil, err
	}

	c.metrics.observeRequest(op, resp.StatusCode, time.Since(start))
	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.String("method", req.Method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	r := newResponse(op, url, resp, body)
	c.setLastResponse(r)
	return r, nil
}
