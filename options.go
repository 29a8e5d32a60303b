package eventstore

import (
	"net/http"

	"go.uber.org/zap"
)

// FeedCache stores raw feed pages by request URL. Only pages that are not the
// head of their stream are stored, as those never change until the stream is
// deleted. DeleteStream drops a stream's pages with DeletePrefix.
// The feedcache package provides in-memory and bbolt-backed implementations.
type FeedCache interface {
	Get(url string) ([]byte, bool, error)
	Put(url string, page []byte) error
	DeletePrefix(prefix string) error
}

type clientConfig struct {
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
	cache      FeedCache
	headers    map[string]string
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithHTTPClient sets a custom HTTP client.
// If not set, a default client with sensible timeouts is used.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = l
	}
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *Metrics) ClientOption {
	return func(cfg *clientConfig) {
		cfg.metrics = m
	}
}

// WithFeedCache serves navigation to already seen, complete feed pages from c.
// Opening a stream by name always goes to the server.
func WithFeedCache(c FeedCache) ClientOption {
	return func(cfg *clientConfig) {
		cfg.cache = c
	}
}

// WithHeaders sets headers sent with every request, including the
// connectivity probe. Headers set by an operation take precedence.
func WithHeaders(headers map[string]string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.headers = headers
	}
}
