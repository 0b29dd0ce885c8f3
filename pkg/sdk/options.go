package memento

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	driverElasticsearch = "elasticsearch"
	driverMemory        = "memory"
)

type clientConfig struct {
	driver    string // "elasticsearch" or "memory"
	addrs     []string
	username  string
	password  string
	apiKey    string
	refresh   bool
	indexName string

	embedder         Embedder
	queryInstruction string
	vectorDimensions int
	publicRoute      string
	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithElasticsearch connects the client to an Elasticsearch cluster.
func WithElasticsearch(addrs []string, username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverElasticsearch
		c.addrs = addrs
		c.username = username
		c.password = password
	})
}

// WithElasticsearchAPIKey authenticates with an API key instead of basic auth.
func WithElasticsearchAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithRefresh makes every Put visible to search before it returns.
func WithRefresh() Option {
	return optionFunc(func(c *clientConfig) {
		c.refresh = true
	})
}

// WithMemoryIndex keeps the index in process memory. Intended for tests and demos.
func WithMemoryIndex() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverMemory
	})
}

// WithIndexName overrides the index name. Default: "memories".
func WithIndexName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithEmbedder sets the text embedding provider.
// Required for semantic and hybrid search; keyword search and timelines work without it.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithQueryInstruction prefixes search text before it is embedded.
// Stored descriptions are embedded without it.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithVectorDimensions sets the embedding dimension fixed in the index mapping.
// Defaults to 1536 (text-embedding-3-small).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithPublicRoute sets the URL prefix image paths are rewritten to. Default: "/storage".
func WithPublicRoute(route string) Option {
	return optionFunc(func(c *clientConfig) {
		c.publicRoute = route
	})
}

// WithReadinessTimeout bounds the initial connectivity check. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
