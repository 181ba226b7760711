package remotefilter

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus"
)

// Config configures a filter bridge.
type Config struct {
	// NodeID identifies this client node in logs.
	NodeID string `yaml:"node_id" env:"REMOTE_FILTER_NODE_ID" env-default:"default-node"`

	// RedisAddr is the Redis server address (e.g., "localhost:6379").
	RedisAddr string `yaml:"redis_addr" env:"REMOTE_FILTER_REDIS_ADDR" env-default:"localhost:6379"`

	// RedisPassword is the optional Redis password.
	RedisPassword string `yaml:"redis_password" env:"REMOTE_FILTER_REDIS_PASSWORD"`

	// RedisDB is the Redis database number.
	RedisDB int `yaml:"redis_db" env:"REMOTE_FILTER_REDIS_DB" env-default:"0"`

	// RequestChannel is the Redis pub/sub channel the cluster sends filter
	// invocations on.
	RequestChannel string `yaml:"request_channel" env:"REMOTE_FILTER_REQUEST_CHANNEL" env-default:"cache:filter:invoke"`

	// MaxConcurrency caps the number of invocations dispatched at once.
	MaxConcurrency int `yaml:"max_concurrency" env:"REMOTE_FILTER_MAX_CONCURRENCY" env-default:"64"`

	// ReplyCacheType selects the resend cache: "lru", "lfu" or "none".
	ReplyCacheType string `yaml:"reply_cache_type" env:"REMOTE_FILTER_REPLY_CACHE_TYPE" env-default:"lru"`

	// ReplyCacheSize is the number of replies (LRU) or bytes (LFU) kept.
	ReplyCacheSize int `yaml:"reply_cache_size" env:"REMOTE_FILTER_REPLY_CACHE_SIZE" env-default:"10000"`

	// ContextTimeout is the default timeout for Redis calls and for draining
	// a filter on deregistration.
	ContextTimeout time.Duration `yaml:"context_timeout" env:"REMOTE_FILTER_CONTEXT_TIMEOUT" env-default:"5s"`

	// DebugMode enables debug logging.
	DebugMode bool `yaml:"debug_mode" env:"REMOTE_FILTER_DEBUG"`

	// EnableMetrics enables Prometheus metrics.
	EnableMetrics bool `yaml:"enable_metrics" env:"REMOTE_FILTER_ENABLE_METRICS" env-default:"true"`

	// MetricsNamespace prefixes every metric name.
	MetricsNamespace string `yaml:"metrics_namespace" env:"REMOTE_FILTER_METRICS_NAMESPACE" env-default:"remotefilter"`

	// MetricsRegisterer receives the collectors when EnableMetrics is set.
	// If nil, defaults to prometheus.DefaultRegisterer.
	MetricsRegisterer prometheus.Registerer `yaml:"-"`

	// Logger is the logger for the bridge.
	// If nil, defaults to no-op logger.
	Logger Logger `yaml:"-"`

	// OnError is called when a request is dropped by the transport.
	OnError func(error) `yaml:"-"`

	// OnFault is called for every invocation answered with a fault.
	OnFault func(invocationID int32, result Result) `yaml:"-"`
}

// DefaultConfig returns default bridge configuration.
func DefaultConfig() Config {
	return Config{
		NodeID:           "default-node",
		RedisAddr:        "localhost:6379",
		RedisDB:          0,
		RequestChannel:   "cache:filter:invoke",
		MaxConcurrency:   64,
		ReplyCacheType:   "lru",
		ReplyCacheSize:   10000,
		ContextTimeout:   5 * time.Second,
		EnableMetrics:    true,
		MetricsNamespace: "remotefilter",
		Logger:           nil, // Will default to no-op in New()
		DebugMode:        false,
	}
}

// LoadConfig reads configuration from a YAML file, then applies environment
// overrides. An empty path reads the environment only.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("%w: node id is required", ErrInvalidConfig)
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("%w: redis address is required", ErrInvalidConfig)
	}
	if c.RequestChannel == "" {
		return fmt.Errorf("%w: request channel is required", ErrInvalidConfig)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: max concurrency must be positive", ErrInvalidConfig)
	}
	switch c.ReplyCacheType {
	case "lru", "lfu":
		if c.ReplyCacheSize <= 0 {
			return fmt.Errorf("%w: reply cache size must be positive", ErrInvalidConfig)
		}
	case "none":
	default:
		return fmt.Errorf("%w: unknown reply cache type %q", ErrInvalidConfig, c.ReplyCacheType)
	}
	if c.ContextTimeout <= 0 {
		return fmt.Errorf("%w: context timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
