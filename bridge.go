package remotefilter

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/huykn/remote-filter/binary"
	"github.com/huykn/remote-filter/filter"
	"github.com/huykn/remote-filter/metrics"
	"github.com/huykn/remote-filter/transport"
)

// Bridge runs locally registered filters for events sent by the cluster.
// It owns the registry, the dispatcher and the Redis listener that feeds it.
type Bridge struct {
	config     Config
	logger     Logger
	registry   *filter.Registry
	dispatcher *filter.Dispatcher
	client     *redis.Client
	listener   *transport.Listener
	closed     int32
}

// New creates a bridge and starts listening for invocations.
func New(cfg Config) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = filter.NewNoOpLogger()
	}

	var recorder metrics.Recorder = metrics.Noop{}
	if cfg.EnableMetrics {
		reg := cfg.MetricsRegisterer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		p, err := metrics.NewPrometheus(reg, cfg.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("remotefilter: register metrics: %w", err)
		}
		recorder = p
	}

	registry := filter.NewRegistry(recorder)
	dispatcher := filter.NewDispatcher(registry, filter.DispatcherOptions{
		Logger:    cfg.Logger,
		DebugMode: cfg.DebugMode,
		Metrics:   recorder,
		OnFault:   cfg.OnFault,
	})

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ContextTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrRedisConnection, err)
	}

	replies, err := transport.NewReplyCache(replyCacheConfig(cfg))
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	listener := transport.NewListener(client, dispatcher, transport.ListenerOptions{
		Channel:        cfg.RequestChannel,
		MaxConcurrency: int64(cfg.MaxConcurrency),
		ReplyCache:     replies,
		PublishTimeout: cfg.ContextTimeout,
		Logger:         cfg.Logger,
		DebugMode:      cfg.DebugMode,
		OnError:        cfg.OnError,
	})
	if err := listener.Start(ctx); err != nil {
		replies.Close()
		_ = client.Close()
		return nil, err
	}

	cfg.Logger.Info("Bridge started", "version", Version, "node", cfg.NodeID, "channel", cfg.RequestChannel)

	return &Bridge{
		config:     cfg,
		logger:     cfg.Logger,
		registry:   registry,
		dispatcher: dispatcher,
		client:     client,
		listener:   listener,
	}, nil
}

func replyCacheConfig(cfg Config) transport.ReplyCacheConfig {
	rc := transport.DefaultReplyCacheConfig()
	rc.Type = cfg.ReplyCacheType
	switch cfg.ReplyCacheType {
	case "lru":
		rc.MaxSize = cfg.ReplyCacheSize
	case "lfu":
		rc.MaxCost = int64(cfg.ReplyCacheSize)
		rc.NumCounters = int64(cfg.ReplyCacheSize) * 10
	}
	return rc
}

// Register binds f on the bridge and returns the invocation id to send to
// the cluster with the continuous query.
func Register[K, V any](b *Bridge, f Filter[K, V], keys binary.Codec[K], values binary.Codec[V]) (int32, error) {
	if atomic.LoadInt32(&b.closed) != 0 {
		return 0, ErrBridgeClosed
	}

	id, err := filter.Register(b.registry, f, keys, values)
	if err != nil {
		return 0, err
	}
	if b.config.DebugMode {
		b.logger.Debug("Register: filter bound", "id", id)
	}
	return id, nil
}

// Deregister removes the binding for id, then waits for invocations that
// were already running to finish, bounded by ctx and the configured timeout.
func (b *Bridge) Deregister(ctx context.Context, id int32) error {
	if atomic.LoadInt32(&b.closed) != 0 {
		return ErrBridgeClosed
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.ContextTimeout)
	defer cancel()

	if err := b.registry.Retire(ctx, id); err != nil {
		return err
	}
	if b.config.DebugMode {
		b.logger.Debug("Deregister: filter removed", "id", id)
	}
	return nil
}

// Dispatch runs one invocation outside the Redis listener, for transports
// that deliver messages by other means.
func (b *Bridge) Dispatch(r *binary.Reader, w *binary.Writer) error {
	return b.dispatcher.Dispatch(r, w)
}

// Registry returns the bridge's filter registry.
func (b *Bridge) Registry() *filter.Registry {
	return b.registry
}

// Stats returns dispatch statistics.
func (b *Bridge) Stats() Stats {
	return b.dispatcher.Stats()
}

// Close stops the listener and releases all resources.
func (b *Bridge) Close() error {
	if !atomic.CompareAndSwapInt32(&b.closed, 0, 1) {
		return nil
	}

	var errs []error

	if err := b.listener.Close(); err != nil {
		errs = append(errs, err)
	}

	b.registry.Close()

	if err := b.client.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
