package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	"github.com/huykn/remote-filter/binary"
	"github.com/huykn/remote-filter/filter"
)

// Handler processes one invocation message. *filter.Dispatcher implements it.
type Handler interface {
	Dispatch(r *binary.Reader, w *binary.Writer) error
}

// ListenerOptions configures a Listener.
type ListenerOptions struct {
	// Channel is the Redis Pub/Sub channel the cluster publishes requests on.
	Channel string

	// MaxConcurrency caps the number of requests dispatched at once.
	MaxConcurrency int64

	// ReplyCache remembers responses by request id. If nil, nothing is cached.
	ReplyCache ReplyCache

	// PublishTimeout bounds each response publish.
	PublishTimeout time.Duration

	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger filter.Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// OnError is called when a request is dropped.
	OnError func(error)
}

// Listener receives invocation requests from Redis Pub/Sub, dispatches each
// on its own goroutine and publishes the response to the request's reply
// channel.
type Listener struct {
	client  *redis.Client
	handler Handler
	options ListenerOptions
	logger  filter.Logger
	replies ReplyCache
	sem     *semaphore.Weighted
	pubsub  *redis.PubSub
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// NewListener creates a listener that hands requests to handler.
func NewListener(client *redis.Client, handler Handler, opts ListenerOptions) *Listener {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 64
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = filter.NewNoOpLogger()
	}
	if opts.ReplyCache == nil {
		opts.ReplyCache = NewNoOpReplyCache()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		client:  client,
		handler: handler,
		options: opts,
		logger:  opts.Logger,
		replies: opts.ReplyCache,
		sem:     semaphore.NewWeighted(opts.MaxConcurrency),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to the request channel and begins dispatching.
// It returns once the subscription is confirmed by the server.
func (l *Listener) Start(ctx context.Context) error {
	l.pubsub = l.client.Subscribe(ctx, l.options.Channel)
	if _, err := l.pubsub.Receive(ctx); err != nil {
		_ = l.pubsub.Close()
		return fmt.Errorf("transport: subscribe %s: %w", l.options.Channel, err)
	}

	l.wg.Add(1)
	go l.listen()

	if l.options.DebugMode {
		l.logger.Debug("Listener: subscribed", "channel", l.options.Channel, "maxConcurrency", l.options.MaxConcurrency)
	}
	return nil
}

// Close stops receiving requests and waits for in-flight requests to finish.
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		l.cancel()
		if l.pubsub != nil {
			err = l.pubsub.Close()
		}
		l.wg.Wait()
		l.replies.Close()
	})
	return err
}

// listen reads requests until the listener is closed.
func (l *Listener) listen() {
	defer l.wg.Done()

	ch := l.pubsub.Channel()
	for {
		select {
		case <-l.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var req Request
			if err := unmarshalEnvelope([]byte(msg.Payload), &req); err != nil {
				l.drop(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
				continue
			}

			if err := l.sem.Acquire(l.ctx, 1); err != nil {
				return
			}
			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				defer l.sem.Release(1)
				l.handle(req)
			}()
		}
	}
}

// handle dispatches one request with a fresh reader and writer.
func (l *Listener) handle(req Request) {
	if req.ID == "" || req.ReplyTo == "" {
		l.drop(fmt.Errorf("%w: missing id or reply channel", ErrInvalidRequest))
		return
	}

	if cached, ok := l.replies.Get(req.ID); ok {
		if l.options.DebugMode {
			l.logger.Debug("Listener: answering repeated request from reply cache", "request", req.ID)
		}
		l.reply(req, cached)
		return
	}

	w := binary.NewBufferWriter()
	if err := l.handler.Dispatch(binary.NewReader(req.Payload), w); err != nil {
		l.drop(fmt.Errorf("transport: request %s: %w", req.ID, err))
		return
	}

	payload := w.Bytes()
	l.replies.Set(req.ID, payload)
	l.reply(req, payload)
}

func (l *Listener) reply(req Request, payload []byte) {
	data, err := marshalEnvelope(Response{ID: req.ID, Payload: payload})
	if err != nil {
		l.drop(fmt.Errorf("transport: encode response %s: %w", req.ID, err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.options.PublishTimeout)
	defer cancel()

	if err := l.client.Publish(ctx, req.ReplyTo, data).Err(); err != nil {
		l.drop(fmt.Errorf("transport: publish response %s: %w", req.ID, err))
		return
	}
	if l.options.DebugMode {
		l.logger.Debug("Listener: response published", "request", req.ID, "channel", req.ReplyTo)
	}
}

func (l *Listener) drop(err error) {
	l.logger.Error("Listener: request dropped", "error", err)
	if l.options.OnError != nil {
		l.options.OnError(err)
	}
}
