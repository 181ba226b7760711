package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/redis/go-redis/v9"
)

// Client publishes invocation requests and waits for their responses.
// It plays the cluster's side of the exchange.
type Client struct {
	client  *redis.Client
	channel string
	replyTo string
	pubsub  *redis.PubSub
	pending *xsync.MapOf[string, chan []byte]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// NewClient creates a client that sends requests on channel and receives
// responses on a reply channel of its own.
func NewClient(ctx context.Context, client *redis.Client, channel string) (*Client, error) {
	replyTo := channel + ":reply:" + uuid.NewString()

	pubsub := client.Subscribe(ctx, replyTo)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("transport: subscribe %s: %w", replyTo, err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		client:  client,
		channel: channel,
		replyTo: replyTo,
		pubsub:  pubsub,
		pending: xsync.NewMapOf[string, chan []byte](),
		ctx:     cctx,
		cancel:  cancel,
	}

	c.wg.Add(1)
	go c.listen()
	return c, nil
}

// Invoke sends payload under a fresh request id and returns the encoded response.
func (c *Client) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	return c.InvokeWithID(ctx, uuid.NewString(), payload)
}

// InvokeWithID sends payload under the given request id. Sending the same id
// again is a resend: the listener may answer it from its reply cache.
func (c *Client) InvokeWithID(ctx context.Context, id string, payload []byte) ([]byte, error) {
	if c.ctx.Err() != nil {
		return nil, ErrClosed
	}

	data, err := marshalEnvelope(Request{ID: id, ReplyTo: c.replyTo, Payload: payload})
	if err != nil {
		return nil, err
	}

	ch := make(chan []byte, 1)
	c.pending.Store(id, ch)
	defer c.pending.Delete(id)

	if err := c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		return nil, fmt.Errorf("transport: publish request %s: %w", id, err)
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrClosed
	}
}

// Close stops receiving responses.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.cancel()
		err = c.pubsub.Close()
		c.wg.Wait()
	})
	return err
}

func (c *Client) listen() {
	defer c.wg.Done()

	ch := c.pubsub.Channel()
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var resp Response
			if err := unmarshalEnvelope([]byte(msg.Payload), &resp); err != nil {
				continue
			}
			if waiter, ok := c.pending.LoadAndDelete(resp.ID); ok {
				waiter <- resp.Payload
			}
		}
	}
}
