// Package transport carries invocation messages between the cluster and the
// filter dispatcher over Redis Pub/Sub.
package transport

import (
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrInvalidRequest is returned for request envelopes that cannot be answered.
var ErrInvalidRequest = errors.New("transport: invalid request")

// ErrClosed is returned when a closed client is used.
var ErrClosed = errors.New("transport: closed")

// Request wraps one invocation message. Payload is the encoded invocation
// (id and event); ReplyTo names the channel the response is published on.
type Request struct {
	ID      string `msgpack:"id"`
	ReplyTo string `msgpack:"reply"`
	Payload []byte `msgpack:"payload"`
}

// Response wraps the encoded result of one invocation.
type Response struct {
	ID      string `msgpack:"id"`
	Payload []byte `msgpack:"payload"`
}

func marshalEnvelope(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func unmarshalEnvelope(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
