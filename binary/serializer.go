package binary

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Serializer turns user values into self-describing bytes and back.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// JSONSerializer implements Serializer using JSON.
type JSONSerializer struct{}

// Marshal serializes a value to JSON.
func (js *JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes a value from JSON.
func (js *JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Name returns "json".
func (js *JSONSerializer) Name() string { return "json" }

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// MsgPackSerializer implements Serializer using MessagePack.
type MsgPackSerializer struct{}

// Marshal serializes a value to MessagePack.
func (ms *MsgPackSerializer) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal deserializes a value from MessagePack.
// Numbers decoded into interface values are widened to int64, uint64 or
// float64 rather than keeping their narrowest wire type.
func (ms *MsgPackSerializer) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}

// Name returns "msgpack".
func (ms *MsgPackSerializer) Name() string { return "msgpack" }

// NewMsgPackSerializer creates a new MessagePack serializer.
func NewMsgPackSerializer() *MsgPackSerializer {
	return &MsgPackSerializer{}
}

// GetSerializer returns a serializer for the given format.
func GetSerializer(format string) (Serializer, error) {
	switch format {
	case "json":
		return NewJSONSerializer(), nil
	case "msgpack":
		return NewMsgPackSerializer(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
