package binary

// Codec encodes and decodes values of one type on the wire.
//
// Implementations must round-trip: a value written by Encode is read back
// equal by Decode on a reader positioned at the same offset.
type Codec[T any] interface {
	// Encode writes v to w.
	Encode(w *Writer, v T) error

	// Decode reads a value from r.
	Decode(r *Reader) (T, error)
}

// Int32Codec encodes int32 values.
type Int32Codec struct{}

// Encode writes v as a little-endian int32.
func (Int32Codec) Encode(w *Writer, v int32) error { return w.WriteInt32(v) }

// Decode reads a little-endian int32.
func (Int32Codec) Decode(r *Reader) (int32, error) { return r.ReadInt32() }

// Int64Codec encodes int64 values.
type Int64Codec struct{}

// Encode writes v as a little-endian int64.
func (Int64Codec) Encode(w *Writer, v int64) error { return w.WriteInt64(v) }

// Decode reads a little-endian int64.
func (Int64Codec) Decode(r *Reader) (int64, error) { return r.ReadInt64() }

// Float64Codec encodes float64 values.
type Float64Codec struct{}

// Encode writes v as a little-endian double.
func (Float64Codec) Encode(w *Writer, v float64) error { return w.WriteFloat64(v) }

// Decode reads a little-endian double.
func (Float64Codec) Decode(r *Reader) (float64, error) { return r.ReadFloat64() }

// BoolCodec encodes bool values.
type BoolCodec struct{}

// Encode writes v as one byte.
func (BoolCodec) Encode(w *Writer, v bool) error { return w.WriteBool(v) }

// Decode reads a one-byte bool.
func (BoolCodec) Decode(r *Reader) (bool, error) { return r.ReadBool() }

// StringCodec encodes string values.
type StringCodec struct{}

// Encode writes v with a length prefix.
func (StringCodec) Encode(w *Writer, v string) error { return w.WriteString(v) }

// Decode reads a length-prefixed string.
func (StringCodec) Decode(r *Reader) (string, error) { return r.ReadString() }

// BytesCodec encodes byte slices.
type BytesCodec struct{}

// Encode writes v with a length prefix.
func (BytesCodec) Encode(w *Writer, v []byte) error { return w.WriteBytes(v) }

// Decode reads a length-prefixed byte slice.
func (BytesCodec) Decode(r *Reader) ([]byte, error) { return r.ReadBytes() }

// ObjectCodec encodes arbitrary user types as a length-prefixed blob
// produced by a Serializer.
type ObjectCodec[T any] struct {
	serializer Serializer
}

// NewObjectCodec creates an object codec. A nil serializer defaults to MessagePack.
func NewObjectCodec[T any](serializer Serializer) *ObjectCodec[T] {
	if serializer == nil {
		serializer = NewMsgPackSerializer()
	}
	return &ObjectCodec[T]{serializer: serializer}
}

// Encode serializes v and writes it as a byte slice.
func (c *ObjectCodec[T]) Encode(w *Writer, v T) error {
	data, err := c.serializer.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteBytes(data)
}

// Decode reads a byte slice and deserializes it into a T.
func (c *ObjectCodec[T]) Decode(r *Reader) (T, error) {
	var v T
	data, err := r.ReadBytes()
	if err != nil {
		return v, err
	}
	if data == nil {
		return v, nil
	}
	err = c.serializer.Unmarshal(data, &v)
	return v, err
}
