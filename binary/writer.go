package binary

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
)

// Writer encodes values onto an io.Writer, front to back.
//
// Errors are sticky: after the first failed write every later call returns
// the same error without touching the destination.
type Writer struct {
	dst     io.Writer
	buf     *bytes.Buffer
	scratch [8]byte
	err     error
}

// NewWriter creates a writer that forwards encoded bytes to dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// NewBufferWriter creates a writer backed by an in-memory buffer.
// The encoded bytes are available through Bytes.
func NewBufferWriter() *Writer {
	buf := new(bytes.Buffer)
	return &Writer{dst: buf, buf: buf}
}

// Bytes returns the encoded bytes of a buffer-backed writer, or nil.
func (w *Writer) Bytes() []byte {
	if w.buf == nil {
		return nil
	}
	return w.buf.Bytes()
}

// Err returns the first error encountered by the writer.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(p []byte) error {
	if w.err != nil {
		return w.err
	}
	if _, err := w.dst.Write(p); err != nil {
		w.err = err
	}
	return w.err
}

// WriteInt8 writes a single signed byte.
func (w *Writer) WriteInt8(v int8) error {
	w.scratch[0] = byte(v)
	return w.write(w.scratch[:1])
}

// WriteInt32 writes a little-endian int32.
func (w *Writer) WriteInt32(v int32) error {
	binary.LittleEndian.PutUint32(w.scratch[:4], uint32(v))
	return w.write(w.scratch[:4])
}

// WriteInt64 writes a little-endian int64.
func (w *Writer) WriteInt64(v int64) error {
	binary.LittleEndian.PutUint64(w.scratch[:8], uint64(v))
	return w.write(w.scratch[:8])
}

// WriteFloat64 writes a little-endian IEEE 754 double.
func (w *Writer) WriteFloat64(v float64) error {
	binary.LittleEndian.PutUint64(w.scratch[:8], math.Float64bits(v))
	return w.write(w.scratch[:8])
}

// WriteBool writes a boolean as one byte.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteInt8(1)
	}
	return w.WriteInt8(0)
}

// WriteOptionalMarker writes the presence marker for an optional value.
func (w *Writer) WriteOptionalMarker(present bool) error {
	return w.WriteBool(present)
}

// WriteErrorCode writes a result status code.
func (w *Writer) WriteErrorCode(code int8) error {
	return w.WriteInt8(code)
}

// WriteBytes writes a length-prefixed byte slice. A nil slice is written as length -1.
func (w *Writer) WriteBytes(v []byte) error {
	if v == nil {
		return w.WriteInt32(-1)
	}
	if err := w.WriteInt32(int32(len(v))); err != nil {
		return err
	}
	return w.write(v)
}

// WriteString writes a length-prefixed UTF-8 string.
func (w *Writer) WriteString(v string) error {
	if err := w.WriteInt32(int32(len(v))); err != nil {
		return err
	}
	return w.write([]byte(v))
}
