// Package binary implements the forward-only reader and writer used to move
// cache events and filter results across the wire.
//
// All fixed-width numbers are little-endian. Strings and byte slices carry an
// int32 length prefix; a length of -1 marks a nil byte slice.
package binary

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader decodes values from a byte slice, front to back.
// A Reader is not safe for concurrent use.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Position returns the number of bytes consumed so far.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.pos, r.Remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadInt8 reads a single signed byte.
func (r *Reader) ReadInt8() (int8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

// ReadInt32 reads a little-endian int32.
func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// ReadInt64 reads a little-endian int64.
func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// ReadFloat64 reads a little-endian IEEE 754 double.
func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadBool reads a boolean stored as one byte, 0 or 1.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.next(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		r.pos--
		return false, fmt.Errorf("%w: bool byte 0x%02x at offset %d", ErrMalformed, b[0], r.pos)
	}
}

// ReadOptionalMarker reads the presence marker that precedes an optional value.
func (r *Reader) ReadOptionalMarker() (bool, error) {
	return r.ReadBool()
}

// ReadBytes reads a length-prefixed byte slice. The returned slice is a copy.
// On failure the length prefix is not consumed.
func (r *Reader) ReadBytes() ([]byte, error) {
	start := r.pos
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	if n < -1 {
		r.pos = start
		return nil, fmt.Errorf("%w: negative length %d", ErrMalformed, n)
	}
	b, err := r.next(int(n))
	if err != nil {
		r.pos = start
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ReadString reads a length-prefixed UTF-8 string.
// On failure the length prefix is not consumed.
func (r *Reader) ReadString() (string, error) {
	start := r.pos
	n, err := r.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		r.pos = start
		return "", fmt.Errorf("%w: negative string length %d", ErrMalformed, n)
	}
	b, err := r.next(int(n))
	if err != nil {
		r.pos = start
		return "", err
	}
	return string(b), nil
}
