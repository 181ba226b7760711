package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip[T any](t *testing.T, c Codec[T], v T) T {
	t.Helper()
	w := NewBufferWriter()
	require.NoError(t, c.Encode(w, v))
	r := NewReader(w.Bytes())
	got, err := c.Decode(r)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Remaining())
	return got
}

func TestPrimitiveCodecs(t *testing.T) {
	assert.Equal(t, int32(42), roundTrip[int32](t, Int32Codec{}, 42))
	assert.Equal(t, int64(-1), roundTrip[int64](t, Int64Codec{}, -1))
	assert.Equal(t, 0.5, roundTrip[float64](t, Float64Codec{}, 0.5))
	assert.True(t, roundTrip[bool](t, BoolCodec{}, true))
	assert.Equal(t, "k", roundTrip[string](t, StringCodec{}, "k"))
	assert.Equal(t, "", roundTrip[string](t, StringCodec{}, ""))
	assert.Equal(t, []byte{9}, roundTrip[[]byte](t, BytesCodec{}, []byte{9}))
}

type account struct {
	ID      int64  `json:"id" msgpack:"id"`
	Owner   string `json:"owner" msgpack:"owner"`
	Balance int64  `json:"balance" msgpack:"balance"`
}

func TestObjectCodec(t *testing.T) {
	orig := account{ID: 7, Owner: "ops", Balance: 1500}

	for _, s := range []Serializer{NewJSONSerializer(), NewMsgPackSerializer(), nil} {
		got := roundTrip[account](t, NewObjectCodec[account](s), orig)
		assert.Equal(t, orig, got)
	}
}

func TestObjectCodecDecodeGarbage(t *testing.T) {
	w := NewBufferWriter()
	require.NoError(t, w.WriteBytes([]byte("{not json")))

	_, err := NewObjectCodec[account](NewJSONSerializer()).Decode(NewReader(w.Bytes()))
	assert.Error(t, err)
}

func TestObjectCodecTruncated(t *testing.T) {
	_, err := NewObjectCodec[account](nil).Decode(NewReader([]byte{10, 0, 0, 0, 1}))
	assert.ErrorIs(t, err, ErrTruncated)
}
