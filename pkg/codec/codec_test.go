package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestNaturalEncodingLengths(t *testing.T) {
	tests := []struct {
		name     string
		value    uint64
		expected []byte
	}{
		{name: "zero", value: 0, expected: []byte{0}},
		{name: "one_byte_max", value: 127, expected: []byte{127}},
		{name: "two_bytes_min", value: 128, expected: []byte{128, 128}},
		{name: "two_bytes", value: 300, expected: []byte{129, 44}},
		{name: "three_bytes_min", value: 1 << 14, expected: []byte{192, 0, 64}},
		{name: "max_uint64", value: math.MaxUint64, expected: []byte{255, 255, 255, 255, 255, 255, 255, 255, 255}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded := AppendNatural(nil, tc.value)
			assert.Equal(t, tc.expected, encoded)

			decoded, n, err := ReadNatural(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.value, decoded)
			assert.Equal(t, len(encoded), n)
		})
	}
}

func TestNaturalBoundaries(t *testing.T) {
	for l := 1; l < 9; l++ {
		boundary := uint64(1) << (7 * l)
		for _, v := range []uint64{boundary - 1, boundary, boundary + 1} {
			decoded, _, err := ReadNatural(AppendNatural(nil, v))
			require.NoError(t, err)
			assert.Equal(t, v, decoded, "value %d", v)
		}
	}
}

func TestReadNaturalTruncated(t *testing.T) {
	_, _, err := ReadNatural(nil)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)

	encoded := AppendNatural(nil, 1<<20)
	_, _, err = ReadNatural(encoded[:len(encoded)-1])
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestEncoderDecoder(t *testing.T) {
	id := uint128.New(42, 7)
	encoded := NewEncoder().
		Natural(1000).
		Bool(true).
		Uint128(id).
		String("voter.near").
		Bytes(nil).
		Byte(9).
		Result()

	d := NewDecoder(encoded)
	assert.Equal(t, uint64(1000), d.Natural())
	assert.True(t, d.Bool())
	assert.Equal(t, id, d.Uint128())
	assert.Equal(t, "voter.near", d.String())
	assert.Empty(t, d.Bytes())
	assert.Equal(t, byte(9), d.Byte())
	require.NoError(t, d.Finish())
}

func TestDecoderErrors(t *testing.T) {
	t.Run("invalid_bool", func(t *testing.T) {
		d := NewDecoder([]byte{2})
		d.Bool()
		assert.ErrorIs(t, d.Err(), ErrInvalidBool)
	})

	t.Run("short_uint128", func(t *testing.T) {
		d := NewDecoder(make([]byte, 15))
		assert.Equal(t, uint128.Zero, d.Uint128())
		assert.ErrorIs(t, d.Err(), ErrUnexpectedEOF)
	})

	t.Run("length_past_end", func(t *testing.T) {
		d := NewDecoder([]byte{5, 'a', 'b'})
		assert.Nil(t, d.Bytes())
		assert.ErrorIs(t, d.Err(), ErrTooLong)
	})

	t.Run("first_error_sticks", func(t *testing.T) {
		d := NewDecoder([]byte{3})
		d.Bool()
		d.Natural()
		assert.ErrorIs(t, d.Finish(), ErrInvalidBool)
	})

	t.Run("trailing_bytes", func(t *testing.T) {
		d := NewDecoder([]byte{1, 2})
		d.Byte()
		assert.Equal(t, 1, d.Remaining())
		assert.ErrorIs(t, d.Finish(), ErrTrailingBytes)
	})
}

func TestDecoderRaw(t *testing.T) {
	d := NewDecoder([]byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2}, d.Raw(2))
	assert.Nil(t, d.Raw(2))
	assert.ErrorIs(t, d.Err(), ErrUnexpectedEOF)
}
