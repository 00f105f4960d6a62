package codec

import (
	"encoding/binary"
	"math"
)

// AppendNatural appends x using the JAM general natural encoding: a prefix
// byte whose leading one bits give the number of trailing little-endian
// bytes, so values below 2^7 take one byte and any uint64 fits in nine.
func AppendNatural(dst []byte, x uint64) []byte {
	var l uint8
	for l = 0; l < 8; l++ {
		if x < (1 << (7 * (l + 1))) {
			break
		}
	}
	if l == 8 {
		dst = append(dst, math.MaxUint8)
		return binary.LittleEndian.AppendUint64(dst, x)
	}

	prefix := uint8((256 - (1 << (8 - l))) + (x>>(8*l))&math.MaxUint8)
	dst = append(dst, prefix)
	for i := uint8(0); i < l; i++ {
		dst = append(dst, uint8(x>>(8*i)))
	}
	return dst
}

// naturalLength returns how many bytes follow a prefix byte.
func naturalLength(prefix byte) uint8 {
	var l uint8
	for l < 8 && prefix&(0x80>>l) != 0 {
		l++
	}
	return l
}

// ReadNatural decodes one natural from the front of b and returns the value
// and the number of bytes consumed.
func ReadNatural(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrUnexpectedEOF
	}
	l := naturalLength(b[0])
	if len(b) < 1+int(l) {
		return 0, 0, ErrUnexpectedEOF
	}
	if l == 8 {
		return binary.LittleEndian.Uint64(b[1:9]), 9, nil
	}

	var x uint64
	for i := uint8(0); i < l; i++ {
		x |= uint64(b[1+i]) << (8 * i)
	}
	x |= uint64(b[0]&(math.MaxUint8>>(l+1))) << (8 * l)
	return x, 1 + int(l), nil
}
