// Package codec is the compact binary encoding used for ledger values, the
// journal and the wire protocol.
package codec

import (
	"lukechampine.com/uint128"
)

// Encoder accumulates an encoded value.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Natural(x uint64) *Encoder {
	e.buf = AppendNatural(e.buf, x)
	return e
}

func (e *Encoder) Byte(b byte) *Encoder {
	e.buf = append(e.buf, b)
	return e
}

func (e *Encoder) Bool(v bool) *Encoder {
	if v {
		return e.Byte(1)
	}
	return e.Byte(0)
}

// Uint128 writes 16 big-endian bytes.
func (e *Encoder) Uint128(v uint128.Uint128) *Encoder {
	var b [16]byte
	v.PutBytesBE(b[:])
	e.buf = append(e.buf, b[:]...)
	return e
}

// Bytes writes a length-prefixed byte string.
func (e *Encoder) Bytes(b []byte) *Encoder {
	e.buf = AppendNatural(e.buf, uint64(len(b)))
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) String(s string) *Encoder {
	return e.Bytes([]byte(s))
}

// Raw appends b with no length prefix.
func (e *Encoder) Raw(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) Result() []byte {
	return e.buf
}

// Decoder reads values in the order an Encoder wrote them. The first error
// sticks: later reads return zero values and Err reports it.
type Decoder struct {
	buf []byte
	err error
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) Natural() uint64 {
	if d.err != nil {
		return 0
	}
	x, n, err := ReadNatural(d.buf)
	if err != nil {
		d.fail(err)
		return 0
	}
	d.buf = d.buf[n:]
	return x
}

func (d *Decoder) Byte() byte {
	if d.err != nil {
		return 0
	}
	if len(d.buf) == 0 {
		d.fail(ErrUnexpectedEOF)
		return 0
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b
}

func (d *Decoder) Bool() bool {
	switch d.Byte() {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail(ErrInvalidBool)
		return false
	}
}

func (d *Decoder) Uint128() uint128.Uint128 {
	if d.err != nil {
		return uint128.Zero
	}
	if len(d.buf) < 16 {
		d.fail(ErrUnexpectedEOF)
		return uint128.Zero
	}
	v := uint128.FromBytesBE(d.buf[:16])
	d.buf = d.buf[16:]
	return v
}

func (d *Decoder) Bytes() []byte {
	n := d.Natural()
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.buf)) {
		d.fail(ErrTooLong)
		return nil
	}
	out := make([]byte, n)
	copy(out, d.buf[:n])
	d.buf = d.buf[n:]
	return out
}

// Raw reads exactly n bytes with no length prefix.
func (d *Decoder) Raw(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n > len(d.buf) {
		d.fail(ErrUnexpectedEOF)
		return nil
	}
	out := make([]byte, n)
	copy(out, d.buf[:n])
	d.buf = d.buf[n:]
	return out
}

func (d *Decoder) String() string {
	return string(d.Bytes())
}

// Remaining reports how many bytes are left unread.
func (d *Decoder) Remaining() int {
	return len(d.buf)
}

// Err returns the first decoding error.
func (d *Decoder) Err() error {
	return d.err
}

// Finish returns the first decoding error, or ErrTrailingBytes if input is
// left over.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.buf) != 0 {
		return ErrTrailingBytes
	}
	return nil
}
