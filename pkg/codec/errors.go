package codec

import "errors"

var (
	ErrUnexpectedEOF = errors.New("codec: unexpected end of input")
	ErrInvalidBool   = errors.New("codec: invalid boolean byte")
	ErrTrailingBytes = errors.New("codec: trailing bytes after value")
	ErrTooLong       = errors.New("codec: length exceeds remaining input")
)
