package transport

import "errors"

var (
	ErrInvalidCertificate = errors.New("invalid certificate")
	ErrListenerFailed     = errors.New("failed to create QUIC listener")
	ErrDialFailed         = errors.New("failed to dial server")
	ErrUnexpectedPeer     = errors.New("unexpected peer identity")
	ErrServerStopped      = errors.New("server stopped")
)
