package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"github.com/eigerco/arbiter/pkg/log"
	"github.com/eigerco/arbiter/pkg/network/cert"
	"github.com/eigerco/arbiter/pkg/network/message"
)

// Handler answers one request. caller is the identity bound to the peer's
// certificate. A returned error aborts the stream without a response.
type Handler interface {
	HandleRequest(ctx context.Context, caller string, payload []byte) ([]byte, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, caller string, payload []byte) ([]byte, error)

func (f HandlerFunc) HandleRequest(ctx context.Context, caller string, payload []byte) ([]byte, error) {
	return f(ctx, caller, payload)
}

// Config contains all configuration parameters for a Server
type Config struct {
	PrivateKey     ed25519.PrivateKey // Server's private key
	ListenAddr     string             // Address to listen on
	CertValidity   time.Duration      // Lifetime of the generated TLS certificate
	RequestTimeout time.Duration      // Upper bound for reading, handling and answering one request
}

// Server accepts QUIC connections and serves one request per bidirectional
// stream.
type Server struct {
	config    Config
	handler   Handler
	tlsCert  *tls.Certificate
	listener *quic.Listener
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates and configures a new server instance.
// Returns an error if any required configuration is missing or invalid.
func NewServer(config Config, handler Handler) (*Server, error) {
	if len(config.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key required")
	}
	if handler == nil {
		return nil, fmt.Errorf("request handler required")
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}

	tlsCert, err := newCertificate(config.PrivateKey, config.CertValidity)
	if err != nil {
		return nil, err
	}
	if _, err := cert.Verify(tlsCert.Leaf, time.Now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}

	return &Server{
		config:  config,
		handler: handler,
		tlsCert: tlsCert,
		logger:  log.Network,
	}, nil
}

// Identity returns the identity clients see for this server.
func (s *Server) Identity() string {
	return cert.KeyIdentity(s.config.PrivateKey)
}

// Start opens the listener and begins accepting connections in the
// background.
func (s *Server) Start() error {
	listener, err := quic.ListenAddr(s.config.ListenAddr, serverTLSConfig(s.tlsCert), quicConfig())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.listener = listener
	s.logger.Info().Str("addr", listener.Addr().String()).Str("identity", s.Identity()).Msg("listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	return nil
}

// Addr returns the bound listen address. Only valid after Start.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener, cancels in-flight requests and waits for every
// connection goroutine to return.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	s.cancel()
	err := s.listener.Close()
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("failed to accept connection")
			}
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn quic.Connection) {
	logger := s.logger.With().Str("remote", conn.RemoteAddr().String()).Logger()

	peerCerts := conn.ConnectionState().TLS.PeerCertificates
	if len(peerCerts) == 0 {
		_ = conn.CloseWithError(0, ErrInvalidCertificate.Error())
		return
	}
	caller, err := cert.Verify(peerCerts[0], time.Now())
	if err != nil {
		logger.Warn().Err(err).Msg("failed to extract peer identity")
		_ = conn.CloseWithError(0, fmt.Sprintf("%s: %v", ErrInvalidCertificate.Error(), err))
		return
	}
	logger = logger.With().Str("caller", caller).Logger()
	logger.Debug().Msg("connection accepted")

	go func() {
		select {
		case <-s.ctx.Done():
			_ = conn.CloseWithError(0, ErrServerStopped.Error())
		case <-conn.Context().Done():
		}
	}()

	var streams sync.WaitGroup
	defer streams.Wait()
	for {
		stream, err := conn.AcceptStream(s.ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("connection closed")
			return
		}
		streams.Add(1)
		go func() {
			defer streams.Done()
			s.serveStream(caller, stream, logger)
		}()
	}
}

func (s *Server) serveStream(caller string, stream quic.Stream, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(s.ctx, s.config.RequestTimeout)
	defer cancel()

	req, err := message.Read(ctx, stream)
	if err != nil {
		logger.Debug().Err(err).Msg("failed to read request")
		stream.CancelRead(streamErrorInternal)
		stream.CancelWrite(streamErrorInternal)
		return
	}

	resp, err := s.handler.HandleRequest(ctx, caller, req.Content)
	if err != nil {
		logger.Warn().Err(err).Msg("request handler failed")
		stream.CancelWrite(streamErrorInternal)
		return
	}

	if err := message.Write(ctx, stream, resp); err != nil {
		logger.Debug().Err(err).Msg("failed to write response")
		stream.CancelWrite(streamErrorInternal)
		return
	}
	if err := stream.Close(); err != nil {
		logger.Debug().Err(err).Msg("failed to close stream")
	}
}
