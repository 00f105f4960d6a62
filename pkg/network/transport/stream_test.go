package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/eigerco/arbiter/pkg/network/mocks"
)

func newStreamServer(handler Handler) *Server {
	return &Server{
		config:  Config{RequestTimeout: time.Second},
		handler: handler,
		logger:  zerolog.Nop(),
		ctx:     context.Background(),
	}
}

func TestServeStream(t *testing.T) {
	stream := mocks.NewMockQuicStream()
	stream.OnReadFrame([]byte("ping"))
	stream.OnWriteFrame([]byte("caller:ping"))
	stream.On("Close").Return(nil).Once()

	newStreamServer(echoCaller).serveStream("caller", stream, zerolog.Nop())

	stream.AssertExpectations(t)
}

func TestServeStreamHandlerError(t *testing.T) {
	stream := mocks.NewMockQuicStream()
	stream.OnReadFrame([]byte("ping"))
	stream.On("CancelWrite", streamErrorInternal).Once()

	var gotCaller string
	handler := HandlerFunc(func(_ context.Context, caller string, _ []byte) ([]byte, error) {
		gotCaller = caller
		return nil, errors.New("boom")
	})
	newStreamServer(handler).serveStream("caller", stream, zerolog.Nop())

	assert.Equal(t, "caller", gotCaller)
	stream.AssertExpectations(t)
	stream.AssertNotCalled(t, "Write", mock.Anything)
}

func TestServeStreamBrokenRequest(t *testing.T) {
	stream := mocks.NewMockQuicStream()
	stream.On("Read", mock.Anything).Return(0, errors.New("stream reset")).Once()
	stream.On("CancelRead", streamErrorInternal).Once()
	stream.On("CancelWrite", streamErrorInternal).Once()

	called := false
	handler := HandlerFunc(func(context.Context, string, []byte) ([]byte, error) {
		called = true
		return nil, nil
	})
	newStreamServer(handler).serveStream("caller", stream, zerolog.Nop())

	assert.False(t, called)
	stream.AssertExpectations(t)
}

func TestServeStreamWriteFailure(t *testing.T) {
	stream := mocks.NewMockQuicStream()
	stream.OnReadFrame([]byte{})
	stream.On("Write", mock.Anything).Return(0, errors.New("stream reset")).Once()
	stream.On("CancelWrite", streamErrorInternal).Once()

	newStreamServer(HandlerFunc(func(context.Context, string, []byte) ([]byte, error) {
		return []byte("pong"), nil
	})).serveStream("caller", stream, zerolog.Nop())

	stream.AssertExpectations(t)
	stream.AssertNotCalled(t, "Close")
}
