// Package mocks holds testify mocks for the QUIC types the transport is
// built on.
package mocks

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/mock"
)

// MockQuicStream implements the quic.Stream interface for testing
type MockQuicStream struct {
	mock.Mock
}

var _ quic.Stream = (*MockQuicStream)(nil)

func NewMockQuicStream() *MockQuicStream {
	return &MockQuicStream{}
}

// OnReadFrame expects content to be read as one length-prefixed frame: the
// 4 byte size first, then the content.
func (m *MockQuicStream) OnReadFrame(content []byte) {
	size := make([]byte, 4)
	binary.LittleEndian.PutUint32(size, uint32(len(content)))

	m.On("Read", mock.MatchedBy(func(p []byte) bool { return len(p) == 4 })).
		Run(func(args mock.Arguments) { copy(args.Get(0).([]byte), size) }).
		Return(4, nil).Once()
	if len(content) == 0 {
		return
	}
	m.On("Read", mock.MatchedBy(func(p []byte) bool { return len(p) == len(content) })).
		Run(func(args mock.Arguments) { copy(args.Get(0).([]byte), content) }).
		Return(len(content), nil).Once()
}

// OnWriteFrame expects content to be written as one length-prefixed frame.
func (m *MockQuicStream) OnWriteFrame(content []byte) {
	m.On("Write", mock.MatchedBy(func(p []byte) bool {
		return len(p) == 4+len(content) &&
			binary.LittleEndian.Uint32(p) == uint32(len(content)) &&
			string(p[4:]) == string(content)
	})).Return(4+len(content), nil).Once()
}

func (m *MockQuicStream) Read(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockQuicStream) Write(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockQuicStream) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockQuicStream) CancelRead(code quic.StreamErrorCode) {
	m.Called(code)
}

func (m *MockQuicStream) CancelWrite(code quic.StreamErrorCode) {
	m.Called(code)
}

func (m *MockQuicStream) SetReadDeadline(t time.Time) error {
	args := m.Called(t)
	return args.Error(0)
}

func (m *MockQuicStream) SetWriteDeadline(t time.Time) error {
	args := m.Called(t)
	return args.Error(0)
}

func (m *MockQuicStream) SetDeadline(t time.Time) error {
	args := m.Called(t)
	return args.Error(0)
}

func (m *MockQuicStream) StreamID() quic.StreamID {
	args := m.Called()
	return args.Get(0).(quic.StreamID)
}

func (m *MockQuicStream) Context() context.Context {
	args := m.Called()
	if args.Get(0) == nil {
		return context.Background()
	}
	return args.Get(0).(context.Context)
}
