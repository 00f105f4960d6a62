package message

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxSize bounds the content of a single message.
const MaxSize = 4 * 1024 * 1024

var ErrTooLarge = errors.New("message exceeds maximum size")

// Message represents a protocol message that includes both size and content.
// The size is encoded as a little-endian uint32 followed by the actual content bytes.
type Message struct {
	// Size is the length of the content in bytes
	Size uint32
	// Content contains the actual message data
	Content []byte
}

type readResult struct {
	msg *Message
	err error
}

// Write writes one framed message to w:
//   - 4 bytes: content size as little-endian uint32
//   - N bytes: content itself
//
// The write is abandoned when ctx is done.
func Write(ctx context.Context, w io.Writer, content []byte) error {
	if len(content) > MaxSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(content))
	}

	done := make(chan error, 1)
	go func() {
		frame := make([]byte, 4, 4+len(content))
		binary.LittleEndian.PutUint32(frame, uint32(len(content)))
		frame = append(frame, content...)

		if _, err := w.Write(frame); err != nil {
			done <- fmt.Errorf("failed to write message: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Read reads one framed message written by Write. Sizes above MaxSize are
// rejected before any content is allocated.
func Read(ctx context.Context, r io.Reader) (*Message, error) {
	done := make(chan readResult, 1)

	go func() {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			done <- readResult{err: fmt.Errorf("failed to read message size: %w", err)}
			return
		}
		if size > MaxSize {
			done <- readResult{err: fmt.Errorf("%w: %d bytes", ErrTooLarge, size)}
			return
		}

		content := make([]byte, size)
		if _, err := io.ReadFull(r, content); err != nil {
			done <- readResult{err: fmt.Errorf("failed to read message content: %w", err)}
			return
		}
		done <- readResult{msg: &Message{Size: size, Content: content}}
	}()

	select {
	case result := <-done:
		return result.msg, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
