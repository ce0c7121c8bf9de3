package transport

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"github.com/mcpkit/mcp-engine-go/pkg/logging"
)

// maxFrameSize bounds one newline-delimited frame.
const maxFrameSize = 10 * 1024 * 1024

// StdioTransport frames messages as newline-delimited JSON over a reader
// and writer pair, conventionally stdin and stdout. Logging must go to
// stderr; a log line on stdout would corrupt the frame stream.
type StdioTransport struct {
	reader *bufio.Reader
	writer io.Writer

	writeMu sync.Mutex

	frames chan []byte
	errs   chan error

	closeOnce sync.Once
	closed    chan struct{}
	closer    io.Closer

	logger logging.Logger
}

// StdioOption configures a StdioTransport
type StdioOption func(*StdioTransport)

// WithStdioLogger sets the transport logger
func WithStdioLogger(logger logging.Logger) StdioOption {
	return func(t *StdioTransport) {
		t.logger = logger
	}
}

// NewStdioTransport creates a transport over stdin and stdout.
func NewStdioTransport(options ...StdioOption) *StdioTransport {
	return NewStdioTransportWithStreams(os.Stdin, os.Stdout, options...)
}

// NewStdioTransportWithStreams creates a transport over an arbitrary
// reader and writer. If the reader is also an io.Closer, Close closes it to
// unblock the read loop.
func NewStdioTransportWithStreams(in io.Reader, out io.Writer, options ...StdioOption) *StdioTransport {
	t := &StdioTransport{
		reader: bufio.NewReaderSize(in, 64*1024),
		writer: out,
		frames: make(chan []byte, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
		logger: logging.Discard(),
	}
	if closer, ok := in.(io.Closer); ok {
		t.closer = closer
	}
	for _, option := range options {
		option(t)
	}

	go t.readLoop()
	return t
}

func (t *StdioTransport) readLoop() {
	for {
		line, err := t.readFrame()
		if err != nil {
			select {
			case t.errs <- err:
			case <-t.closed:
			}
			return
		}
		if len(line) == 0 {
			continue
		}
		select {
		case t.frames <- line:
		case <-t.closed:
			return
		}
	}
}

func (t *StdioTransport) readFrame() ([]byte, error) {
	var frame []byte
	for {
		chunk, isPrefix, err := t.reader.ReadLine()
		if err != nil {
			return nil, err
		}
		frame = append(frame, chunk...)
		if len(frame) > maxFrameSize {
			t.logger.Error("frame exceeds size limit, dropping connection",
				logging.Int("limit", maxFrameSize))
			return nil, io.ErrShortBuffer
		}
		if !isPrefix {
			return frame, nil
		}
	}
}

// Send writes one frame followed by a newline delimiter.
func (t *StdioTransport) Send(ctx context.Context, frame []byte) error {
	select {
	case <-t.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.writer.Write(frame); err != nil {
		return err
	}
	_, err := t.writer.Write([]byte{'\n'})
	return err
}

// Receive blocks for the next frame.
func (t *StdioTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-t.frames:
		return frame, nil
	case err := <-t.errs:
		return nil, err
	case <-t.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the transport down and unblocks pending receives.
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		if t.closer != nil {
			_ = t.closer.Close()
		}
	})
	return nil
}
