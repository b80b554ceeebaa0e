// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package dap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/go-dap"
)

// ErrTransportClosed is returned by transport operations after Close.
var ErrTransportClosed = errors.New("transport is closed")

// Transport provides an abstraction for DAP message I/O over different connection types.
// Implementations must be safe for concurrent use by multiple goroutines for reading
// and writing, but individual reads and writes may not be concurrent with each other.
type Transport interface {
	// ReadMessage reads the next DAP protocol message from the transport.
	// Messages without a go-dap type are returned as *RawMessage.
	// This method blocks until a complete message is available.
	ReadMessage() (dap.Message, error)

	// WriteMessage writes a DAP protocol message to the transport.
	WriteMessage(msg dap.Message) error

	// Close closes the transport, releasing any associated resources.
	// After Close is called, any blocked ReadMessage or WriteMessage calls
	// should return with an error.
	Close() error
}

// streamTransport implements Transport over a pair of byte streams.
type streamTransport struct {
	reader  *bufio.Reader
	writer  *bufio.Writer
	closers []io.Closer

	// writeMu protects concurrent writes to the stream
	writeMu sync.Mutex

	// closed indicates whether the transport has been closed
	closed bool
	mu     sync.Mutex
}

// NewTCPTransport creates a new Transport backed by a TCP connection.
func NewTCPTransport(conn net.Conn) Transport {
	return &streamTransport{
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		closers: []io.Closer{conn},
	}
}

// NewStdioTransport creates a new Transport backed by stdin and stdout streams.
// The caller is responsible for ensuring that stdin supports reading and stdout supports writing.
func NewStdioTransport(stdin io.ReadCloser, stdout io.WriteCloser) Transport {
	return &streamTransport{
		reader:  bufio.NewReader(stdin),
		writer:  bufio.NewWriter(stdout),
		closers: []io.Closer{stdin, stdout},
	}
}

// DialTCP establishes a TCP connection to the specified address and returns a Transport.
func DialTCP(ctx context.Context, address string) (Transport, error) {
	var d net.Dialer
	conn, dialErr := d.DialContext(ctx, "tcp", address)
	if dialErr != nil {
		return nil, fmt.Errorf("failed to dial TCP %s: %w", address, dialErr)
	}

	return NewTCPTransport(conn), nil
}

// AcceptTCP listens on the specified address, waits for a single client connection and
// returns a Transport for it. The listener is closed once a connection is accepted or ctx is done.
// If ready is not nil, it is called with the bound address before waiting.
func AcceptTCP(ctx context.Context, address string, ready func(net.Addr)) (Transport, error) {
	var lc net.ListenConfig
	listener, listenErr := lc.Listen(ctx, "tcp", address)
	if listenErr != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, listenErr)
	}

	if ready != nil {
		ready(listener.Addr())
	}

	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
	})
	defer stop()
	defer listener.Close()

	conn, acceptErr := listener.Accept()
	if acceptErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to accept connection on %s: %w", listener.Addr(), acceptErr)
	}

	return NewTCPTransport(conn), nil
}

func (t *streamTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *streamTransport) ReadMessage() (dap.Message, error) {
	if t.isClosed() {
		return nil, ErrTransportClosed
	}

	content, readErr := dap.ReadBaseMessage(t.reader)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read DAP message: %w", readErr)
	}

	return DecodeMessage(content)
}

func (t *streamTransport) WriteMessage(msg dap.Message) error {
	if t.isClosed() {
		return ErrTransportClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	writeErr := dap.WriteProtocolMessage(t.writer, msg)
	if writeErr != nil {
		return fmt.Errorf("failed to write DAP message: %w", writeErr)
	}

	flushErr := t.writer.Flush()
	if flushErr != nil {
		return fmt.Errorf("failed to flush DAP message: %w", flushErr)
	}

	return nil
}

func (t *streamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	var errs []error
	for _, c := range t.closers {
		if closeErr := c.Close(); closeErr != nil {
			errs = append(errs, closeErr)
		}
	}

	return errors.Join(errs...)
}
