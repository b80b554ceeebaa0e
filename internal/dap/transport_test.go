/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanislavfor/vscode-chrome-debug/internal/pathmap"
	"github.com/stanislavfor/vscode-chrome-debug/pkg/testutil"
)

func TestTCPTransport(t *testing.T) {
	t.Parallel()

	// Create a listener
	listener, listenErr := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, listenErr)
	defer listener.Close()

	// Accept connection in goroutine
	var serverConn net.Conn
	var acceptErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		serverConn, acceptErr = listener.Accept()
	}()

	// Connect client
	clientConn, dialErr := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, dialErr)

	wg.Wait()
	require.NoError(t, acceptErr)
	require.NotNil(t, serverConn)

	clientTransport := NewTCPTransport(clientConn)
	serverTransport := NewTCPTransport(serverConn)
	defer clientTransport.Close()
	defer serverTransport.Close()

	t.Run("write and read message", func(t *testing.T) {
		request := &dap.InitializeRequest{
			Request: dap.Request{
				ProtocolMessage: dap.ProtocolMessage{Seq: 1, Type: "request"},
				Command:         "initialize",
			},
		}

		writeErr := clientTransport.WriteMessage(request)
		require.NoError(t, writeErr)

		received, readErr := serverTransport.ReadMessage()
		require.NoError(t, readErr)

		initReq, ok := received.(*dap.InitializeRequest)
		require.True(t, ok, "expected *dap.InitializeRequest, got %T", received)
		assert.Equal(t, 1, initReq.Seq)
		assert.Equal(t, "initialize", initReq.Command)
	})

	t.Run("non-standard messages", func(t *testing.T) {
		writeErr := serverTransport.WriteMessage(pathmap.NewScriptParsedEvent(2, "http://localhost:8080/app.js"))
		require.NoError(t, writeErr)

		raw := &RawMessage{Data: []byte(`{"seq":3,"type":"event","event":"customEvent","body":{"n":7}}`)}
		writeErr = serverTransport.WriteMessage(raw)
		require.NoError(t, writeErr)

		received, readErr := clientTransport.ReadMessage()
		require.NoError(t, readErr)
		scriptParsed, ok := received.(*pathmap.ScriptParsedEvent)
		require.True(t, ok, "expected *pathmap.ScriptParsedEvent, got %T", received)
		assert.Equal(t, "http://localhost:8080/app.js", scriptParsed.Body.ScriptUrl)

		received, readErr = clientTransport.ReadMessage()
		require.NoError(t, readErr)
		rawReceived, ok := received.(*RawMessage)
		require.True(t, ok, "expected *RawMessage, got %T", received)
		assert.JSONEq(t, string(raw.Data), string(rawReceived.Data))
	})

	t.Run("close prevents further operations", func(t *testing.T) {
		closeErr := clientTransport.Close()
		assert.NoError(t, closeErr)

		_, readErr := clientTransport.ReadMessage()
		assert.ErrorIs(t, readErr, ErrTransportClosed)

		writeErr := clientTransport.WriteMessage(&dap.InitializeRequest{})
		assert.ErrorIs(t, writeErr, ErrTransportClosed)

		// Double close should be safe
		assert.NoError(t, clientTransport.Close())
	})
}

func TestAcceptTCP(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	addrChan := make(chan net.Addr, 1)
	var server Transport
	var acceptErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		server, acceptErr = AcceptTCP(ctx, "127.0.0.1:0", func(addr net.Addr) {
			addrChan <- addr
		})
	}()

	var addr net.Addr
	select {
	case addr = <-addrChan:
	case <-ctx.Done():
		t.Fatal("listener was not ready in time")
	}

	client, dialErr := DialTCP(ctx, addr.String())
	require.NoError(t, dialErr)
	defer client.Close()

	wg.Wait()
	require.NoError(t, acceptErr)
	defer server.Close()

	require.NoError(t, client.WriteMessage(&dap.ThreadsRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Seq: 1, Type: "request"},
			Command:         "threads",
		},
	}))

	received, readErr := server.ReadMessage()
	require.NoError(t, readErr)
	_, ok := received.(*dap.ThreadsRequest)
	assert.True(t, ok, "expected *dap.ThreadsRequest, got %T", received)
}

func TestAcceptTCP_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)

	ready := make(chan struct{})
	go func() {
		<-ready
		cancel()
	}()

	_, acceptErr := AcceptTCP(ctx, "127.0.0.1:0", func(net.Addr) { close(ready) })
	assert.ErrorIs(t, acceptErr, context.Canceled)
}

// mockReadWriteCloser implements io.ReadWriteCloser for testing
type mockReadWriteCloser struct {
	reader   *bytes.Buffer
	writer   *bytes.Buffer
	closed   bool
	closeErr error
	mu       sync.Mutex
}

func newMockReadWriteCloser() *mockReadWriteCloser {
	return &mockReadWriteCloser{
		reader: bytes.NewBuffer(nil),
		writer: bytes.NewBuffer(nil),
	}
}

func (m *mockReadWriteCloser) Read(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.EOF
	}
	return m.reader.Read(p)
}

func (m *mockReadWriteCloser) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	return m.writer.Write(p)
}

func (m *mockReadWriteCloser) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.closeErr
}

func TestStdioTransport(t *testing.T) {
	t.Parallel()

	t.Run("write and read message", func(t *testing.T) {
		// Create connected pipes
		serverRead, clientWrite := io.Pipe()
		clientRead, serverWrite := io.Pipe()

		clientTransport := NewStdioTransport(clientRead, clientWrite)
		serverTransport := NewStdioTransport(serverRead, serverWrite)

		defer clientTransport.Close()
		defer serverTransport.Close()

		request := &dap.InitializeRequest{
			Request: dap.Request{
				ProtocolMessage: dap.ProtocolMessage{Seq: 1, Type: "request"},
				Command:         "initialize",
			},
		}

		var wg sync.WaitGroup
		wg.Add(1)

		var received dap.Message
		var readErr error

		go func() {
			defer wg.Done()
			received, readErr = serverTransport.ReadMessage()
		}()

		writeErr := clientTransport.WriteMessage(request)
		require.NoError(t, writeErr)

		wg.Wait()

		require.NoError(t, readErr)
		initReq, ok := received.(*dap.InitializeRequest)
		require.True(t, ok)
		assert.Equal(t, 1, initReq.Seq)
	})

	t.Run("end of input", func(t *testing.T) {
		stdin := newMockReadWriteCloser()
		stdout := newMockReadWriteCloser()

		transport := NewStdioTransport(stdin, stdout)
		defer transport.Close()

		_, readErr := transport.ReadMessage()
		assert.ErrorIs(t, readErr, io.EOF)
		assert.True(t, IsSessionEnd(readErr))
	})

	t.Run("close reports stream errors", func(t *testing.T) {
		stdin := newMockReadWriteCloser()
		stdout := newMockReadWriteCloser()
		stdout.closeErr = io.ErrClosedPipe

		transport := NewStdioTransport(stdin, stdout)

		closeErr := transport.Close()
		assert.ErrorIs(t, closeErr, io.ErrClosedPipe)
		assert.True(t, stdin.closed, "stdin should be closed even if stdout fails")

		writeErr := transport.WriteMessage(&dap.InitializeRequest{})
		assert.Error(t, writeErr)

		// Double close should be safe
		assert.NoError(t, transport.Close())
	})
}
