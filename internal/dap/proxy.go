/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"
	"github.com/tidwall/gjson"

	"github.com/stanislavfor/vscode-chrome-debug/internal/pathmap"
)

// ProxyConfig contains configuration options for the DAP proxy.
type ProxyConfig struct {
	// Handler is an optional message handler for intercepting and modifying messages.
	// It runs before path translation.
	Handler MessageHandler

	// Resolver performs path canonicalization and inference.
	// If nil, the local filesystem is probed.
	Resolver pathmap.Resolver

	// DefaultWorkspaceRoot is used when a launch or attach request carries no cwd.
	DefaultWorkspaceRoot string

	// PendingTimeout bounds how long a setBreakpoints request may wait for its script to load.
	// If zero, requests wait until the script loads or the client context is cleared.
	PendingTimeout time.Duration

	// SuppressEvents lists target events that are translated but not forwarded to the client.
	SuppressEvents []string

	// Logger is the logger for the proxy. If nil, logging is disabled.
	Logger logr.Logger

	// UpstreamQueueSize is the size of the queue of messages to the client.
	// If zero, defaults to 100.
	UpstreamQueueSize int

	// DownstreamQueueSize is the size of the queue of messages to the target.
	// If zero, defaults to 100.
	DownstreamQueueSize int
}

// inboundMessage is a message read from either side, waiting for dispatch.
type inboundMessage struct {
	msg       dap.Message
	direction Direction
}

// parkedRequest is a setBreakpoints request held back until its script is loaded.
type parkedRequest struct {
	message *dap.SetBreakpointsRequest
	timer   *time.Timer
}

// Proxy sits between a DAP client and a debug target and translates source paths in both directions.
//
// Messages from both sides are handled by a single dispatch goroutine that owns the path
// transformer, so translation happens in arrival order without locking.
type Proxy struct {
	// upstream is the transport to the client
	upstream Transport

	// downstream is the transport to the debug target
	downstream Transport

	// upstreamQueue holds messages to be sent to the client
	upstreamQueue chan dap.Message

	// downstreamQueue holds messages to be sent to the target
	downstreamQueue chan dap.Message

	// inbound carries messages from both readers to the dispatcher
	inbound chan inboundMessage

	// expired carries parked requests whose timer fired
	expired chan *pathmap.BreakpointRequest

	// pendingRequests tracks client requests awaiting a response from the target
	pendingRequests *pendingRequestMap

	// reverseRequests tracks target requests awaiting a response from the client
	reverseRequests *pendingRequestMap

	// adapterSeq generates sequence numbers for messages sent to the target
	adapterSeq *sequenceCounter

	// ideSeq generates sequence numbers for messages sent to the client
	ideSeq *sequenceCounter

	handler MessageHandler

	// paths is only used by the dispatch goroutine
	paths *pathmap.Transformer

	// parked is only used by the dispatch goroutine
	parked map[*pathmap.BreakpointRequest]*parkedRequest

	pendingTimeout       time.Duration
	defaultWorkspaceRoot string
	suppressEvents       map[string]struct{}

	log logr.Logger

	// ctx is the lifecycle context for the proxy
	ctx context.Context

	// cancel cancels the lifecycle context
	cancel context.CancelFunc

	// wg tracks running goroutines for graceful shutdown
	wg sync.WaitGroup

	// startOnce ensures Start is only called once
	startOnce sync.Once

	// mu protects cancel
	mu sync.Mutex
}

// NewProxy creates a new DAP proxy between a client (upstream) and a debug target (downstream).
func NewProxy(upstream, downstream Transport, config ProxyConfig) *Proxy {
	upstreamQueueSize := config.UpstreamQueueSize
	if upstreamQueueSize <= 0 {
		upstreamQueueSize = 100
	}

	downstreamQueueSize := config.DownstreamQueueSize
	if downstreamQueueSize <= 0 {
		downstreamQueueSize = 100
	}

	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	suppressEvents := make(map[string]struct{}, len(config.SuppressEvents))
	for _, name := range config.SuppressEvents {
		suppressEvents[name] = struct{}{}
	}

	handler := config.Handler
	if handler == nil {
		handler = ComposeHandlers()
	}

	p := &Proxy{
		upstream:             upstream,
		downstream:           downstream,
		upstreamQueue:        make(chan dap.Message, upstreamQueueSize),
		downstreamQueue:      make(chan dap.Message, downstreamQueueSize),
		inbound:              make(chan inboundMessage),
		expired:              make(chan *pathmap.BreakpointRequest),
		pendingRequests:      newPendingRequestMap(),
		reverseRequests:      newPendingRequestMap(),
		adapterSeq:           newSequenceCounter(),
		ideSeq:               newSequenceCounter(),
		handler:              handler,
		parked:               make(map[*pathmap.BreakpointRequest]*parkedRequest),
		pendingTimeout:       config.PendingTimeout,
		defaultWorkspaceRoot: config.DefaultWorkspaceRoot,
		suppressEvents:       suppressEvents,
		log:                  log,
	}

	p.paths = pathmap.NewTransformer(pathmap.Config{
		Resolver:  config.Resolver,
		OnSettled: p.handleSettled,
		Logger:    log.WithName("pathmap"),
	})

	return p
}

// Start begins the proxy message pumps and blocks until the proxy terminates.
// Returns an error if the proxy encounters a fatal error, or the context error on cancellation.
func (p *Proxy) Start(ctx context.Context) error {
	startErr := ErrProxyClosed
	p.startOnce.Do(func() {
		startErr = p.startInternal(ctx)
	})
	return startErr
}

func (p *Proxy) startInternal(ctx context.Context) error {
	p.mu.Lock()
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	errChan := make(chan error, 5)

	run := func(name string, f func() error) {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if runErr := f(); runErr != nil {
				p.log.V(1).Info("Message pump stopped", "pump", name, "error", runErr.Error())
				errChan <- fmt.Errorf("%s: %w", name, runErr)
			}
		}()
	}

	run("upstream reader", func() error { return p.reader(p.upstream, Upstream) })
	run("downstream reader", func() error { return p.reader(p.downstream, Downstream) })
	run("upstream writer", func() error { return p.writer(p.upstream, p.upstreamQueue, "client") })
	run("downstream writer", func() error { return p.writer(p.downstream, p.downstreamQueue, "target") })

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		p.dispatch()
	}()

	// Wait for first error or context cancellation
	var result error
	select {
	case result = <-errChan:
		p.log.Info("Proxy terminating", "reason", result.Error())
	case <-p.ctx.Done():
		p.log.Info("Proxy terminating due to context cancellation")
		result = p.ctx.Err()
	}

	// Trigger shutdown
	p.cancel()

	// Close transports to unblock readers and writers
	if closeErr := p.upstream.Close(); closeErr != nil {
		p.log.Error(closeErr, "Error closing client transport")
	}
	if closeErr := p.downstream.Close(); closeErr != nil {
		p.log.Error(closeErr, "Error closing target transport")
	}

	p.wg.Wait()
	<-dispatchDone

	// The dispatcher has exited, so the transformer can be used from this goroutine.
	// Settled requests are not forwarded after shutdown, but their timers are released.
	p.paths.ClearClientContext()
	p.pendingRequests.Clear()
	p.reverseRequests.Clear()

	return result
}

// Stop gracefully stops the proxy.
func (p *Proxy) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
}

// reader reads messages from one side and hands them to the dispatcher.
func (p *Proxy) reader(t Transport, direction Direction) error {
	for {
		msg, readErr := t.ReadMessage()
		if readErr != nil {
			// Check if we're shutting down
			if p.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read %s message: %w", direction, readErr)
		}

		select {
		case p.inbound <- inboundMessage{msg: msg, direction: direction}:
		case <-p.ctx.Done():
			return nil
		}
	}
}

// writer writes queued messages to one side.
func (p *Proxy) writer(t Transport, queue <-chan dap.Message, peer string) error {
	for {
		select {
		case msg := <-queue:
			if writeErr := t.WriteMessage(msg); writeErr != nil {
				if p.ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("failed to write to %s: %w", peer, writeErr)
			}

			p.log.V(1).Info("Sent message", "peer", peer, "message", describe(msg), "seq", msg.GetSeq())

		case <-p.ctx.Done():
			return nil
		}
	}
}

// dispatch owns the path transformer and the parked requests.
func (p *Proxy) dispatch() {
	for {
		select {
		case in := <-p.inbound:
			p.handleMessage(in.msg, in.direction)

		case req := <-p.expired:
			p.paths.Cancel(req, pathmap.ErrPendingTimeout)

		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Proxy) handleMessage(msg dap.Message, direction Direction) {
	p.log.V(1).Info("Received message", "direction", direction.String(), "message", describe(msg), "seq", msg.GetSeq())

	modified, forward := p.handler(msg, direction)
	if !forward {
		p.log.V(1).Info("Message suppressed by handler", "message", describe(msg))
		return
	}
	if modified != nil {
		msg = modified
	}

	if direction == Upstream {
		p.handleClientMessage(msg)
	} else {
		p.handleTargetMessage(msg)
	}
}

func (p *Proxy) handleClientMessage(msg dap.Message) {
	if requestSeq, ok := isResponse(msg); ok {
		p.handleClientResponse(msg, requestSeq)
		return
	}

	command, ok := isRequest(msg)
	if !ok {
		p.log.Info("Unexpected message from client", "message", describe(msg))
		return
	}

	switch m := msg.(type) {
	case *dap.LaunchRequest:
		p.paths.Launch(p.workspaceRoot(m.Arguments))

	case *dap.AttachRequest:
		p.paths.Attach(p.workspaceRoot(m.Arguments))

	case *dap.DisconnectRequest, *dap.RestartRequest:
		p.paths.ClearClientContext()

	case *dap.SetBreakpointsRequest:
		req := p.paths.RequestBreakpoints(&m.Arguments)
		if !req.Settled() {
			p.park(req, m)
			return
		}
	}

	p.log.V(1).Info("Forwarding request to target", "command", command)
	p.forwardToTarget(msg)
}

// workspaceRoot returns the cwd of launch or attach arguments, or the configured default.
func (p *Proxy) workspaceRoot(args json.RawMessage) string {
	if cwd := gjson.GetBytes(args, "cwd"); cwd.Type == gjson.String && cwd.String() != "" {
		return cwd.String()
	}
	return p.defaultWorkspaceRoot
}

// handleClientResponse forwards a client response to a reverse request of the target.
func (p *Proxy) handleClientResponse(msg dap.Message, requestSeq int) {
	pending := p.reverseRequests.Get(requestSeq)
	if pending == nil {
		p.log.Info("Received response for unknown reverse request", "requestSeq", requestSeq)
		return
	}

	if seqErr := setRequestSeq(msg, pending.originalSeq); seqErr != nil {
		p.log.Error(seqErr, "Could not forward response to target", "command", pending.command)
		return
	}

	p.forwardToTarget(msg)
}

func (p *Proxy) park(req *pathmap.BreakpointRequest, msg *dap.SetBreakpointsRequest) {
	parked := &parkedRequest{message: msg}
	if p.pendingTimeout > 0 {
		parked.timer = time.AfterFunc(p.pendingTimeout, func() {
			select {
			case p.expired <- req:
			case <-p.ctx.Done():
			}
		})
	}
	p.parked[req] = parked

	p.log.V(1).Info("Holding setBreakpoints request until the script is loaded",
		"clientPath", req.ClientPath(),
		"seq", msg.Seq,
		"pending", p.paths.PendingCount())
}

// handleSettled is called by the transformer, on the dispatch goroutine, when a parked request settles.
func (p *Proxy) handleSettled(req *pathmap.BreakpointRequest) {
	parked, found := p.parked[req]
	if !found {
		return
	}
	delete(p.parked, req)

	if parked.timer != nil {
		parked.timer.Stop()
	}

	if p.ctx.Err() != nil {
		return
	}

	if settleErr := req.Err(); settleErr != nil {
		p.log.Info("Breakpoint request released without a target URL",
			"clientPath", req.ClientPath(),
			"reason", settleErr.Error())
		p.forwardToClient(newErrorResponse(&parked.message.Request, settleErr))
		return
	}

	p.log.V(1).Info("Forwarding resolved setBreakpoints request to target",
		"clientPath", req.ClientPath(),
		"targetURL", parked.message.Arguments.Source.Path)
	p.forwardToTarget(parked.message)
}

func (p *Proxy) handleTargetMessage(msg dap.Message) {
	if name, ok := eventName(msg); ok {
		p.handleTargetEvent(msg, name)
		return
	}

	if requestSeq, ok := isResponse(msg); ok {
		p.handleTargetResponse(msg, requestSeq)
		return
	}

	if _, ok := isRequest(msg); ok {
		// Reverse request, e.g. runInTerminal
		p.forwardToClient(msg)
		return
	}

	p.log.Info("Unexpected message from target", "message", describe(msg))
}

func (p *Proxy) handleTargetResponse(msg dap.Message, requestSeq int) {
	pending := p.pendingRequests.Get(requestSeq)
	if pending == nil {
		p.log.Info("Received response for unknown request", "requestSeq", requestSeq)
		return
	}

	if seqErr := setRequestSeq(msg, pending.originalSeq); seqErr != nil {
		p.log.Error(seqErr, "Could not forward response to client", "command", pending.command)
		return
	}

	switch m := msg.(type) {
	case *dap.StackTraceResponse:
		p.paths.StackTraceResponse(&m.Body)

	case *dap.SetBreakpointsResponse:
		for i := range m.Body.Breakpoints {
			p.paths.TranslateSourceToClient(m.Body.Breakpoints[i].Source)
		}

	case *dap.LoadedSourcesResponse:
		for i := range m.Body.Sources {
			p.paths.TranslateSourceToClient(&m.Body.Sources[i])
		}
	}

	p.forwardToClient(msg)
}

func (p *Proxy) handleTargetEvent(msg dap.Message, name string) {
	switch m := msg.(type) {
	case *pathmap.ScriptParsedEvent:
		p.paths.ScriptParsed(m)

	case *dap.LoadedSourceEvent:
		switch m.Body.Reason {
		case "new", "changed":
			if clientPath, ok := p.paths.AnnounceScript(m.Body.Source.Path); ok {
				m.Body.Source.Path = clientPath
			}
		default:
			p.paths.TranslateSourceToClient(&m.Body.Source)
		}

	case *dap.BreakpointEvent:
		p.paths.TranslateSourceToClient(m.Body.Breakpoint.Source)

	case *dap.OutputEvent:
		p.paths.TranslateSourceToClient(m.Body.Source)

	case *GlobalObjectClearedEvent, *dap.TerminatedEvent:
		p.paths.ClearTargetContext()
	}

	if _, suppressed := p.suppressEvents[name]; suppressed {
		p.log.V(1).Info("Event not forwarded to client", "event", name)
		return
	}

	p.forwardToClient(msg)
}

// forwardToTarget assigns a target sequence number to msg and queues it.
// Requests are tracked so that the response can be matched to the original client sequence number.
func (p *Proxy) forwardToTarget(msg dap.Message) {
	originalSeq := msg.GetSeq()
	seq := p.adapterSeq.Next()
	if seqErr := setSeq(msg, seq); seqErr != nil {
		p.log.Error(seqErr, "Could not forward message to target", "message", describe(msg))
		return
	}
	if command, ok := isRequest(msg); ok {
		p.pendingRequests.Add(seq, &pendingRequest{originalSeq: originalSeq, command: command})
	}

	select {
	case p.downstreamQueue <- msg:
	case <-p.ctx.Done():
	}
}

// forwardToClient assigns a client sequence number to msg and queues it.
// Reverse requests are tracked so that the client response can be matched to the target sequence number.
func (p *Proxy) forwardToClient(msg dap.Message) {
	originalSeq := msg.GetSeq()
	seq := p.ideSeq.Next()
	if seqErr := setSeq(msg, seq); seqErr != nil {
		p.log.Error(seqErr, "Could not forward message to client", "message", describe(msg))
		return
	}
	if command, ok := isRequest(msg); ok {
		p.reverseRequests.Add(seq, &pendingRequest{originalSeq: originalSeq, command: command})
	}

	select {
	case p.upstreamQueue <- msg:
	case <-p.ctx.Done():
	}
}

func newErrorResponse(req *dap.Request, err error) *dap.ErrorResponse {
	return &dap.ErrorResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         req.Command,
			RequestSeq:      req.Seq,
			Success:         false,
			Message:         err.Error(),
		},
	}
}
