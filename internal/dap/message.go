// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package dap

import (
	"sync"
)

// Direction indicates the flow direction of a DAP message through the proxy.
type Direction int

const (
	// Upstream indicates a message flowing from the client (IDE) to the debug target.
	Upstream Direction = iota
	// Downstream indicates a message flowing from the debug target to the client.
	Downstream
)

// String returns a human-readable representation of the direction.
func (d Direction) String() string {
	switch d {
	case Upstream:
		return "upstream"
	case Downstream:
		return "downstream"
	default:
		return "unknown"
	}
}

// pendingRequest tracks a request forwarded by the proxy that is awaiting a response.
type pendingRequest struct {
	// originalSeq is the sequence number assigned by the request's sender.
	originalSeq int

	// command is the request command (for logging).
	command string
}

// pendingRequestMap is a thread-safe map of pending requests keyed by the sequence number
// the proxy assigned when forwarding them.
type pendingRequestMap struct {
	mu       sync.Mutex
	requests map[int]*pendingRequest
}

func newPendingRequestMap() *pendingRequestMap {
	return &pendingRequestMap{
		requests: make(map[int]*pendingRequest),
	}
}

// Add adds a pending request to the map.
func (m *pendingRequestMap) Add(proxySeq int, req *pendingRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[proxySeq] = req
}

// Get retrieves and removes a pending request from the map.
// Returns nil if no request exists for the given sequence number.
func (m *pendingRequestMap) Get(proxySeq int) *pendingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[proxySeq]
	if !ok {
		return nil
	}

	delete(m.requests, proxySeq)
	return req
}

// Len returns the number of pending requests.
func (m *pendingRequestMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Clear drops all pending requests.
func (m *pendingRequestMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[int]*pendingRequest)
}

// sequenceCounter provides thread-safe sequence number generation.
type sequenceCounter struct {
	mu  sync.Mutex
	seq int
}

// newSequenceCounter creates a new sequence counter starting at 0.
func newSequenceCounter() *sequenceCounter {
	return &sequenceCounter{seq: 0}
}

// Next returns the next sequence number.
func (c *sequenceCounter) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *sequenceCounter) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
