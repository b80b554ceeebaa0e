/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package pathmap

import (
	"context"
	"maps"
	"slices"

	"github.com/google/go-dap"
)

// BreakpointRequest tracks one setBreakpoints request through path translation.
type BreakpointRequest struct {
	args       *dap.SetBreakpointsArguments
	clientPath string

	// done is closed exactly once, when the request settles.
	done chan struct{}

	// err is written before done is closed and never after.
	err error
}

func newBreakpointRequest(args *dap.SetBreakpointsArguments, clientPath string) *BreakpointRequest {
	return &BreakpointRequest{
		args:       args,
		clientPath: clientPath,
		done:       make(chan struct{}),
	}
}

// Arguments returns the request payload. Its source path is rewritten in place: to the target
// URL once resolved, to the canonical client path while pending.
func (r *BreakpointRequest) Arguments() *dap.SetBreakpointsArguments {
	return r.args
}

// ClientPath returns the canonical client path of the request source ("" if it had none).
func (r *BreakpointRequest) ClientPath() string {
	return r.clientPath
}

// Done returns a channel that is closed when the request settles.
func (r *BreakpointRequest) Done() <-chan struct{} {
	return r.done
}

// Settled reports whether the request has resolved or failed.
func (r *BreakpointRequest) Settled() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Err returns nil while the request is pending or after it resolved, and the failure reason
// if it settled without resolving.
func (r *BreakpointRequest) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the request settles or ctx is done.
// If ctx ends first the request stays pending; use Transformer.Cancel to release it.
func (r *BreakpointRequest) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *BreakpointRequest) settle(err error) bool {
	if r.Settled() {
		return false
	}
	r.err = err
	close(r.done)
	return true
}

// pendingBreakpoints holds at most one unresolved request per canonical client path.
type pendingBreakpoints struct {
	byPath map[string]*BreakpointRequest
}

func newPendingBreakpoints() *pendingBreakpoints {
	return &pendingBreakpoints{
		byPath: make(map[string]*BreakpointRequest),
	}
}

// Put parks req under its client path and returns the request it replaced, if any.
func (q *pendingBreakpoints) Put(req *BreakpointRequest) *BreakpointRequest {
	prev := q.byPath[req.clientPath]
	q.byPath[req.clientPath] = req
	return prev
}

// Take removes and returns the request parked under clientPath.
func (q *pendingBreakpoints) Take(clientPath string) *BreakpointRequest {
	req, found := q.byPath[clientPath]
	if !found {
		return nil
	}
	delete(q.byPath, clientPath)
	return req
}

// Remove removes req if it is still the request parked under its client path.
func (q *pendingBreakpoints) Remove(req *BreakpointRequest) bool {
	if q.byPath[req.clientPath] != req {
		return false
	}
	delete(q.byPath, req.clientPath)
	return true
}

// Drain empties the queue and returns its requests ordered by client path.
func (q *pendingBreakpoints) Drain() []*BreakpointRequest {
	paths := q.Paths()
	reqs := make([]*BreakpointRequest, 0, len(paths))
	for _, p := range paths {
		reqs = append(reqs, q.byPath[p])
	}
	q.byPath = make(map[string]*BreakpointRequest)
	return reqs
}

func (q *pendingBreakpoints) Len() int {
	return len(q.byPath)
}

func (q *pendingBreakpoints) Paths() []string {
	return slices.Sorted(maps.Keys(q.byPath))
}
