/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package pathmap

import (
	"github.com/go-logr/logr"
	"github.com/google/go-dap"

	"github.com/stanislavfor/vscode-chrome-debug/pkg/pathutil"
)

// Resolver converts between raw client paths, canonical client paths and target URLs.
type Resolver interface {
	// Canonicalize normalizes a client path, resolving relative paths against workspaceRoot.
	Canonicalize(raw string, workspaceRoot string) string

	// InferClientPath derives a canonical client path from a target URL.
	// Returns false if the URL does not correspond to a file in the workspace.
	InferClientPath(targetURL string, workspaceRoot string) (string, bool)
}

// Config contains configuration for creating a Transformer.
type Config struct {
	// Resolver performs path canonicalization and inference.
	// If nil, a pathutil.Resolver probing the local filesystem is used.
	Resolver Resolver

	// OnSettled is called each time a parked breakpoint request resolves or fails.
	// Requests settled inside RequestBreakpoints itself are not reported.
	OnSettled func(req *BreakpointRequest)

	// Logger for diagnostic notices.
	Logger logr.Logger
}

// SessionContext holds per-session parameters established at launch or attach.
type SessionContext struct {
	// WorkspaceRoot is used to resolve relative client paths. Stored verbatim.
	WorkspaceRoot string
}

// Transformer translates source paths between the client and the debug target.
// It must only be used from a single goroutine.
type Transformer struct {
	resolver  Resolver
	onSettled func(req *BreakpointRequest)
	log       logr.Logger

	session SessionContext

	// clientPathToURL maps canonical client paths to target URLs (last writer wins).
	clientPathToURL map[string]string

	// urlToClientPath is the reverse of clientPathToURL.
	urlToClientPath map[string]string

	pending *pendingBreakpoints
}

// NewTransformer creates a Transformer with an empty session context.
func NewTransformer(config Config) *Transformer {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	resolver := config.Resolver
	if resolver == nil {
		resolver = pathutil.NewResolver()
	}

	return &Transformer{
		resolver:        resolver,
		onSettled:       config.OnSettled,
		log:             log,
		clientPathToURL: make(map[string]string),
		urlToClientPath: make(map[string]string),
		pending:         newPendingBreakpoints(),
	}
}

// Launch starts a new session context for a launched debuggee.
func (t *Transformer) Launch(workspaceRoot string) {
	t.startSession("launch", workspaceRoot)
}

// Attach starts a new session context for an attached debuggee.
func (t *Transformer) Attach(workspaceRoot string) {
	t.startSession("attach", workspaceRoot)
}

func (t *Transformer) startSession(kind string, workspaceRoot string) {
	t.session = SessionContext{WorkspaceRoot: workspaceRoot}
	t.log.V(1).Info("Session context set", "kind", kind, "workspaceRoot", workspaceRoot)
}

// Session returns the current session context.
func (t *Transformer) Session() SessionContext {
	return t.session
}

// Canonicalize normalizes a client path using the session's workspace root.
func (t *Transformer) Canonicalize(raw string) string {
	return t.resolver.Canonicalize(raw, t.session.WorkspaceRoot)
}

// RecordScript maps a canonical client path to a target URL, replacing any previous mapping.
// A breakpoint request pending for the same path is resolved before RecordScript returns.
func (t *Transformer) RecordScript(clientPath string, targetURL string) {
	clientPath = t.Canonicalize(clientPath)
	if clientPath == "" {
		return
	}

	t.clientPathToURL[clientPath] = targetURL
	t.urlToClientPath[targetURL] = clientPath

	t.resolvePending(clientPath, targetURL)
}

func (t *Transformer) resolvePending(clientPath string, targetURL string) {
	req := t.pending.Take(clientPath)
	if req == nil {
		return
	}

	// The mapping was just recorded, so the parked request resolves without parking again.
	req.args.Source.Path = targetURL
	t.log.V(1).Info("Resolved pending breakpoint request",
		"clientPath", clientPath,
		"targetURL", targetURL)
	t.settle(req, nil)
}

// Lookup returns the target URL recorded for a canonical client path.
func (t *Transformer) Lookup(clientPath string) (string, bool) {
	url, found := t.clientPathToURL[t.Canonicalize(clientPath)]
	return url, found
}

// LookupClientPath returns the canonical client path recorded for a target URL.
func (t *Transformer) LookupClientPath(targetURL string) (string, bool) {
	clientPath, found := t.urlToClientPath[targetURL]
	return clientPath, found
}

// ClearTargetContext forgets every recorded mapping. Used when the target reloads, so URLs
// from a previous run are never reused.
func (t *Transformer) ClearTargetContext() {
	t.log.V(1).Info("Clearing target context", "mappings", len(t.clientPathToURL))
	t.clientPathToURL = make(map[string]string)
	t.urlToClientPath = make(map[string]string)
}

// RequestBreakpoints translates the source path of a setBreakpoints request.
//
// The returned request is already settled if the arguments carry no source path or the
// target URL is known. Otherwise the source path is set to the canonical client path and the
// request stays pending until the target announces a matching script.
func (t *Transformer) RequestBreakpoints(args *dap.SetBreakpointsArguments) *BreakpointRequest {
	if args == nil || args.Source.Path == "" {
		req := newBreakpointRequest(args, "")
		req.settle(nil)
		return req
	}

	clientPath := t.Canonicalize(args.Source.Path)
	req := newBreakpointRequest(args, clientPath)

	if url, found := t.clientPathToURL[clientPath]; found {
		args.Source.Path = url
		req.settle(nil)
		return req
	}

	t.log.V(1).Info("No target URL cached for client path, waiting for the target to load the script",
		"clientPath", clientPath)
	args.Source.Path = clientPath

	if prev := t.pending.Put(req); prev != nil {
		t.log.V(1).Info("Pending breakpoint request superseded", "clientPath", clientPath)
		t.settle(prev, ErrSuperseded)
	}

	return req
}

// ClearClientContext discards every pending breakpoint request. Discarded requests never
// resolve; they fail with ErrClientContextCleared.
func (t *Transformer) ClearClientContext() {
	discarded := t.pending.Drain()
	t.log.V(1).Info("Clearing client context", "pendingRequests", len(discarded))
	for _, req := range discarded {
		t.settle(req, ErrClientContextCleared)
	}
}

// Cancel removes a pending request and fails it with err (ErrCanceled if nil).
// Returns false if the request was no longer pending.
func (t *Transformer) Cancel(req *BreakpointRequest, err error) bool {
	if req == nil || !t.pending.Remove(req) {
		return false
	}
	if err == nil {
		err = ErrCanceled
	}
	t.log.V(1).Info("Pending breakpoint request canceled", "clientPath", req.clientPath, "reason", err.Error())
	t.settle(req, err)
	return true
}

// PendingCount returns the number of parked breakpoint requests.
func (t *Transformer) PendingCount() int {
	return t.pending.Len()
}

// PendingPaths returns the canonical client paths of parked requests, sorted.
func (t *Transformer) PendingPaths() []string {
	return t.pending.Paths()
}

// AnnounceScript records a script loaded by the target and returns its canonical client path.
// Returns false, recording nothing, if no client path can be inferred from the URL.
func (t *Transformer) AnnounceScript(targetURL string) (string, bool) {
	clientPath, ok := t.resolver.InferClientPath(targetURL, t.session.WorkspaceRoot)
	if !ok || clientPath == "" {
		t.log.V(1).Info("Could not infer client path for script", "targetURL", targetURL)
		return "", false
	}

	t.RecordScript(clientPath, targetURL)
	return clientPath, true
}

// ScriptParsed handles a scriptParsed event from the target, rewriting its script URL in place
// to the client path.
func (t *Transformer) ScriptParsed(event *ScriptParsedEvent) {
	if event == nil {
		return
	}
	if clientPath, ok := t.AnnounceScript(event.Body.ScriptUrl); ok {
		event.Body.ScriptUrl = clientPath
	}
}

// TargetToClientPath translates a path or URL reported by the target to a client path,
// preferring recorded mappings over inference.
func (t *Transformer) TargetToClientPath(targetPath string) (string, bool) {
	if targetPath == "" {
		return "", false
	}
	if clientPath, found := t.urlToClientPath[targetPath]; found {
		return clientPath, true
	}
	return t.resolver.InferClientPath(targetPath, t.session.WorkspaceRoot)
}

// TranslateSourceToClient rewrites a source reported by the target to its client path.
// The source is left untouched if no client path can be derived.
func (t *Transformer) TranslateSourceToClient(src *dap.Source) bool {
	if src == nil || src.Path == "" {
		return false
	}
	clientPath, ok := t.TargetToClientPath(src.Path)
	if !ok {
		return false
	}
	src.Path = clientPath
	return true
}

// StackTraceResponse rewrites the source path of every stack frame that can be mapped to a
// client path. Frames from scripts outside the workspace keep their original path.
func (t *Transformer) StackTraceResponse(body *dap.StackTraceResponseBody) {
	if body == nil {
		return
	}
	for i := range body.StackFrames {
		t.TranslateSourceToClient(body.StackFrames[i].Source)
	}
}

func (t *Transformer) settle(req *BreakpointRequest, err error) {
	if req.settle(err) && t.onSettled != nil {
		t.onSettled(req)
	}
}
