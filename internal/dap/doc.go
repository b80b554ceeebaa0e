/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

/*
Package dap provides the Debug Adapter Protocol (DAP) side of the script bridge.

# Architecture Overview

A Proxy sits between an IDE's debug client and a debug target that speaks DAP plus
a few non-standard events. The client refers to sources by local file path; the target
refers to the scripts it loaded by URL. Every message passes through a pathmap.Transformer
so that each side only sees its own kind of location.

# Key Components

  - Transport: DAP framing over TCP or stdio (go-dap base protocol)
  - DecodeMessage: decodes standard messages with go-dap and keeps non-standard
    messages either typed (scriptParsed, globalObjectCleared) or raw
  - Proxy: reader and writer goroutines per side around a single dispatch loop
  - MessageHandler: optional interception before path translation

# Translation

Client to target:
  - launch/attach: the cwd argument becomes the workspace root
  - setBreakpoints: forwarded with the target URL, or held until the target loads the script
  - disconnect/restart: held setBreakpoints requests are answered with an error response

Target to client:
  - scriptParsed and loadedSource: record the script and release held requests for it
  - stackTrace, setBreakpoints and loadedSources responses, breakpoint and output events:
    sources rewritten to client paths where possible
  - globalObjectCleared and terminated: recorded scripts are forgotten

# Sequence Numbers

The proxy renumbers every message it sends. Responses are matched to the request they
answer and get the sender's original request_seq back.
*/
package dap
