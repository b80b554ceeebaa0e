/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

/*
Package pathmap reconciles the two names a debug session has for every source file: the
client path known to the IDE, and the script URL reported by the debug target.

# Components

  - Session context: the workspace root recorded on launch or attach, used to resolve
    relative client paths.
  - Mapping tables: canonical client path to target URL (and the reverse), filled as the
    target announces scripts and cleared only by ClearTargetContext.
  - Pending breakpoints: setBreakpoints requests for sources the target has not announced
    yet, keyed by canonical client path.

# Deferred breakpoints

RequestBreakpoints never blocks. When the target URL is already known the returned
BreakpointRequest is settled before the call returns. Otherwise the request is parked and
settles when one of the following happens:

  - a ScriptParsed (or AnnounceScript) call maps some URL to the same canonical path: the
    request resolves with its source path rewritten to that URL;
  - a newer request for the same path supersedes it: it fails with ErrSuperseded;
  - ClearClientContext discards it: it fails with ErrClientContextCleared;
  - the owner cancels it, typically after a timeout.

A target that never loads the script never resolves the request. Callers that cannot wait
indefinitely should use BreakpointRequest.Wait with a deadline, or Cancel.

# Concurrency

A Transformer is confined to a single goroutine and takes no locks. The Config.OnSettled
callback runs on that goroutine, synchronously, in the order requests settle. Other
goroutines may only wait on BreakpointRequest values.
*/
package pathmap
