/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

var (
	// ErrProxyClosed is returned when attempting to use a closed proxy.
	ErrProxyClosed = errors.New("proxy is closed")
)

// IsProxyError returns true if the error indicates a proxy-related failure.
func IsProxyError(err error) bool {
	return errors.Is(err, ErrProxyClosed) ||
		errors.Is(err, ErrTransportClosed)
}

// IsSessionEnd returns true if the error returned by Proxy.Start is an expected way for
// a debug session to end: the proxy was stopped or one of the peers closed its connection.
func IsSessionEnd(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		IsProxyError(err)
}
