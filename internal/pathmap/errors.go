/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package pathmap

import (
	"errors"
)

var (
	// ErrSuperseded is the result of a pending request replaced by a newer request for the same source.
	ErrSuperseded = errors.New("breakpoint request superseded by a newer request for the same source")

	// ErrClientContextCleared is the result of pending requests discarded by ClearClientContext.
	ErrClientContextCleared = errors.New("client context cleared before the source was loaded")

	// ErrPendingTimeout is used to cancel requests whose source was not loaded in time.
	ErrPendingTimeout = errors.New("timed out waiting for the target to load the source")

	// ErrCanceled is used by Cancel when no specific error is supplied.
	ErrCanceled = errors.New("breakpoint request canceled")
)

// IsUnresolved returns true if the error means a breakpoint request was released without
// ever being mapped to a target URL.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrSuperseded) ||
		errors.Is(err, ErrClientContextCleared) ||
		errors.Is(err, ErrPendingTimeout) ||
		errors.Is(err, ErrCanceled)
}
