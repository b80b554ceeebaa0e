/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"os"
	"runtime"

	"github.com/stanislavfor/vscode-chrome-debug/pkg/logger"
)

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

func WithNewline(b []byte) []byte {
	if IsWindows() {
		b = append(b, '\r')
	}
	b = append(b, '\n')
	return b
}

// ErrorExit logs the error, writes it to stderr and exits the process with the given code.
func ErrorExit(log *logger.Logger, err error, exitCode int) {
	log.Error(err, "Command failed", "exitCode", exitCode)
	_, _ = os.Stderr.Write(WithNewline([]byte(err.Error())))
	log.Flush()
	os.Exit(exitCode)
}
