/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stanislavfor/vscode-chrome-debug/pkg/logger"
)

func NewRootCommand(logger *logger.Logger) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		SilenceErrors: true,
		Use:           "scriptbridge",
		Short:         "Bridges a debug client and a script debug target",
		Long: `Bridges a debug client and a script debug target.

	The client refers to sources by local file path while the target refers to the scripts it loaded by URL.
	Breakpoints set before the target loads a script are held until the script is loaded.`,
		SilenceUsage:     true,
		PersistentPreRun: LogVersion(logger.Logger, "Starting script bridge..."),
	}

	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	logger.AddLevelFlag(rootCmd.PersistentFlags())

	var err error
	var cmd *cobra.Command

	if cmd, err = NewVersionCommand(logger.Logger); err != nil {
		return nil, fmt.Errorf("could not set up 'version' command: %w", err)
	} else {
		rootCmd.AddCommand(cmd)
	}

	rootCmd.AddCommand(NewRunCommand(logger.Logger))

	return rootCmd, nil
}
