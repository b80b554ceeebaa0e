/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/stanislavfor/vscode-chrome-debug/internal/dap"
	"github.com/stanislavfor/vscode-chrome-debug/pkg/pathutil"
	"github.com/stanislavfor/vscode-chrome-debug/pkg/resiliency"
)

func NewRunCommand(log logr.Logger) *cobra.Command {
	flags := &runFlags{}

	runCmd := &cobra.Command{
		Use:   "run --target host:port [--listen host:port] [--workspace-root dir] [--path-mapping prefix=dir]...",
		Short: "Runs the script bridge between a debug client and a debug target",
		Long: `Runs the script bridge between a debug client and a debug target.

	The bridge forwards Debug Adapter Protocol messages in both directions, translating local source paths
	used by the client into the script URLs used by the target and back.`,
		RunE: runBridge(log, flags),
		Args: cobra.NoArgs,
	}

	flags.addTo(runCmd.Flags())

	return runCmd
}

func runBridge(rootLog logr.Logger, flags *runFlags) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log := rootLog.WithName("run")

		cfg, configErr := resolveConfig(cmd.Flags(), flags)
		if configErr != nil {
			log.Error(configErr, "Invocation parameters are invalid")
			return configErr
		}

		ctx := cmd.Context()

		target, dialErr := connectToTarget(ctx, cfg, log)
		if dialErr != nil {
			log.Error(dialErr, "Could not connect to the debug target", "Target", cfg.Target)
			return dialErr
		}

		client, clientErr := connectToClient(ctx, cfg, log)
		if clientErr != nil {
			_ = target.Close()
			log.Error(clientErr, "Could not connect to the debug client")
			return clientErr
		}

		proxy := dap.NewProxy(client, target, dap.ProxyConfig{
			Resolver:             pathutil.NewResolver(cfg.PathMappings...),
			DefaultWorkspaceRoot: cfg.WorkspaceRoot,
			PendingTimeout:       cfg.PendingTimeout,
			SuppressEvents:       cfg.SuppressEvents,
			Logger:               log.WithName("proxy"),
		})

		log.Info("Script bridge started", "Target", cfg.Target, "WorkspaceRoot", cfg.WorkspaceRoot)
		proxyErr := proxy.Start(ctx)
		if dap.IsSessionEnd(proxyErr) {
			log.Info("Debug session ended")
			return nil
		}

		return fmt.Errorf("script bridge stopped unexpectedly: %w", proxyErr)
	}
}

func connectToTarget(ctx context.Context, cfg Config, log logr.Logger) (dap.Transport, error) {
	dialCtx, cancelDial := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancelDial()

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
	)

	return resiliency.RetryGet(dialCtx, b, func() (dap.Transport, error) {
		t, err := dap.DialTCP(dialCtx, cfg.Target)
		if err != nil {
			log.V(1).Info("Debug target not reachable yet", "Target", cfg.Target, "Error", err.Error())
		}
		return t, err
	})
}

func connectToClient(ctx context.Context, cfg Config, log logr.Logger) (dap.Transport, error) {
	if cfg.Listen == "" {
		return dap.NewStdioTransport(os.Stdin, os.Stdout), nil
	}

	return dap.AcceptTCP(ctx, cfg.Listen, func(addr net.Addr) {
		log.Info("Waiting for the debug client to connect", "Address", addr.String())
	})
}
