/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanislavfor/vscode-chrome-debug/pkg/pathutil"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scriptbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func parseRunFlags(t *testing.T, args ...string) (*pflag.FlagSet, *runFlags) {
	t.Helper()
	flags := &runFlags{}
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.addTo(fs)
	require.NoError(t, fs.Parse(args))
	return fs, flags
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
target: localhost:9229
workspaceRoot: /home/me/web
pendingTimeout: 30s
pathMappings:
  - urlPrefix: webpack:///
    dir: /home/me/web/src
suppressEvents:
  - scriptParsed
`)

	cfg, loadErr := LoadConfig(path)
	require.NoError(t, loadErr)

	assert.Equal(t, "localhost:9229", cfg.Target)
	assert.Equal(t, "/home/me/web", cfg.WorkspaceRoot)
	assert.Equal(t, 30*time.Second, cfg.PendingTimeout)
	assert.Equal(t, []pathutil.PrefixMapping{{URLPrefix: "webpack:///", Dir: "/home/me/web/src"}}, cfg.PathMappings)
	assert.Equal(t, []string{"scriptParsed"}, cfg.SuppressEvents)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	_, loadErr := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, loadErr, os.ErrNotExist)

	_, loadErr = LoadConfig(writeConfigFile(t, "target: localhost:9229\nwebRoot: /tmp\n"))
	assert.Error(t, loadErr, "unknown fields should be rejected")

	cfg, loadErr := LoadConfig(writeConfigFile(t, ""))
	assert.NoError(t, loadErr, "an empty file is a valid configuration")
	assert.Equal(t, Config{}, cfg)
}

func TestParsePathMapping(t *testing.T) {
	t.Parallel()

	mapping, parseErr := ParsePathMapping("http://localhost:8080/=/home/me/web")
	require.NoError(t, parseErr)
	assert.Equal(t, pathutil.PrefixMapping{URLPrefix: "http://localhost:8080/", Dir: "/home/me/web"}, mapping)

	for _, invalid := range []string{"", "http://localhost:8080/", "=/home/me/web", "http://localhost:8080/="} {
		_, parseErr = ParsePathMapping(invalid)
		assert.Error(t, parseErr, "value %q", invalid)
	}
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
target: localhost:9229
workspaceRoot: /from/file
connectTimeout: 3s
pathMappings:
  - urlPrefix: http://localhost:8080/
    dir: /from/file/web
`)

	fs, flags := parseRunFlags(t,
		"--config", path,
		"--workspace-root", "/from/flags",
		"--pending-timeout", "5s",
		"--path-mapping", "webpack:///=/from/flags/src",
	)

	cfg, resolveErr := resolveConfig(fs, flags)
	require.NoError(t, resolveErr)

	assert.Equal(t, "localhost:9229", cfg.Target, "values not set by flags come from the file")
	assert.Equal(t, "/from/flags", cfg.WorkspaceRoot)
	assert.Equal(t, 5*time.Second, cfg.PendingTimeout)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, []pathutil.PrefixMapping{
		{URLPrefix: "webpack:///", Dir: "/from/flags/src"},
		{URLPrefix: "http://localhost:8080/", Dir: "/from/file/web"},
	}, cfg.PathMappings)
}

func TestResolveConfig_Defaults(t *testing.T) {
	t.Parallel()

	fs, flags := parseRunFlags(t, "--target", "127.0.0.1:9222")

	cfg, resolveErr := resolveConfig(fs, flags)
	require.NoError(t, resolveErr)

	assert.Equal(t, "127.0.0.1:9222", cfg.Target)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.Zero(t, cfg.PendingTimeout)
	assert.Empty(t, cfg.Listen)
}

func TestResolveConfig_Invalid(t *testing.T) {
	t.Parallel()

	fs, flags := parseRunFlags(t)
	_, resolveErr := resolveConfig(fs, flags)
	assert.ErrorContains(t, resolveErr, "target")

	fs, flags = parseRunFlags(t, "--target", "localhost:1", "--pending-timeout", "-1s")
	_, resolveErr = resolveConfig(fs, flags)
	assert.ErrorContains(t, resolveErr, "pending timeout")

	fs, flags = parseRunFlags(t, "--target", "localhost:1", "--path-mapping", "no-separator")
	_, resolveErr = resolveConfig(fs, flags)
	assert.ErrorContains(t, resolveErr, "invalid path mapping")
}
