/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanislavfor/vscode-chrome-debug/internal/version"
	"github.com/stanislavfor/vscode-chrome-debug/pkg/logger"
)

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	root, setupErr := NewRootCommand(logger.New("version-test"))
	require.NoError(t, setupErr)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())

	var v version.VersionOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	assert.Equal(t, version.Version().Version, v.Version)
}

func TestRunCommandRequiresTarget(t *testing.T) {
	t.Parallel()

	root, setupErr := NewRootCommand(logger.New("run-test"))
	require.NoError(t, setupErr)

	root.SetArgs([]string{"run", "--listen", "127.0.0.1:0"})
	assert.ErrorContains(t, root.Execute(), "target")
}
