/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package version

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBuildTimestamp(t *testing.T) {
	t.Parallel()

	assert.True(t, parseBuildTimestamp("").IsZero())
	assert.True(t, parseBuildTimestamp("yesterday").IsZero())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), parseBuildTimestamp("1700000000"))
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), parseBuildTimestamp("2024-05-01T12:00:00Z").UTC())
}

func TestVersionOutputJSON(t *testing.T) {
	t.Parallel()

	out := VersionOutput{Name: ProductName, Version: "1.2.3"}
	data, marshalErr := json.Marshal(out)
	require.NoError(t, marshalErr)
	assert.JSONEq(t, `{"name":"scriptbridge","version":"1.2.3","buildTimestamp":null}`, string(data))

	out.BuildTime = Timestamp{time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	data, marshalErr = json.Marshal(out)
	require.NoError(t, marshalErr)

	var decoded VersionOutput
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, out.BuildTime.Equal(decoded.BuildTime.Time))
}
