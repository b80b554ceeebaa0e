/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package version

import (
	"bytes"
	"strconv"
	"time"
)

const (
	ProductName        = "scriptbridge"
	DevelopmentVersion = "dev"
)

// Set at build time with -ldflags "-X".
var (
	ProductVersion = DevelopmentVersion
	CommitHash     = ""
	BuildTimestamp = ""
)

// Timestamp serializes as an RFC 3339 string, or null if unknown.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	return []byte("\"" + t.Format(time.RFC3339) + "\""), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	parsed, err := time.Parse("\""+time.RFC3339+"\"", string(data))
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

type VersionOutput struct {
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	CommitHash string    `json:"commitHash,omitempty"`
	BuildTime  Timestamp `json:"buildTimestamp"`
}

// BuildTimestamp may be a unix timestamp or an RFC 3339 time.
func parseBuildTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC()
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed
	}
	return time.Time{}
}

func Version() VersionOutput {
	productVersion := ProductVersion
	if productVersion == "" {
		productVersion = DevelopmentVersion
	}

	return VersionOutput{
		Name:       ProductName,
		Version:    productVersion,
		CommitHash: CommitHash,
		BuildTime:  Timestamp{parseBuildTimestamp(BuildTimestamp)},
	}
}
