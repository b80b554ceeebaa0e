/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package pathutil converts between client file paths and the script URLs reported by a
// debug target. Canonical client paths always use forward slashes, carry a lower-case drive
// letter (if any), and are absolute.
package pathutil

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.lsp.dev/uri"
)

const fileScheme = "file://"

// Canonicalize normalizes a client path or file URL. Relative and bare inputs are resolved
// against workspaceRoot; when workspaceRoot is empty they are rooted at "/".
// Canonicalizing an already canonical path returns it unchanged.
func Canonicalize(raw string, workspaceRoot string) string {
	if raw == "" {
		return ""
	}

	p := raw
	if isFileURL(p) {
		p = fileURLToPath(p)
	}
	p = normalizeSeparators(p)

	if !isAbs(p) {
		root := ""
		if workspaceRoot != "" {
			root = Canonicalize(workspaceRoot, "")
		}
		if root == "" {
			root = "/"
		}
		p = root + "/" + p
	}

	return cleanPath(p)
}

// PrefixMapping maps every target URL starting with URLPrefix to a path under Dir.
type PrefixMapping struct {
	URLPrefix string `yaml:"urlPrefix"`
	Dir       string `yaml:"dir"`
}

// Resolver implements canonicalization and target URL inference.
type Resolver struct {
	// Mappings are consulted, in order, before probing the workspace.
	Mappings []PrefixMapping

	// Exists reports whether a canonical client path exists. Defaults to a filesystem stat.
	Exists func(clientPath string) bool
}

// NewResolver returns a Resolver that probes the local filesystem.
func NewResolver(mappings ...PrefixMapping) *Resolver {
	return &Resolver{
		Mappings: mappings,
		Exists:   fileExists,
	}
}

func (r *Resolver) Canonicalize(raw string, workspaceRoot string) string {
	return Canonicalize(raw, workspaceRoot)
}

// InferClientPath derives the canonical client path for a URL reported by the target.
// The boolean result is false when the URL cannot be mapped into the workspace (for example
// scripts internal to the runtime); this is an expected outcome, not an error.
func (r *Resolver) InferClientPath(targetURL string, workspaceRoot string) (string, bool) {
	if targetURL == "" {
		return "", false
	}

	if isFileURL(targetURL) {
		return Canonicalize(targetURL, workspaceRoot), true
	}

	for _, m := range r.Mappings {
		if m.URLPrefix == "" || !strings.HasPrefix(targetURL, m.URLPrefix) {
			continue
		}
		dir := Canonicalize(m.Dir, workspaceRoot)
		remainder := strings.TrimLeft(stripQueryAndFragment(targetURL[len(m.URLPrefix):]), "/")
		if remainder == "" {
			return dir, true
		}
		return Canonicalize(remainder, dir), true
	}

	if workspaceRoot == "" {
		return "", false
	}

	u, parseErr := url.Parse(targetURL)
	if parseErr != nil {
		return "", false
	}
	urlPath := u.Path
	if urlPath == "" || urlPath == "/" {
		return "", false
	}

	exists := r.Exists
	if exists == nil {
		exists = fileExists
	}

	// Try the full URL path under the workspace root first, then drop leading segments one at a time.
	parts := strings.Split(strings.TrimPrefix(urlPath, "/"), "/")
	for len(parts) > 0 {
		candidate := Canonicalize(strings.Join(parts, "/"), workspaceRoot)
		if exists(candidate) {
			return candidate, true
		}
		parts = parts[1:]
	}

	return "", false
}

func isFileURL(s string) bool {
	return len(s) >= len(fileScheme) && strings.EqualFold(s[:len(fileScheme)], fileScheme)
}

func fileURLToPath(s string) string {
	normalized := fileScheme + s[len(fileScheme):]
	if _, parseErr := url.ParseRequestURI(normalized); parseErr != nil {
		return s[len(fileScheme):]
	}
	return uri.URI(normalized).Filename()
}

func normalizeSeparators(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")

	// Windows drive paths sometimes arrive as "/c:/..." after URL decoding.
	if len(p) >= 3 && p[0] == '/' && hasDriveLetter(p[1:]) {
		p = p[1:]
	}
	if hasDriveLetter(p) {
		p = strings.ToLower(p[:1]) + p[1:]
	}
	return p
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAbs(p string) bool {
	return strings.HasPrefix(p, "/") || hasDriveLetter(p)
}

func cleanPath(p string) string {
	if hasDriveLetter(p) {
		rest := path.Clean("/" + p[2:])
		if rest == "/" {
			return p[:2] + "/"
		}
		return p[:2] + rest
	}
	return path.Clean(p)
}

func stripQueryAndFragment(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

func fileExists(clientPath string) bool {
	_, statErr := os.Stat(filepath.FromSlash(clientPath))
	return statErr == nil
}
