/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/stanislavfor/vscode-chrome-debug/pkg/pathutil"
)

const (
	DefaultConnectTimeout = 10 * time.Second

	configFlagName         = "config"
	targetFlagName         = "target"
	listenFlagName         = "listen"
	workspaceRootFlagName  = "workspace-root"
	pendingTimeoutFlagName = "pending-timeout"
	connectTimeoutFlagName = "connect-timeout"
	pathMappingFlagName    = "path-mapping"
	suppressEventFlagName  = "suppress-event"
)

// Config is the configuration of the run command. It can be read from a YAML file;
// command line flags override the file.
type Config struct {
	// Target is the address of the debug target (host:port).
	Target string `yaml:"target"`

	// Listen is the address to accept the client connection on. Empty means stdio.
	Listen string `yaml:"listen,omitempty"`

	// WorkspaceRoot is used when the client does not send a cwd with launch or attach.
	WorkspaceRoot string `yaml:"workspaceRoot,omitempty"`

	// PendingTimeout bounds how long a setBreakpoints request waits for its script. Zero means no limit.
	PendingTimeout time.Duration `yaml:"pendingTimeout,omitempty"`

	// ConnectTimeout bounds the time spent connecting to the target.
	ConnectTimeout time.Duration `yaml:"connectTimeout,omitempty"`

	PathMappings   []pathutil.PrefixMapping `yaml:"pathMappings,omitempty"`
	SuppressEvents []string                 `yaml:"suppressEvents,omitempty"`
}

// runFlags holds the raw flag values of the run command.
type runFlags struct {
	configFile     string
	target         string
	listen         string
	workspaceRoot  string
	pendingTimeout time.Duration
	connectTimeout time.Duration
	pathMappings   []string
	suppressEvents []string
}

func (f *runFlags) addTo(fs *pflag.FlagSet) {
	fs.StringVar(&f.configFile, configFlagName, "", "Path to a YAML configuration file. Flags override values from the file.")
	fs.StringVar(&f.target, targetFlagName, "", "Address (host:port) of the debug target.")
	fs.StringVar(&f.listen, listenFlagName, "", "Address (host:port) to accept the debug client connection on. If not specified, the client is served over stdin/stdout.")
	fs.StringVar(&f.workspaceRoot, workspaceRootFlagName, "", "Workspace root used when the client does not send a cwd with launch or attach.")
	fs.DurationVar(&f.pendingTimeout, pendingTimeoutFlagName, 0, "How long a breakpoint request may wait for its script to be loaded by the target. Zero means no limit.")
	fs.DurationVar(&f.connectTimeout, connectTimeoutFlagName, DefaultConnectTimeout, "How long to keep trying to connect to the debug target.")
	fs.StringArrayVar(&f.pathMappings, pathMappingFlagName, nil, "Maps a target URL prefix to a local directory, e.g. http://localhost:8080/=/home/me/web. Can be repeated.")
	fs.StringSliceVar(&f.suppressEvents, suppressEventFlagName, nil, "Target events that should not be forwarded to the client. Can be repeated.")
}

// LoadConfig reads a YAML configuration file. Unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return Config{}, fmt.Errorf("failed to open configuration file: %w", openErr)
	}
	defer file.Close()

	var cfg Config
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if decodeErr := decoder.Decode(&cfg); decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse configuration file '%s': %w", path, decodeErr)
	}

	return cfg, nil
}

// ParsePathMapping parses a "<url prefix>=<directory>" path mapping.
func ParsePathMapping(value string) (pathutil.PrefixMapping, error) {
	prefix, dir, found := strings.Cut(value, "=")
	if !found || prefix == "" || dir == "" {
		return pathutil.PrefixMapping{}, fmt.Errorf("invalid path mapping '%s': expected <url prefix>=<directory>", value)
	}
	return pathutil.PrefixMapping{URLPrefix: prefix, Dir: dir}, nil
}

// resolveConfig combines the configuration file (if any) with the flags that were set explicitly.
func resolveConfig(fs *pflag.FlagSet, flags *runFlags) (Config, error) {
	var cfg Config
	if flags.configFile != "" {
		var loadErr error
		if cfg, loadErr = LoadConfig(flags.configFile); loadErr != nil {
			return Config{}, loadErr
		}
	}

	if fs.Changed(targetFlagName) {
		cfg.Target = flags.target
	}
	if fs.Changed(listenFlagName) {
		cfg.Listen = flags.listen
	}
	if fs.Changed(workspaceRootFlagName) {
		cfg.WorkspaceRoot = flags.workspaceRoot
	}
	if fs.Changed(pendingTimeoutFlagName) {
		cfg.PendingTimeout = flags.pendingTimeout
	}
	if fs.Changed(connectTimeoutFlagName) || cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = flags.connectTimeout
	}
	if fs.Changed(suppressEventFlagName) {
		cfg.SuppressEvents = flags.suppressEvents
	}

	// Mappings from flags are tried before mappings from the file.
	var flagMappings []pathutil.PrefixMapping
	for _, value := range flags.pathMappings {
		mapping, parseErr := ParsePathMapping(value)
		if parseErr != nil {
			return Config{}, parseErr
		}
		flagMappings = append(flagMappings, mapping)
	}
	cfg.PathMappings = append(flagMappings, cfg.PathMappings...)

	if validationErr := cfg.Validate(); validationErr != nil {
		return Config{}, validationErr
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error

	if c.Target == "" {
		errs = append(errs, fmt.Errorf("the debug target address must be specified (--%s)", targetFlagName))
	}
	if c.PendingTimeout < 0 {
		errs = append(errs, fmt.Errorf("pending timeout must not be negative"))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect timeout must be positive"))
	}
	for i, m := range c.PathMappings {
		if m.URLPrefix == "" || m.Dir == "" {
			errs = append(errs, fmt.Errorf("path mapping %d must have both a URL prefix and a directory", i))
		}
	}

	return errors.Join(errs...)
}
