// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultDestination = "dist"
	DefaultConfigFile  = ".extsort.yaml"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config file contents
	Parse(ctx context.Context, data []byte) (*FileConfig, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📄 FileConfig is what a config file may set. Unset fields keep their
// defaults.
type FileConfig struct {
	Destination    *string  `json:"destination,omitempty" yaml:"destination,omitempty"`
	Ignore         []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	FollowSymlinks *bool    `json:"follow_symlinks,omitempty" yaml:"follow_symlinks,omitempty"`
	Manifest       *bool    `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Icons          *bool    `json:"icons,omitempty" yaml:"icons,omitempty"`
	Async          *bool    `json:"async,omitempty" yaml:"async,omitempty"`
}

// 📚 Config is the resolved configuration of a run
type Config struct {
	Destination    string
	Ignore         []string
	FollowSymlinks bool
	Manifest       bool
	Icons          bool
	Async          bool

	location string
}

// 🏭 Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Destination:    DefaultDestination,
		FollowSymlinks: true,
		Manifest:       true,
	}
}

// Location returns the file the config was loaded from, if any
func (cfg *Config) Location() string {
	return cfg.location
}

// 🎯 Load loads the configuration from a file on top of the defaults
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	fc, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	cfg := Default()
	cfg.Merge(fc)
	cfg.location = path

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🎯 LoadOptional is Load, except that a missing file yields the defaults
func LoadOptional(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		zerolog.Ctx(ctx).Debug().Str("path", path).Msg("no config file, using defaults")
		return Default(), nil
	}
	return Load(ctx, path)
}

// 🔀 Merge applies the fields a file set
func (cfg *Config) Merge(fc *FileConfig) {
	if fc == nil {
		return
	}
	if fc.Destination != nil {
		cfg.Destination = *fc.Destination
	}
	if fc.Ignore != nil {
		cfg.Ignore = append([]string(nil), fc.Ignore...)
	}
	if fc.FollowSymlinks != nil {
		cfg.FollowSymlinks = *fc.FollowSymlinks
	}
	if fc.Manifest != nil {
		cfg.Manifest = *fc.Manifest
	}
	if fc.Icons != nil {
		cfg.Icons = *fc.Icons
	}
	if fc.Async != nil {
		cfg.Async = *fc.Async
	}
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Destination) == "" {
		return errors.Errorf("destination is required")
	}
	cfg.Destination = filepath.Clean(cfg.Destination)

	for _, pattern := range cfg.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("-> %s (ignore=%v follow_symlinks=%t manifest=%t)",
		cfg.Destination, cfg.Ignore, cfg.FollowSymlinks, cfg.Manifest)
}
