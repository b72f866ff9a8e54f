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
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Environment variables read by ApplyEnv
const (
	EnvDestination    = "EXTSORT_DESTINATION"
	EnvIgnore         = "EXTSORT_IGNORE"
	EnvFollowSymlinks = "EXTSORT_FOLLOW_SYMLINKS"
	EnvManifest       = "EXTSORT_MANIFEST"
	EnvIcons          = "EXTSORT_ICONS"
)

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// 🌱 LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped;
// unreadable or malformed ones are logged and skipped.
func LoadDotEnv(ctx context.Context, files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("file", f).Msg("ignoring unreadable env file")
	}
}

// 🌱 ApplyEnv applies EXTSORT_* overrides. Unparseable booleans are ignored.
func (cfg *Config) ApplyEnv(lookup LookupFunc) {
	if v, ok := lookup(EnvDestination); ok && strings.TrimSpace(v) != "" {
		cfg.Destination = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvIgnore); ok {
		var globs []string
		for _, g := range strings.Split(v, ",") {
			if g = strings.TrimSpace(g); g != "" {
				globs = append(globs, g)
			}
		}
		cfg.Ignore = globs
	}
	applyBool(lookup, EnvFollowSymlinks, &cfg.FollowSymlinks)
	applyBool(lookup, EnvManifest, &cfg.Manifest)
	applyBool(lookup, EnvIcons, &cfg.Icons)
}

func applyBool(lookup LookupFunc, key string, dst *bool) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return
	}
	*dst = b
}
