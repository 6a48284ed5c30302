/*
 * Copyright 2024 The Herd Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/herdgo/herd/utils/maps"
)

const (
	// DefaultMaxUploadFileSize is the per-file upload limit, 2 MiB.
	DefaultMaxUploadFileSize int64 = 2 * 1024 * 1024
	// DefaultUploadCacheCleanSpec runs the upload janitor every ten minutes.
	DefaultUploadCacheCleanSpec = "0 */10 * * * *"
	// DefaultUploadCacheMaxAge is how long an uploaded file survives in the cache directory.
	DefaultUploadCacheMaxAge = time.Hour
	// DefaultScriptMaxExecutionTime bounds scripted filters.
	DefaultScriptMaxExecutionTime = time.Millisecond * 2000
)

// AlternativeCookieHeader lets clients that cannot set a real Cookie header
// (native shells, cross origin websocket handshakes) send cookies under another header.
type AlternativeCookieHeader struct {
	// Header is the name of the substitute header.
	Header string `json:"header"`
	// OnlyOn, when set, names a request header that must be "true" for the substitute to be read.
	OnlyOn string `json:"onlyOn"`
}

// Config defines the configuration of the dispatch engine.
type Config struct {
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger `json:"-"`
	// ContextRoots are the directories searched for static files when no route matches a GET request.
	ContextRoots []string `json:"contextRoots"`
	// MaxUploadFileSize is the largest accepted size of a single uploaded file in bytes.
	MaxUploadFileSize int64 `json:"maxUploadFileSize"`
	// UploadCacheDir is where uploaded files are stored until the request completes or the janitor purges them.
	UploadCacheDir string `json:"uploadCacheDir"`
	// UploadCacheCleanSpec is a cron expression with seconds, e.g. `0 */10 * * * *`. Empty disables the janitor.
	UploadCacheCleanSpec string `json:"uploadCacheCleanSpec"`
	// UploadCacheMaxAge is the age after which the janitor removes a cached upload.
	UploadCacheMaxAge time.Duration `json:"uploadCacheMaxAge"`
	// EveryHtmlIsTemplate turns every static .html hit into a view response.
	EveryHtmlIsTemplate bool `json:"everyHtmlIsTemplate"`
	// AlternativeCookieHeader is read when a request carries no Cookie header.
	AlternativeCookieHeader AlternativeCookieHeader `json:"alternativeCookieHeader"`
	// ScriptMaxExecutionTime is the maximum execution time for scripted filters.
	ScriptMaxExecutionTime time.Duration `json:"scriptMaxExecutionTime"`
	// Properties are free-form global properties, visible to scripted filters as `global`.
	Properties map[string]string `json:"properties"`
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Logger:                 DefaultLogger(),
		MaxUploadFileSize:      DefaultMaxUploadFileSize,
		UploadCacheDir:         filepath.Join(os.TempDir(), "herd-uploads"),
		UploadCacheCleanSpec:   DefaultUploadCacheCleanSpec,
		UploadCacheMaxAge:      DefaultUploadCacheMaxAge,
		ScriptMaxExecutionTime: DefaultScriptMaxExecutionTime,
		Properties:             make(map[string]string),
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}

// LoadConfig reads a JSON configuration file and overlays it on the defaults.
// Durations accept both integers (nanoseconds) and strings such as "30m".
func LoadConfig(path string, opts ...Option) (Config, error) {
	c := NewConfig(opts...)
	buf, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(buf, &raw); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := maps.Map2Struct(raw, &c); err != nil {
		return c, fmt.Errorf("decode config %s: %w", path, err)
	}
	c.Logger = NewLogger(c.Logger)
	return c, nil
}

// CookieHeader returns the raw cookie header of a request: the Cookie header,
// or the configured alternative header when Cookie is absent.
func (c Config) CookieHeader(h http.Header) string {
	if v := h.Get("Cookie"); v != "" {
		return v
	}
	alt := c.AlternativeCookieHeader
	if alt.Header == "" {
		return ""
	}
	if alt.OnlyOn != "" && h.Get(alt.OnlyOn) != "true" {
		return ""
	}
	return h.Get(alt.Header)
}
