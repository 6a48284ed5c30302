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
	"errors"
	"time"
)

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = NewLogger(logger)
		return nil
	}
}

// WithContextRoots is an option that sets the static file roots of the Config.
func WithContextRoots(roots ...string) Option {
	return func(c *Config) error {
		c.ContextRoots = append([]string(nil), roots...)
		return nil
	}
}

// WithMaxUploadFileSize is an option that sets the per-file upload limit in bytes.
func WithMaxUploadFileSize(size int64) Option {
	return func(c *Config) error {
		if size <= 0 {
			return errors.New("max upload file size must be positive")
		}
		c.MaxUploadFileSize = size
		return nil
	}
}

// WithUploadCacheDir is an option that sets the upload cache directory.
func WithUploadCacheDir(dir string) Option {
	return func(c *Config) error {
		c.UploadCacheDir = dir
		return nil
	}
}

// WithUploadCacheCleanSpec is an option that sets the cron spec of the upload janitor.
func WithUploadCacheCleanSpec(spec string) Option {
	return func(c *Config) error {
		c.UploadCacheCleanSpec = spec
		return nil
	}
}

// WithUploadCacheMaxAge is an option that sets the age after which cached uploads are purged.
func WithUploadCacheMaxAge(maxAge time.Duration) Option {
	return func(c *Config) error {
		c.UploadCacheMaxAge = maxAge
		return nil
	}
}

// WithEveryHtmlIsTemplate is an option that renders static .html files as views.
func WithEveryHtmlIsTemplate(enabled bool) Option {
	return func(c *Config) error {
		c.EveryHtmlIsTemplate = enabled
		return nil
	}
}

// WithAlternativeCookieHeader is an option that reads cookies from header when Cookie is absent.
// onlyOn, when not empty, names a request header that must be "true" to enable it.
func WithAlternativeCookieHeader(header, onlyOn string) Option {
	return func(c *Config) error {
		c.AlternativeCookieHeader = AlternativeCookieHeader{Header: header, OnlyOn: onlyOn}
		return nil
	}
}

// WithScriptMaxExecutionTime is an option that sets the js max execution time of the Config.
func WithScriptMaxExecutionTime(scriptMaxExecutionTime time.Duration) Option {
	return func(c *Config) error {
		c.ScriptMaxExecutionTime = scriptMaxExecutionTime
		return nil
	}
}

// WithProperties is an option that merges global properties into the Config.
func WithProperties(properties map[string]string) Option {
	return func(c *Config) error {
		if c.Properties == nil {
			c.Properties = make(map[string]string)
		}
		for k, v := range properties {
			c.Properties[k] = v
		}
		return nil
	}
}
