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

package route

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/herdgo/herd/utils/str"
)

// URI is the part of a request the matchers look at.
// Unlike net/url it keeps the path exactly as sent, repeated slashes included.
type URI struct {
	Scheme   string
	Host     string
	Port     int
	Path     string
	Query    string
	Fragment string
}

// ParseURI parses an absolute URI such as `http://www.test.com:8080///a/b?c=1#top`.
// An empty path becomes "/".
func ParseURI(absolute string) (URI, error) {
	var u URI
	i := strings.Index(absolute, "://")
	if i < 0 {
		return u, fmt.Errorf("cannot parse scheme of %q", absolute)
	}
	u.Scheme = absolute[:i]
	rest := absolute[i+3:]

	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	if hp := rest[:end]; hp != "" {
		if c := strings.IndexByte(hp, ':'); c > 0 {
			port, err := strconv.Atoi(hp[c+1:])
			if err != nil {
				return u, fmt.Errorf("invalid port in %q: %w", absolute, err)
			}
			u.Host, u.Port = hp[:c], port
		} else {
			u.Host, u.Port = hp, 80
		}
	}
	rest = rest[end:]

	if f := strings.IndexByte(rest, '#'); f >= 0 {
		u.Fragment = rest[f+1:]
		rest = rest[:f]
	}
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		u.Query = rest[q+1:]
		rest = rest[:q]
	}
	u.Path = rest
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// ResolveURI builds the URI the router matches for a request path.
// Everything up to and including the last `~` is dropped, so `/app/~/Service/x`
// routes like `/Service/x`.
func ResolveURI(host, path string) URI {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	path = str.StripLeadingRepeats(path, '/')
	if i := strings.LastIndexByte(path, '~'); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		path = "/"
	}
	return URI{Host: host, Path: path}
}
