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

// Package str holds the small string helpers shared by the router, the binder and the transport.
package str

import (
	"net/url"
	"strings"
)

// ToLowerFirst lowercases the first byte of s.
func ToLowerFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// Contains reports whether target is in list.
func Contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}

// IsInteger reports whether s is a short decimal integer: 1 to 8 characters,
// an optional leading '-', digits only. Longer values stay strings so ids and
// phone numbers are not mangled.
func IsInteger(s string) bool {
	if len(s) == 0 || len(s) > 8 {
		return false
	}
	start := 0
	if s[0] == '-' {
		if len(s) == 1 {
			return false
		}
		start = 1
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// StripLeadingRepeats collapses a run of c at the start of s into a single c.
func StripLeadingRepeats(s string, c byte) string {
	i := 0
	for i < len(s) && s[i] == c {
		i++
	}
	if i <= 1 {
		return s
	}
	return s[i-1:]
}

// AppendURL joins two path fragments with exactly one slash between them.
func AppendURL(base, tail string) string {
	switch {
	case base == "":
		return tail
	case tail == "":
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(tail, "/")
}

// SplitPath splits a URI path into its non-empty segments.
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Pair is a decoded urlencoded entry.
type Pair struct {
	Key   string
	Value string
}

// ParseQueryString decodes `a=1&b=2` keeping wire order and duplicates.
// An entry without '=' has an empty value, empty keys are dropped and a
// part that fails to unescape is kept raw. With skipUnsafe, keys containing
// '<', '>' or '!' are dropped too.
func ParseQueryString(query string, skipUnsafe bool) []Pair {
	var pairs []Pair
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			key = k
		}
		if key == "" || (skipUnsafe && strings.ContainsAny(key, "<>!")) {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			value = v
		}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}
	return pairs
}
