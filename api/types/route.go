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

import "strings"

// RouteKind tells the transport how to serve a route.
type RouteKind int

const (
	RouteHttp RouteKind = iota
	RouteWebSocket
)

func (k RouteKind) String() string {
	if k == RouteWebSocket {
		return "websocket"
	}
	return "http"
}

// RouteDefinition describes where an action or a routed filter listens.
//
// With FastRoute the path is a segment pattern: `*` skips one segment,
// `:name` binds one segment and `**:name` binds the rest of the path.
// Otherwise Path and Domain are regular expressions whose named groups
// become parameters.
type RouteDefinition struct {
	Path   string
	Domain string
	// Entry routes only match the root path "/".
	Entry     bool
	FastRoute bool
	Kind      RouteKind
	// ViewPath is the template an action renders when it returns a bare model.
	ViewPath        string
	ExtraParameters []interface{}
}

// RouteKey is the identity of a route: two definitions with the same key are the same route.
type RouteKey struct {
	Domain string
	Path   string
}

// Key returns the identity of the route.
func (r *RouteDefinition) Key() RouteKey {
	return RouteKey{Domain: r.Domain, Path: r.Path}
}

// String renders `domain@path`, or just the path when there is no domain.
func (r *RouteDefinition) String() string {
	if r.Domain == "" {
		return r.Path
	}
	return r.Domain + "@" + r.Path
}

// Before reports whether r is tried before o when matching.
// Longer routes win; equal lengths are ordered descending lexicographically.
func (r *RouteDefinition) Before(o *RouteDefinition) bool {
	a, b := r.String(), o.String()
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return strings.Compare(a, b) > 0
}

// Pair is one key/value from the request, a route capture or a form field.
// Order and duplicates are significant.
type Pair struct {
	Key   string
	Value string
}

// Pairs is an ordered multimap.
type Pairs []Pair

// Get returns the first value stored under key.
func (p Pairs) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// All returns every value stored under key, in order.
func (p Pairs) All(key string) []string {
	var values []string
	for _, kv := range p {
		if kv.Key == key {
			values = append(values, kv.Value)
		}
	}
	return values
}

// Map keeps the first value of every key.
func (p Pairs) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, kv := range p {
		if _, ok := m[kv.Key]; !ok {
			m[kv.Key] = kv.Value
		}
	}
	return m
}
