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

// Package route keeps the ordered route table and the two matching strategies.
//
// Routes are tried longest first (by their `domain@path` rendering), so
// `/api/user/:id` is tried before `/api/:res`. The first structural match wins.
package route

import (
	"errors"
	"sort"
	"sync"

	"github.com/herdgo/herd/api/types"
)

var ErrEmptyPath = errors.New("route path can not be empty")

type entry struct {
	route   *types.RouteDefinition
	handler interface{}
}

// Registry is the ordered route table.
type Registry struct {
	entries []entry
	index   map[types.RouteKey]int
	logger  types.Logger
	sync.RWMutex
}

// NewRegistry creates an empty table.
func NewRegistry(logger types.Logger) *Registry {
	return &Registry{index: make(map[types.RouteKey]int), logger: types.NewLogger(logger)}
}

// AddRoute maps route to handler. A route with the same domain and path is
// overwritten, with a warning.
func (r *Registry) AddRoute(route types.RouteDefinition, handler interface{}) error {
	if route.Path == "" && !route.Entry {
		return ErrEmptyPath
	}
	if !route.FastRoute {
		if _, err := CompilePattern(route.Path); err != nil {
			r.logger.Printf("route: invalid path pattern %s, it will never match: %v", route.Path, err)
		}
		if route.Domain != "" {
			if _, err := CompilePattern(route.Domain); err != nil {
				r.logger.Printf("route: invalid domain pattern %s, it will never match: %v", route.Domain, err)
			}
		}
	}
	def := route

	r.Lock()
	defer r.Unlock()
	if r.index == nil {
		r.index = make(map[types.RouteKey]int)
	}
	if i, ok := r.index[def.Key()]; ok {
		r.logger.Printf("route: %s already mapped to %v, will be overwritten to %v", def.String(), r.entries[i].handler, handler)
		r.entries[i] = entry{route: &def, handler: handler}
		return nil
	}

	pos := sort.Search(len(r.entries), func(i int) bool {
		return def.Before(r.entries[i].route)
	})
	r.entries = append(r.entries, entry{})
	copy(r.entries[pos+1:], r.entries[pos:])
	r.entries[pos] = entry{route: &def, handler: handler}
	r.reindex()
	return nil
}

func (r *Registry) reindex() {
	for i, e := range r.entries {
		r.index[e.route.Key()] = i
	}
}

// FindMatch returns the first route, in priority order, that matches uri.
func (r *Registry) FindMatch(uri URI) *MatchedRoute {
	matchers := NewMatchers(uri)

	r.RLock()
	defer r.RUnlock()
	for _, e := range r.entries {
		if mr := matchers.Match(e.route, false); mr != nil {
			mr.Handler = e.handler
			return mr
		}
	}
	return nil
}

// Get returns the handler mapped to route.
func (r *Registry) Get(route types.RouteDefinition) (interface{}, bool) {
	r.RLock()
	defer r.RUnlock()
	if i, ok := r.index[route.Key()]; ok {
		return r.entries[i].handler, true
	}
	return nil, false
}

// Routes returns the route definitions in matching order.
func (r *Registry) Routes() []types.RouteDefinition {
	r.RLock()
	defer r.RUnlock()
	routes := make([]types.RouteDefinition, 0, len(r.entries))
	for _, e := range r.entries {
		routes = append(routes, *e.route)
	}
	return routes
}

// Len returns the number of routes.
func (r *Registry) Len() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.entries)
}

// Reset removes every route.
func (r *Registry) Reset() {
	r.Lock()
	defer r.Unlock()
	r.entries = nil
	r.index = make(map[types.RouteKey]int)
}
