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

// Package filter keeps the registered request filters and runs them around an action.
//
// A filter is one of:
//
//   - global: runs for every action
//   - routed: runs for every action whose request URI matches one of its routes
//   - normal: runs only for actions that reference its type
//
// For one request the order is the action's normal filters, in declaration
// order, then the global filters, then the matching routed filters.
package filter

import (
	"reflect"
	"strings"
	"sync"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/di"
	"github.com/herdgo/herd/route"
)

// Factory is implemented by filters that build their own per request instances.
type Factory interface {
	New() types.Filter
}

// Descriptor registers a filter.
type Descriptor struct {
	// Prototype identifies the filter type. Singleton filters share it.
	Prototype types.Filter
	// Global filters run for every action.
	Global bool
	// Routes makes the filter a routed filter.
	Routes []types.RouteDefinition
	// Parameters are the static parameters of global and routed filters.
	Parameters map[string]string
}

type entry struct {
	name      string
	typ       reflect.Type
	prototype types.Filter
	mode      types.InstantiateType
}

// newInstance returns the filter that serves one request.
func (e *entry) newInstance() types.Filter {
	if e.mode != types.AlwaysNew {
		return e.prototype
	}
	if f, ok := e.prototype.(Factory); ok {
		return f.New()
	}
	v := reflect.ValueOf(e.prototype)
	if v.Kind() == reflect.Ptr && v.Elem().Kind() == reflect.Struct {
		cp := reflect.New(v.Elem().Type())
		cp.Elem().Set(v.Elem())
		return cp.Interface().(types.Filter)
	}
	return e.prototype
}

type routedEntry struct {
	route      types.RouteDefinition
	entry      *entry
	parameters map[string]string
}

type globalEntry struct {
	entry      *entry
	parameters map[string]string
}

// Manager is the filter registry.
type Manager struct {
	global    []globalEntry
	routed    []routedEntry
	normal    map[reflect.Type]*entry
	container *di.Container
	logger    types.Logger
	sync.RWMutex
}

// NewManager creates a Manager. Authenticators are resolved through container.
func NewManager(container *di.Container, logger types.Logger) *Manager {
	return &Manager{
		normal:    make(map[reflect.Type]*entry),
		container: container,
		logger:    types.NewLogger(logger),
	}
}

// AddFilter registers a filter. A global filter type already registered, or a
// route already taken by a routed filter, is ignored.
func (m *Manager) AddFilter(desc Descriptor) error {
	if desc.Prototype == nil {
		return types.NewError(types.KindInternal, "filter: nil prototype")
	}
	t := reflect.TypeOf(desc.Prototype)
	e := &entry{
		name:      strings.TrimPrefix(t.String(), "*"),
		typ:       t,
		prototype: desc.Prototype,
		mode:      types.InstantiateTypeOf(desc.Prototype),
	}

	m.Lock()
	defer m.Unlock()
	switch {
	case desc.Global:
		for _, g := range m.global {
			if g.entry.typ == t {
				return nil
			}
		}
		m.global = append(m.global, globalEntry{entry: e, parameters: desc.Parameters})
	case len(desc.Routes) > 0:
		for _, r := range desc.Routes {
			if m.routeTaken(r) {
				m.logger.Printf("filter: route %s already has a filter, ignoring %s", r.String(), e.name)
				continue
			}
			if !r.FastRoute {
				if _, err := route.CompilePattern(r.Path); err != nil {
					m.logger.Printf("filter: invalid route %s for %s: %v", r.String(), e.name, err)
				}
			}
			m.routed = append(m.routed, routedEntry{route: r, entry: e, parameters: desc.Parameters})
		}
	default:
		m.normal[t] = e
	}
	return nil
}

func (m *Manager) routeTaken(r types.RouteDefinition) bool {
	for _, existing := range m.routed {
		if existing.route.Key() == r.Key() && existing.route.FastRoute == r.FastRoute {
			return true
		}
	}
	return false
}

// IsAdded reports whether a filter of the prototype's type is registered in any role.
func (m *Manager) IsAdded(prototype types.Filter) bool {
	t := reflect.TypeOf(prototype)
	m.RLock()
	defer m.RUnlock()
	if _, ok := m.normal[t]; ok {
		return true
	}
	for _, g := range m.global {
		if g.entry.typ == t {
			return true
		}
	}
	for _, r := range m.routed {
		if r.entry.typ == t {
			return true
		}
	}
	return false
}

// FindMatched lists the filters that apply to action when requested at uri.
// Instances are not created until Prepare.
func (m *Manager) FindMatched(uri route.URI, action *types.ActionMethod) Chain {
	m.RLock()
	defer m.RUnlock()

	var chain Chain
	if action != nil {
		for _, ref := range action.Filters {
			e, ok := m.normal[ref.Type]
			if !ok {
				continue
			}
			chain = append(chain, &Invocation{entry: e, parameters: ref.Parameters})
		}
	}
	for _, g := range m.global {
		chain = append(chain, &Invocation{entry: g.entry, parameters: g.parameters})
	}
	if len(m.routed) > 0 {
		matchers := route.NewMatchers(uri)
		for i := range m.routed {
			r := &m.routed[i]
			if matchers.MatchOnly(&r.route) {
				chain = append(chain, &Invocation{entry: r.entry, parameters: r.parameters})
			}
		}
	}
	return chain
}

// Reset removes every filter.
func (m *Manager) Reset() {
	m.Lock()
	defer m.Unlock()
	m.global = nil
	m.routed = nil
	m.normal = make(map[reflect.Type]*entry)
}
