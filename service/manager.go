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

// Package service registers services, derives the routes of their actions and calls them.
//
// A service declares its actions:
//
//	type Greeter struct{}
//
//	func (g *Greeter) Actions() []types.ActionDef {
//		return []types.ActionDef{
//			{Method: "Greet", Params: []types.ParamDef{types.Param("name")}, HTTPMethods: []string{"GET"}},
//		}
//	}
//
//	func (g *Greeter) Greet(name string) string { return "Hello, " + name + "!" }
//
// Unless it implements types.RouteProvider, the service listens under its type
// name, `Greeter/`, and each action under the service route plus the action
// name, `Greeter/greet`.
package service

import (
	"errors"
	"reflect"
	"sort"
	"sync"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/di"
	"github.com/herdgo/herd/route"
	"github.com/herdgo/herd/utils/str"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Info describes a registered service.
type Info struct {
	Name  string
	Type  reflect.Type
	Mode  types.InstantiateType
	Route types.RouteDefinition
	// Actions in declaration order.
	Actions []*types.ActionMethod
}

type serviceEntry struct {
	info     Info
	instance interface{}
}

// Manager keeps the registered services.
type Manager struct {
	services  map[reflect.Type]*serviceEntry
	order     []reflect.Type
	registry  *route.Registry
	container *di.Container
	logger    types.Logger
	sync.RWMutex
}

// NewManager creates a Manager that publishes action routes into registry and
// builds service instances through container.
func NewManager(registry *route.Registry, container *di.Container, logger types.Logger) *Manager {
	return &Manager{
		services:  make(map[reflect.Type]*serviceEntry),
		registry:  registry,
		container: container,
		logger:    types.NewLogger(logger),
	}
}

// AddService registers the type of prototype. Instances are created by the
// container, so a constructor may be provided to it beforehand. customRoute,
// when not nil, replaces the service route. Adding a service twice is a no-op.
func (m *Manager) AddService(prototype types.Service, customRoute *types.RouteDefinition) error {
	return m.add(prototype, nil, customRoute)
}

// AddServiceInstance registers an existing service object, which then serves every request.
// If the type is already added, the instance replaces the one used for calls.
func (m *Manager) AddServiceInstance(svc types.Service, customRoute *types.RouteDefinition) error {
	return m.add(svc, svc, customRoute)
}

func (m *Manager) add(prototype types.Service, instance interface{}, customRoute *types.RouteDefinition) error {
	if prototype == nil {
		return types.NewError(types.KindInvalidServiceAction, "service: nil service")
	}
	t := reflect.TypeOf(prototype)

	m.Lock()
	defer m.Unlock()
	if e, ok := m.services[t]; ok {
		if instance != nil {
			e.instance = instance
		}
		return nil
	}

	info := Info{
		Name:  di.TypeName(t),
		Type:  t,
		Mode:  types.InstantiateTypeOf(prototype),
		Route: serviceRoute(prototype, t, customRoute),
	}
	for _, def := range prototype.Actions() {
		action, err := m.buildAction(info, def)
		if err != nil {
			return err
		}
		info.Actions = append(info.Actions, action)
	}

	if instance == nil && !m.container.Has(t) {
		if err := m.container.RegisterType(t, info.Mode, false); err != nil {
			return types.WrapError(types.KindInvalidServiceAction, err, "service "+info.Name)
		}
	}
	for _, action := range info.Actions {
		for _, ref := range action.Authenticators {
			if ref.Type != nil && !m.container.Has(ref.Type) {
				if err := m.container.RegisterType(ref.Type, types.Singleton, false); err != nil {
					return types.WrapError(types.KindInvalidServiceAction, err, "authenticator of "+action.String())
				}
			}
		}
	}

	for _, action := range info.Actions {
		if err := m.registry.AddRoute(*action.Route, action); err != nil {
			return types.WrapError(types.KindInvalidServiceAction, err, action.String())
		}
	}

	m.services[t] = &serviceEntry{info: info, instance: instance}
	m.order = append(m.order, t)
	m.logger.Printf("service: added %s at %s", info.Name, info.Route.String())
	return nil
}

func serviceRoute(svc types.Service, t reflect.Type, custom *types.RouteDefinition) types.RouteDefinition {
	if custom != nil {
		return *custom
	}
	if p, ok := svc.(types.RouteProvider); ok {
		return p.Route()
	}
	return types.RouteDefinition{Path: simpleName(t) + "/"}
}

func simpleName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// buildAction resolves an ActionDef against the service type.
func (m *Manager) buildAction(info Info, def types.ActionDef) (*types.ActionMethod, error) {
	action := &types.ActionMethod{
		Name:            def.Name,
		ServiceName:     simpleName(info.Type),
		HTTPMethods:     def.HTTPMethods,
		PreferredMethod: def.PreferredMethod,
		Filters:         def.Filters,
		Authenticators:  def.Authenticators,
		ContentType:     def.ContentType,
	}

	var fnType reflect.Type
	skip := 0
	switch {
	case def.Func != nil:
		fn := reflect.ValueOf(def.Func)
		if fn.Kind() != reflect.Func {
			return nil, types.NewError(types.KindInvalidServiceAction, "action %s of %s: Func is %v, not a function", def.Name, info.Name, fn.Type())
		}
		action.Func = fn
		fnType = fn.Type()
	case def.Method != "":
		method, ok := info.Type.MethodByName(def.Method)
		if !ok {
			return nil, types.NewError(types.KindInvalidServiceAction, "%s has no exported method %s", info.Name, def.Method)
		}
		action.ServiceType = info.Type
		action.Func = method.Func
		fnType = method.Type
		skip = 1
		if action.Name == "" {
			action.Name = str.ToLowerFirst(def.Method)
		}
	default:
		return nil, types.NewError(types.KindInvalidServiceAction, "action %q of %s has neither Method nor Func", def.Name, info.Name)
	}
	if action.Name == "" {
		return nil, types.NewError(types.KindInvalidServiceAction, "function action of %s needs a Name", info.Name)
	}

	if err := checkResults(fnType); err != nil {
		return nil, types.WrapError(types.KindInvalidServiceAction, err, action.String())
	}
	if fnType.IsVariadic() {
		return nil, types.NewError(types.KindInvalidServiceAction, "%s: variadic actions are not supported", action.String())
	}
	n := fnType.NumIn() - skip
	if len(def.Params) > n {
		return nil, types.NewError(types.KindInvalidServiceAction, "%s declares %d parameters but takes %d", action.String(), len(def.Params), n)
	}
	for i := 0; i < n; i++ {
		p := types.ActionParam{Type: fnType.In(i + skip)}
		if i < len(def.Params) {
			p.Name = def.Params[i].Name
			p.Validators = def.Params[i].Validators
		}
		action.Params = append(action.Params, p)
	}

	action.Route = actionRoute(info.Route, action.Name, def)
	return action, nil
}

func actionRoute(svc types.RouteDefinition, name string, def types.ActionDef) *types.RouteDefinition {
	var r types.RouteDefinition
	switch {
	case def.Route != nil:
		r = *def.Route
	case def.SubRoute != "":
		r = types.RouteDefinition{Path: svc.Path + def.SubRoute, Domain: svc.Domain, FastRoute: svc.FastRoute}
	default:
		r = types.RouteDefinition{Path: str.AppendURL(svc.Path, name), Domain: svc.Domain, FastRoute: svc.FastRoute}
	}
	if def.WebSocket {
		r.Kind = types.RouteWebSocket
	}
	return &r
}

// checkResults accepts (), (T), (error) and (T, error).
func checkResults(fnType reflect.Type) error {
	switch fnType.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if fnType.Out(1) == errorType {
			return nil
		}
		return errors.New("the second result must be an error")
	}
	return errors.New("an action returns at most a value and an error")
}

// GetServiceInstance returns the instance that serves calls to the service of type t.
func (m *Manager) GetServiceInstance(t reflect.Type) (interface{}, error) {
	m.RLock()
	e, ok := m.services[t]
	m.RUnlock()
	if !ok {
		return nil, types.NewError(types.KindInvalidServiceAction, "service %v is not added", t)
	}
	if e.instance != nil {
		return e.instance, nil
	}
	obj, err := m.container.Get(t)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, err, "create service "+e.info.Name)
	}
	return obj, nil
}

// GetServiceAction finds an action by service and action name. serviceName is
// the simple type name or the fully qualified one.
func (m *Manager) GetServiceAction(serviceName, actionName string) *types.ActionMethod {
	m.RLock()
	defer m.RUnlock()
	for _, t := range m.order {
		e := m.services[t]
		if e.info.Name != serviceName && simpleName(t) != serviceName {
			continue
		}
		for _, a := range e.info.Actions {
			if a.Name == actionName {
				return a
			}
		}
	}
	return nil
}

// IsServiceAdded reports whether the type of svc is added.
func (m *Manager) IsServiceAdded(svc types.Service) bool {
	m.RLock()
	defer m.RUnlock()
	_, ok := m.services[reflect.TypeOf(svc)]
	return ok
}

// Services lists the added services sorted by name.
func (m *Manager) Services() []Info {
	m.RLock()
	defer m.RUnlock()
	list := make([]Info, 0, len(m.services))
	for _, e := range m.services {
		list = append(list, e.info)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// InstantiateSingletonServices builds every singleton service up front.
func (m *Manager) InstantiateSingletonServices() error {
	m.RLock()
	var pending []reflect.Type
	for _, t := range m.order {
		if e := m.services[t]; e.instance == nil && e.info.Mode == types.Singleton {
			pending = append(pending, t)
		}
	}
	m.RUnlock()

	for _, t := range pending {
		if _, err := m.GetServiceInstance(t); err != nil {
			m.logger.Printf("service: failed to instantiate %v: %v", t, err)
			return err
		}
	}
	return nil
}

// Clear forgets every service. Routes must be reset on the registry separately.
func (m *Manager) Clear() {
	m.Lock()
	defer m.Unlock()
	m.services = make(map[reflect.Type]*serviceEntry)
	m.order = nil
}
