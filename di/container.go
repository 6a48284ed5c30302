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

// Package di is a small reflection based dependency injection container.
//
// Components are registered under an interface (or concrete) type together
// with a constructor function. Constructor parameters are resolved from the
// container recursively:
//
//	c := di.NewContainer(logger)
//	_ = c.Provide(NewStore, types.Singleton, true)
//	_ = c.Provide(NewUserService, types.AlwaysNew, false) // func NewUserService(s *Store) *UserService
//	svc, err := di.Resolve[*UserService](c)
//
// Types registered without a constructor must be pointers to structs; they
// are allocated zero valued.
package di

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/herdgo/herd/api/types"
)

var (
	ErrNotRegistered      = errors.New("component not registered")
	ErrNoConstructor      = errors.New("component has no usable constructor")
	ErrCircularDependency = errors.New("circular dependency")
	ErrInvalidConstructor = errors.New("invalid constructor")
	ErrNotAssignable      = errors.New("concrete type does not implement the interface")
	errorType             = reflect.TypeOf((*error)(nil)).Elem()
)

// Registration describes how one interface type is satisfied.
type Registration struct {
	Interface reflect.Type
	Concrete  reflect.Type
	// Constructor is a func value; invalid when the concrete type is allocated directly.
	Constructor reflect.Value
	Mode        types.InstantiateType
	// Eager singletons are created by Init.
	Eager bool
}

// Container holds registrations and singleton instances.
type Container struct {
	components map[reflect.Type]*Registration
	names      map[string]reflect.Type
	singletons sync.Map
	logger     types.Logger
	sync.RWMutex
}

// NewContainer creates an empty container.
func NewContainer(logger types.Logger) *Container {
	return &Container{
		components: make(map[reflect.Type]*Registration),
		names:      make(map[string]reflect.Type),
		logger:     types.NewLogger(logger),
	}
}

// TypeName is the name a type is registered under for GetByName, e.g.
// `github.com/acme/app/store.Store` for both `store.Store` and `*store.Store`.
func TypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr && t.Name() == "" {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Register satisfies iface with concrete, built by ctor (nil to allocate
// concrete directly). A second registration of the same iface is ignored.
func (c *Container) Register(iface, concrete reflect.Type, ctor interface{}, mode types.InstantiateType, eager bool) error {
	if iface == nil {
		return fmt.Errorf("%w: nil interface type", ErrInvalidConstructor)
	}
	reg := &Registration{Interface: iface, Concrete: concrete, Mode: mode, Eager: eager}
	if ctor != nil {
		fn := reflect.ValueOf(ctor)
		if err := checkConstructor(fn.Type()); err != nil {
			return err
		}
		reg.Constructor = fn
		if reg.Concrete == nil {
			reg.Concrete = fn.Type().Out(0)
		}
	} else if concrete == nil || !allocatable(concrete) {
		return fmt.Errorf("%w: %v", ErrNoConstructor, concrete)
	}
	if !reg.Concrete.AssignableTo(iface) {
		return fmt.Errorf("%w: %v does not implement %v", ErrNotAssignable, reg.Concrete, iface)
	}

	c.Lock()
	defer c.Unlock()
	c.ensure()
	if _, ok := c.components[iface]; ok {
		c.logger.Printf("di: %s already registered, ignoring", TypeName(iface))
		return nil
	}
	c.components[iface] = reg
	c.names[TypeName(iface)] = iface
	return nil
}

// RegisterType registers t as its own implementation, allocated directly.
func (c *Container) RegisterType(t reflect.Type, mode types.InstantiateType, eager bool) error {
	return c.Register(t, t, nil, mode, eager)
}

// Provide registers ctor under the type of its first result.
func (c *Container) Provide(ctor interface{}, mode types.InstantiateType, eager bool) error {
	fn := reflect.ValueOf(ctor)
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("%w: %T is not a function", ErrInvalidConstructor, ctor)
	}
	if err := checkConstructor(fn.Type()); err != nil {
		return err
	}
	out := fn.Type().Out(0)
	return c.Register(out, out, ctor, mode, eager)
}

// RegisterInstance registers an existing object as a singleton under its own type.
func (c *Container) RegisterInstance(obj interface{}) error {
	if obj == nil {
		return fmt.Errorf("%w: nil instance", ErrInvalidConstructor)
	}
	return c.RegisterInstanceAs(reflect.TypeOf(obj), obj)
}

// RegisterInstanceAs registers an existing object as the singleton for iface.
// Unlike Register, a later instance replaces an earlier registration and any
// cached singleton; instances already handed out are not affected.
func (c *Container) RegisterInstanceAs(iface reflect.Type, obj interface{}) error {
	t := reflect.TypeOf(obj)
	if !t.AssignableTo(iface) {
		return fmt.Errorf("%w: %v does not implement %v", ErrNotAssignable, t, iface)
	}
	c.Lock()
	defer c.Unlock()
	c.ensure()
	if _, ok := c.components[iface]; ok {
		c.logger.Printf("di: %s replaced by an instance", TypeName(iface))
	}
	c.components[iface] = &Registration{Interface: iface, Concrete: t, Mode: types.Singleton}
	c.names[TypeName(iface)] = iface
	c.singletons.Store(iface, obj)
	return nil
}

// Has reports whether t is registered.
func (c *Container) Has(t reflect.Type) bool {
	c.RLock()
	defer c.RUnlock()
	_, ok := c.components[t]
	return ok
}

// Registrations returns a snapshot of every registration, ordered by type name.
func (c *Container) Registrations() []Registration {
	c.RLock()
	regs := make([]Registration, 0, len(c.components))
	for _, r := range c.components {
		regs = append(regs, *r)
	}
	c.RUnlock()
	sort.Slice(regs, func(i, j int) bool {
		return TypeName(regs[i].Interface) < TypeName(regs[j].Interface)
	})
	return regs
}

// Get returns an instance of t, creating it and its dependencies as needed.
func (c *Container) Get(t reflect.Type) (interface{}, error) {
	return c.create(t, nil)
}

// GetByName looks a component up by its TypeName.
func (c *Container) GetByName(name string) (interface{}, error) {
	c.RLock()
	t, ok := c.names[name]
	c.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return c.Get(t)
}

// Make returns an instance of t, registering t as AlwaysNew first if it is unknown.
func (c *Container) Make(t reflect.Type) (interface{}, error) {
	if !c.Has(t) {
		if err := c.RegisterType(t, types.AlwaysNew, false); err != nil {
			return nil, err
		}
	}
	return c.Get(t)
}

// Init creates every eager singleton. A failing component is logged and
// the rest are still created; the failures are returned joined.
func (c *Container) Init() error {
	var eager []reflect.Type
	for _, r := range c.Registrations() {
		if r.Eager && r.Mode == types.Singleton {
			eager = append(eager, r.Interface)
		}
	}
	var errs []error
	for _, t := range eager {
		if _, err := c.Get(t); err != nil {
			err = fmt.Errorf("create eager component %s: %w", TypeName(t), err)
			c.logger.Printf("di: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear drops every registration and singleton.
func (c *Container) Clear() {
	c.Lock()
	defer c.Unlock()
	c.components = make(map[reflect.Type]*Registration)
	c.names = make(map[string]reflect.Type)
	c.singletons.Range(func(key, value interface{}) bool {
		c.singletons.Delete(key)
		return true
	})
}

func (c *Container) ensure() {
	if c.components == nil {
		c.components = make(map[reflect.Type]*Registration)
		c.names = make(map[string]reflect.Type)
	}
	if c.logger == nil {
		c.logger = types.DefaultLogger()
	}
}

func (c *Container) create(t reflect.Type, path []reflect.Type) (interface{}, error) {
	c.RLock()
	reg, ok := c.components[t]
	c.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, TypeName(t))
	}
	if reg.Mode == types.Singleton {
		if v, ok := c.singletons.Load(t); ok {
			return v, nil
		}
	}
	for _, p := range path {
		if p == t {
			return nil, fmt.Errorf("%w: %s", ErrCircularDependency, describePath(append(append([]reflect.Type(nil), path...), t)))
		}
	}

	obj, err := c.construct(reg, append(append([]reflect.Type(nil), path...), t))
	if err != nil {
		return nil, err
	}
	if reg.Mode == types.Singleton {
		// a concurrent creator may have won; everybody gets the stored instance
		actual, _ := c.singletons.LoadOrStore(t, obj)
		return actual, nil
	}
	return obj, nil
}

func (c *Container) construct(reg *Registration, path []reflect.Type) (interface{}, error) {
	if !reg.Constructor.IsValid() {
		if reg.Concrete.Kind() == reflect.Ptr {
			return reflect.New(reg.Concrete.Elem()).Interface(), nil
		}
		return reflect.New(reg.Concrete).Elem().Interface(), nil
	}

	fnType := reg.Constructor.Type()
	args := make([]reflect.Value, fnType.NumIn())
	for i := range args {
		in := fnType.In(i)
		dep, err := c.create(in, path)
		if err != nil {
			return nil, fmt.Errorf("resolve parameter %d (%s) of %s: %w", i, TypeName(in), TypeName(reg.Interface), err)
		}
		if dep == nil {
			args[i] = reflect.Zero(in)
		} else {
			args[i] = reflect.ValueOf(dep)
		}
	}

	out := reg.Constructor.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, fmt.Errorf("construct %s: %w", TypeName(reg.Interface), out[1].Interface().(error))
	}
	return out[0].Interface(), nil
}

func checkConstructor(fnType reflect.Type) error {
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("%w: %v is not a function", ErrInvalidConstructor, fnType)
	}
	if fnType.IsVariadic() {
		return fmt.Errorf("%w: %v is variadic", ErrInvalidConstructor, fnType)
	}
	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errorType {
			return fmt.Errorf("%w: second result of %v must be error", ErrInvalidConstructor, fnType)
		}
	default:
		return fmt.Errorf("%w: %v must return T or (T, error)", ErrInvalidConstructor, fnType)
	}
	return nil
}

func allocatable(t reflect.Type) bool {
	return t.Kind() == reflect.Struct || (t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct)
}

func describePath(path []reflect.Type) string {
	s := ""
	for i, t := range path {
		if i > 0 {
			s += " -> "
		}
		s += TypeName(t)
	}
	return s
}

// Resolve is the typed form of Get.
func Resolve[T any](c *Container) (T, error) {
	var zero T
	v, err := c.Get(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	return v.(T), nil
}

// MakeOf is the typed form of Make.
func MakeOf[T any](c *Container) (T, error) {
	var zero T
	v, err := c.Make(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
