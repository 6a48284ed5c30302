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

package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/di"
	"github.com/herdgo/herd/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Greeter struct {
	calls int
}

func (g *Greeter) Actions() []types.ActionDef {
	return []types.ActionDef{
		{Method: "Greet", Params: []types.ParamDef{types.Param("name")}, HTTPMethods: []string{"GET"}},
		{Method: "Fail"},
		{Method: "Divide", Params: []types.ParamDef{types.Param("a"), types.Param("b")}},
		{Method: "Later"},
		{Method: "Count"},
		{Name: "ping", Func: func() string { return "pong" }},
		{Method: "Chat", WebSocket: true},
	}
}

func (g *Greeter) Greet(name string) string {
	return "Hello, " + name + "!"
}

func (g *Greeter) Fail() error {
	return errors.New("boom")
}

func (g *Greeter) Divide(a, b int) (int, error) {
	return a / b, nil
}

func (g *Greeter) Later() *types.Future {
	return types.Async(func() (interface{}, error) { return "done", nil })
}

func (g *Greeter) Count() int {
	g.calls++
	return g.calls
}

func (g *Greeter) Chat(ctx *types.ActionContext) {}

type Users struct{}

func (Users) Route() types.RouteDefinition {
	return types.RouteDefinition{Path: "/api/users", FastRoute: true}
}

func (Users) Actions() []types.ActionDef {
	return []types.ActionDef{
		{Method: "Get", SubRoute: "/:id", Params: []types.ParamDef{types.Param("id")}},
		{Method: "Home", Route: &types.RouteDefinition{Path: "/", Entry: true}},
	}
}

func (Users) Get(id int) int { return id }

func (Users) Home() string { return "home" }

type Fresh struct{ n int }

func (*Fresh) InstantiateType() types.InstantiateType { return types.AlwaysNew }

func (*Fresh) Actions() []types.ActionDef {
	return []types.ActionDef{{Method: "Self"}}
}

func (f *Fresh) Self() *Fresh { return f }

type broken struct{ defs []types.ActionDef }

func (b *broken) Actions() []types.ActionDef { return b.defs }

func (b *broken) Two() (int, int) { return 1, 2 }

func (b *broken) One(a int) int { return a }

func newManager() (*Manager, *route.Registry, *di.Container) {
	registry := route.NewRegistry(types.DiscardLogger())
	container := di.NewContainer(types.DiscardLogger())
	return NewManager(registry, container, types.DiscardLogger()), registry, container
}

func find(t *testing.T, registry *route.Registry, s string) *route.MatchedRoute {
	u, err := route.ParseURI(s)
	require.Nil(t, err)
	return registry.FindMatch(u)
}

func TestAddServiceRoutes(t *testing.T) {
	m, registry, _ := newManager()
	require.Nil(t, m.AddService(&Greeter{}, nil))
	require.Nil(t, m.AddService(Users{}, nil))

	matched := find(t, registry, "http://localhost/Greeter/greet?name=x")
	require.NotNil(t, matched)
	action := matched.Handler.(*types.ActionMethod)
	assert.Equal(t, "Greeter.greet", action.String())
	assert.Equal(t, "Greeter/greet", action.Route.Path)
	assert.Equal(t, "name", action.Params[0].Name)
	assert.True(t, action.AllowsMethod("get"))
	assert.False(t, action.AllowsMethod("POST"))
	assert.False(t, (&types.ActionMethod{}).AllowsMethod("GET"))
	assert.True(t, (&types.ActionMethod{HTTPMethods: []string{types.HTTPAnyMethod}}).AllowsMethod("PATCH"))

	chat := m.GetServiceAction("Greeter", "chat")
	require.NotNil(t, chat)
	assert.True(t, chat.IsWebSocket())

	matched = find(t, registry, "http://localhost/api/users/42")
	require.NotNil(t, matched)
	assert.Equal(t, "get", matched.Handler.(*types.ActionMethod).Name)
	assert.True(t, matched.Route.FastRoute)
	v, _ := matched.Parameters.Get("id")
	assert.Equal(t, "42", v)

	matched = find(t, registry, "http://localhost/")
	require.NotNil(t, matched)
	assert.Equal(t, "home", matched.Handler.(*types.ActionMethod).Name)

	assert.True(t, m.IsServiceAdded(&Greeter{}))
	assert.False(t, m.IsServiceAdded(&Fresh{}))
	assert.Len(t, m.Services(), 2)
	assert.NotNil(t, m.GetServiceAction("github.com/herdgo/herd/service.Users", "get"))
	assert.Nil(t, m.GetServiceAction("Users", "missing"))
}

func TestAddServiceCustomRoute(t *testing.T) {
	m, registry, _ := newManager()
	require.Nil(t, m.AddService(&Greeter{}, &types.RouteDefinition{Path: "^/v2/"}))
	assert.NotNil(t, find(t, registry, "http://localhost/v2/greet"))
	assert.Nil(t, find(t, registry, "http://localhost/Greeter/greet"))

	// a second add of the same type keeps the first routes
	require.Nil(t, m.AddService(&Greeter{}, nil))
	assert.Nil(t, find(t, registry, "http://localhost/Greeter/greet"))
}

func TestInvalidActions(t *testing.T) {
	cases := [][]types.ActionDef{
		{{Method: "Missing"}},
		{{Method: "Two"}},
		{{Method: "One", Params: []types.ParamDef{types.Param("a"), types.Param("b")}}},
		{{Name: "x", Func: 42}},
		{{Func: func() {}}},
		{{}},
	}
	for i, defs := range cases {
		m, _, _ := newManager()
		err := m.AddService(&broken{defs: defs}, nil)
		assert.True(t, types.IsKind(err, types.KindInvalidServiceAction), "case %d: %v", i, err)
	}
}

func TestInvoke(t *testing.T) {
	m, _, _ := newManager()
	require.Nil(t, m.AddService(&Greeter{}, nil))
	ctx := context.Background()

	r, err := m.Invoke(ctx, m.GetServiceAction("Greeter", "greet"), []interface{}{"world"})
	require.Nil(t, err)
	assert.Equal(t, "Hello, world!", r)

	_, err = m.Invoke(ctx, m.GetServiceAction("Greeter", "fail"), nil)
	assert.EqualError(t, err, "boom")

	r, err = m.Invoke(ctx, m.GetServiceAction("Greeter", "divide"), []interface{}{6, 3})
	require.Nil(t, err)
	assert.Equal(t, 2, r)

	_, err = m.Invoke(ctx, m.GetServiceAction("Greeter", "divide"), []interface{}{1, 0})
	require.NotNil(t, err)
	assert.True(t, types.IsKind(err, types.KindInternal))
	assert.NotEmpty(t, err.(*types.Error).Stack)

	r, err = m.Invoke(ctx, m.GetServiceAction("Greeter", "later"), nil)
	require.Nil(t, err)
	assert.Equal(t, "done", r)

	r, err = m.Invoke(ctx, m.GetServiceAction("Greeter", "ping"), nil)
	require.Nil(t, err)
	assert.Equal(t, "pong", r)

	_, err = m.Invoke(ctx, m.GetServiceAction("Greeter", "greet"), []interface{}{1})
	assert.True(t, types.IsKind(err, types.KindInternal))
	_, err = m.Invoke(ctx, m.GetServiceAction("Greeter", "greet"), nil)
	assert.True(t, types.IsKind(err, types.KindInternal))
}

func TestServiceLifecycle(t *testing.T) {
	m, _, container := newManager()
	created := 0
	require.Nil(t, container.Provide(func() *Greeter {
		created++
		return &Greeter{}
	}, types.Singleton, false))
	require.Nil(t, m.AddService(&Greeter{}, nil))
	require.Nil(t, m.AddService(&Fresh{}, nil))

	require.Nil(t, m.InstantiateSingletonServices())
	assert.Equal(t, 1, created)

	count := m.GetServiceAction("Greeter", "count")
	for i := 1; i <= 3; i++ {
		r, err := m.Invoke(context.Background(), count, nil)
		require.Nil(t, err)
		assert.Equal(t, i, r)
	}
	assert.Equal(t, 1, created)

	self := m.GetServiceAction("Fresh", "self")
	a, _ := m.Invoke(context.Background(), self, nil)
	b, _ := m.Invoke(context.Background(), self, nil)
	assert.NotSame(t, a, b)
}

func TestAddServiceInstance(t *testing.T) {
	m, _, _ := newManager()
	g := &Greeter{calls: 10}
	require.Nil(t, m.AddServiceInstance(g, nil))

	r, err := m.Invoke(context.Background(), m.GetServiceAction("Greeter", "count"), nil)
	require.Nil(t, err)
	assert.Equal(t, 11, r)

	other := &Greeter{calls: 100}
	require.Nil(t, m.AddServiceInstance(other, nil))
	obj, err := m.GetServiceInstance(reflect.TypeOf(other))
	require.Nil(t, err)
	assert.Same(t, other, obj)

	m.Clear()
	_, err = m.GetServiceInstance(reflect.TypeOf(other))
	assert.True(t, types.IsKind(err, types.KindInvalidServiceAction))
}
