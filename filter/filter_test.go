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

package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/di"
	"github.com/herdgo/herd/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder appends its name to a shared log in every phase.
type recorder struct {
	types.BaseFilter
	name  string
	log   *[]string
	allow bool
}

func (r *recorder) Early(ctx *types.FilterContext) (bool, error) {
	*r.log = append(*r.log, r.name+":early")
	return true, nil
}

func (r *recorder) Before(ctx *types.FilterContext) (bool, error) {
	*r.log = append(*r.log, r.name+":before")
	return r.allow, nil
}

type globalFilter struct{ recorder }
type routedFilter struct{ recorder }
type normalFilter struct{ recorder }

type replacer struct {
	types.BaseFilter
}

func (replacer) After(ctx *types.FilterContext) (*types.ActionResult, error) {
	return &types.ActionResult{Value: ctx.Param("prefix") + ctx.Result.Value.(string)}, nil
}

type counter struct {
	types.BaseFilter
	n int
}

func (c *counter) InstantiateType() types.InstantiateType {
	return types.AlwaysNew
}

func (c *counter) Early(ctx *types.FilterContext) (bool, error) {
	c.n++
	return true, nil
}

func newManager() *Manager {
	return NewManager(di.NewContainer(types.DiscardLogger()), types.DiscardLogger())
}

func uri(t *testing.T, s string) route.URI {
	u, err := route.ParseURI(s)
	require.Nil(t, err)
	return u
}

func actionContext() *types.ActionContext {
	return &types.ActionContext{Context: context.Background(), Request: &types.Request{Method: "GET"}}
}

func TestFindMatchedOrder(t *testing.T) {
	var log []string
	m := newManager()
	require.Nil(t, m.AddFilter(Descriptor{Prototype: &routedFilter{recorder{name: "routed", log: &log, allow: true}},
		Routes: []types.RouteDefinition{{Path: "^/api/.*"}}}))
	require.Nil(t, m.AddFilter(Descriptor{Prototype: &globalFilter{recorder{name: "global", log: &log, allow: true}}, Global: true}))
	require.Nil(t, m.AddFilter(Descriptor{Prototype: &normalFilter{recorder{name: "normal", log: &log, allow: true}}}))

	action := &types.ActionMethod{Name: "x", Filters: []types.FilterRef{
		types.UseFilter(&normalFilter{}, "k", "v"),
		types.UseFilter(&replacer{}),
	}}

	chain := m.FindMatched(uri(t, "http://localhost/api/users"), action)
	require.Len(t, chain, 3)
	assert.Equal(t, "v", chain[0].parameters["k"])

	ctx := actionContext()
	chain.Prepare(ctx)
	require.Nil(t, chain.RunEarly(ctx))
	require.Nil(t, chain.RunBefore(ctx))
	assert.Equal(t, []string{
		"normal:early", "global:early", "routed:early",
		"normal:before", "global:before", "routed:before",
	}, log)

	chain = m.FindMatched(uri(t, "http://localhost/other"), action)
	assert.Len(t, chain, 2)
}

func TestAddFilterIgnoresDuplicates(t *testing.T) {
	var log []string
	m := newManager()
	g := &globalFilter{recorder{name: "g", log: &log}}
	require.Nil(t, m.AddFilter(Descriptor{Prototype: g, Global: true}))
	require.Nil(t, m.AddFilter(Descriptor{Prototype: &globalFilter{}, Global: true}))

	routes := []types.RouteDefinition{{Path: "/a/:id", FastRoute: true}}
	require.Nil(t, m.AddFilter(Descriptor{Prototype: &routedFilter{}, Routes: routes}))
	require.Nil(t, m.AddFilter(Descriptor{Prototype: &normalFilter{}, Routes: routes}))

	chain := m.FindMatched(uri(t, "http://localhost/a/1"), nil)
	require.Len(t, chain, 2)
	assert.Equal(t, "filter.globalFilter", chain[0].Name())
	assert.Equal(t, "filter.routedFilter", chain[1].Name())
	assert.True(t, m.IsAdded(&routedFilter{}))
	assert.False(t, m.IsAdded(&normalFilter{}))

	assert.NotNil(t, m.AddFilter(Descriptor{}))
}

func TestBeforeShortCircuits(t *testing.T) {
	var log []string
	m := newManager()
	require.Nil(t, m.AddFilter(Descriptor{Prototype: &globalFilter{recorder{name: "deny", log: &log}}, Global: true}))
	require.Nil(t, m.AddFilter(Descriptor{Prototype: &routedFilter{recorder{name: "later", log: &log, allow: true}},
		Routes: []types.RouteDefinition{{Path: "/**:rest", FastRoute: true}}}))

	ctx := actionContext()
	chain := m.FindMatched(uri(t, "http://localhost/x"), nil)
	chain.Prepare(ctx)
	err := chain.RunBefore(ctx)
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, types.ErrFilterRejected))
	assert.Equal(t, []string{"deny:before"}, log)
}

func TestRunAfterReplacesResult(t *testing.T) {
	m := newManager()
	require.Nil(t, m.AddFilter(Descriptor{Prototype: &replacer{}, Global: true, Parameters: map[string]string{"prefix": ">"}}))
	require.Nil(t, m.AddFilter(Descriptor{Prototype: &counter{}, Global: true}))

	ctx := actionContext()
	chain := m.FindMatched(uri(t, "http://localhost/x"), nil)
	chain.Prepare(ctx)
	r, err := chain.RunAfter(ctx, &types.ActionResult{Context: ctx, Value: "ok"})
	require.Nil(t, err)
	assert.Equal(t, ">ok", r.Value)
	assert.Same(t, ctx, r.Context)
}

func TestAlwaysNewFilters(t *testing.T) {
	m := newManager()
	proto := &counter{}
	require.Nil(t, m.AddFilter(Descriptor{Prototype: proto, Global: true}))

	for i := 0; i < 3; i++ {
		ctx := actionContext()
		chain := m.FindMatched(uri(t, "http://localhost/x"), nil)
		chain.Prepare(ctx)
		require.Nil(t, chain.RunEarly(ctx))
		assert.Equal(t, 1, chain[0].Filter.(*counter).n)
		assert.NotSame(t, proto, chain[0].Filter)
	}
	assert.Equal(t, 0, proto.n)
}

type role string

type roleAuth struct{}

func (roleAuth) Authenticate(annotation interface{}, ctx *types.FilterContext) (bool, error) {
	return ctx.Request().Header.Get("X-Role") == string(annotation.(role)), nil
}

func TestRunAuthenticators(t *testing.T) {
	c := di.NewContainer(types.DiscardLogger())
	require.Nil(t, c.RegisterInstance(roleAuth{}))
	m := NewManager(c, types.DiscardLogger())

	action := &types.ActionMethod{Name: "admin", Authenticators: []types.AuthenticatorRef{
		types.Authenticate(role("admin"), roleAuth{}),
	}}

	ctx := actionContext()
	ctx.Request.Header = map[string][]string{"X-Role": {"admin"}}
	assert.Nil(t, m.RunAuthenticators(ctx, action))

	ctx.Request.Header = map[string][]string{"X-Role": {"guest"}}
	err := m.RunAuthenticators(ctx, action)
	assert.True(t, types.IsKind(err, types.KindAuthenticationFailed))

	action.Authenticators = []types.AuthenticatorRef{types.Authenticate(nil, &recorderAuth{})}
	err = m.RunAuthenticators(ctx, action)
	assert.True(t, types.IsKind(err, types.KindInternal))

	assert.Nil(t, m.RunAuthenticators(ctx, &types.ActionMethod{}))
}

type recorderAuth struct{}

func (*recorderAuth) Authenticate(annotation interface{}, ctx *types.FilterContext) (bool, error) {
	return true, nil
}
