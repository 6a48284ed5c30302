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
	"testing"

	"github.com/herdgo/herd/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOrdering(t *testing.T) {
	r := NewRegistry(types.DiscardLogger())
	require.Nil(t, r.AddRoute(types.RouteDefinition{Path: "/api/:res", FastRoute: true}, "generic"))
	require.Nil(t, r.AddRoute(types.RouteDefinition{Path: "/api/user/:id", FastRoute: true}, "user"))
	require.Nil(t, r.AddRoute(types.RouteDefinition{Path: "/api/abc", FastRoute: true}, "abc"))
	require.Nil(t, r.AddRoute(types.RouteDefinition{Path: "/api/xyz", FastRoute: true}, "xyz"))

	var paths []string
	for _, route := range r.Routes() {
		paths = append(paths, route.Path)
	}
	assert.Equal(t, []string{"/api/user/:id", "/api/:res", "/api/xyz", "/api/abc"}, paths)

	mr := r.FindMatch(ResolveURI("localhost", "/api/user/7"))
	require.NotNil(t, mr)
	assert.Equal(t, "user", mr.Handler)
	assert.Equal(t, types.Pairs{{Key: "id", Value: "7"}}, mr.Parameters)

	mr = r.FindMatch(ResolveURI("localhost", "/api/abc"))
	require.NotNil(t, mr)
	assert.Equal(t, "generic", mr.Handler)
}

func TestRegistryOverwrite(t *testing.T) {
	r := NewRegistry(types.DiscardLogger())
	require.Nil(t, r.AddRoute(types.RouteDefinition{Path: "Service/greet"}, "first"))
	require.Nil(t, r.AddRoute(types.RouteDefinition{Path: "Service/greet"}, "second"))
	assert.Equal(t, 1, r.Len())

	h, ok := r.Get(types.RouteDefinition{Path: "Service/greet"})
	assert.True(t, ok)
	assert.Equal(t, "second", h)

	require.Nil(t, r.AddRoute(types.RouteDefinition{Domain: "a.com", Path: "Service/greet"}, "domain"))
	assert.Equal(t, 2, r.Len())
}

func TestRegistryNotFoundAndReset(t *testing.T) {
	r := NewRegistry(types.DiscardLogger())
	assert.Equal(t, ErrEmptyPath, r.AddRoute(types.RouteDefinition{}, "x"))
	require.Nil(t, r.AddRoute(types.RouteDefinition{Path: "^/Service/greet$"}, "greet"))

	assert.Nil(t, r.FindMatch(ResolveURI("localhost", "/Nope/x")))
	assert.NotNil(t, r.FindMatch(ResolveURI("localhost", "/Service/greet")))

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.FindMatch(ResolveURI("localhost", "/Service/greet")))
}

func TestRegistryEntryRoute(t *testing.T) {
	r := NewRegistry(types.DiscardLogger())
	require.Nil(t, r.AddRoute(types.RouteDefinition{Path: "/", Entry: true}, "home"))
	require.Nil(t, r.AddRoute(types.RouteDefinition{Path: "/index", Entry: true, FastRoute: true}, "index"))

	assert.Nil(t, r.FindMatch(ResolveURI("localhost", "/Nope/x")))
	assert.Nil(t, r.FindMatch(ResolveURI("localhost", "/index")))

	mr := r.FindMatch(ResolveURI("localhost", "/"))
	require.NotNil(t, mr)
	assert.Contains(t, []interface{}{"home", "index"}, mr.Handler)
}
