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

package filters

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/herdgo/herd/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterContext(role string) *types.FilterContext {
	header := http.Header{}
	header.Set("X-Role", role)
	return &types.FilterContext{
		Context:    context.Background(),
		Parameters: map[string]string{"role": "admin"},
		Action: &types.ActionContext{
			Request:    &types.Request{Method: http.MethodGet, Path: "/Greeter/greet", Header: header},
			Parameters: types.Pairs{{Key: "name", Value: "world"}, {Key: "name", Value: "again"}},
			Cookies:    []*http.Cookie{{Name: "sid", Value: "1"}},
		},
	}
}

var global = map[string]string{"env": "test"}

func TestEnv(t *testing.T) {
	env := Env(filterContext("admin"), global)
	assert.Equal(t, "GET", env["method"])
	assert.Equal(t, "/Greeter/greet", env["path"])
	assert.Equal(t, map[string]string{"name": "world"}, env["param"])
	assert.Equal(t, map[string]string{"sid": "1"}, env["cookie"])
	assert.Equal(t, "admin", env["header"].(map[string]string)["X-Role"])

	env = Env(&types.FilterContext{}, nil)
	assert.Equal(t, map[string]string{}, env["static"])
	assert.Equal(t, map[string]string{}, env["global"])
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter(`method == "GET" && header["X-Role"] == static.role && param.name == "world" && cookie.sid == "1" && global.env == "test"`, PhaseBefore, global)
	require.Nil(t, err)

	ok, err := f.Before(filterContext("admin"))
	require.Nil(t, err)
	assert.True(t, ok)

	ok, err = f.Before(filterContext("user"))
	require.Nil(t, err)
	assert.False(t, ok)

	ok, err = f.Early(filterContext("user"))
	require.Nil(t, err)
	assert.True(t, ok)

	early, err := NewExprFilter(`header["X-Role"] == "admin"`, PhaseEarly, nil)
	require.Nil(t, err)
	ok, _ = early.Early(filterContext("user"))
	assert.False(t, ok)
	ok, _ = early.Before(filterContext("user"))
	assert.True(t, ok)

	_, err = NewExprFilter("1 +", PhaseBefore, nil)
	assert.NotNil(t, err)
	_, err = NewExprFilter(`"text"`, PhaseBefore, nil)
	assert.NotNil(t, err)
}

func TestJsFilter(t *testing.T) {
	config := types.NewConfig(types.WithLogger(types.DiscardLogger()), types.WithProperties(global))
	f, err := NewJsFilter(config, `return req.header["X-Role"] === req.static.role && req.param.name === "world" && global.env === "test";`, PhaseBefore)
	require.Nil(t, err)

	ok, err := f.Before(filterContext("admin"))
	require.Nil(t, err)
	assert.True(t, ok)

	ok, err = f.Before(filterContext("user"))
	require.Nil(t, err)
	assert.False(t, ok)

	ok, err = f.Early(filterContext("user"))
	require.Nil(t, err)
	assert.True(t, ok)

	notBool, err := NewJsFilter(config, "return 1;", PhaseEarly)
	require.Nil(t, err)
	_, err = notBool.Early(filterContext("admin"))
	assert.True(t, types.IsKind(err, types.KindInternal))

	_, err = NewJsFilter(config, "return (;", PhaseBefore)
	assert.NotNil(t, err)
}

func TestJsFilterTimeout(t *testing.T) {
	config := types.NewConfig(types.WithLogger(types.DiscardLogger()), types.WithScriptMaxExecutionTime(50*time.Millisecond))
	f, err := NewJsFilter(config, "while (true) {}", PhaseBefore)
	require.Nil(t, err)
	ok, err := f.Before(filterContext("admin"))
	assert.False(t, ok)
	assert.True(t, types.IsKind(err, types.KindInternal))
}
