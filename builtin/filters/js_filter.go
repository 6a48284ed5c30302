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
	"fmt"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/utils/js"
)

// JsFilter runs Script as the body of `function Filter(req)`, where req holds
// the request variables. Config.Properties are also visible as `global`.
//
//	return req.header["X-Token"] === global.token;
type JsFilter struct {
	types.BaseFilter
	Script string
	Phase  Phase

	global   map[string]string
	jsEngine *js.GojaJsEngine
}

// NewJsFilter compiles script. Calls are bounded by config.ScriptMaxExecutionTime.
func NewJsFilter(config types.Config, script string, phase Phase) (*JsFilter, error) {
	engine, err := js.NewGojaJsEngine(config, fmt.Sprintf("function Filter(req) { %s }", script), nil)
	if err != nil {
		return nil, err
	}
	return &JsFilter{Script: script, Phase: phase, global: config.Properties, jsEngine: engine}, nil
}

func (x *JsFilter) Early(ctx *types.FilterContext) (bool, error) {
	if x.Phase != PhaseEarly {
		return true, nil
	}
	return x.eval(ctx)
}

func (x *JsFilter) Before(ctx *types.FilterContext) (bool, error) {
	if x.Phase != PhaseBefore {
		return true, nil
	}
	return x.eval(ctx)
}

func (x *JsFilter) eval(ctx *types.FilterContext) (bool, error) {
	out, err := x.jsEngine.Execute("Filter", Env(ctx, x.global))
	if err != nil {
		return false, types.WrapError(types.KindInternal, err, "js filter")
	}
	if result, ok := out.(bool); ok {
		return result, nil
	}
	return false, types.NewError(types.KindInternal, "js filter must return a boolean, got %T", out)
}
