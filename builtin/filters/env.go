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

// Package filters provides scripted request filters.
//
// ExprFilter evaluates an expr-lang boolean expression and JsFilter a
// JavaScript function body. Both see the request as these variables:
//
//	method  request method
//	path    request path
//	host    request host
//	header  first value of each header
//	param   first value of each request parameter, empty during early
//	cookie  cookie values, empty during early
//	static  static parameters the filter was attached with
//	action  the action name, such as Greeter.greet
//	global  Config.Properties
//
// A false result rejects the request.
package filters

import (
	"github.com/herdgo/herd/api/types"
)

// Phase selects the filter hook that runs the script.
type Phase int

const (
	// PhaseBefore runs after authentication, with parameters available.
	PhaseBefore Phase = iota
	// PhaseEarly runs right after route resolution.
	PhaseEarly
)

// Env builds the variables a script sees for ctx.
func Env(ctx *types.FilterContext, global map[string]string) map[string]interface{} {
	env := map[string]interface{}{
		"method": "",
		"path":   "",
		"host":   "",
		"header": map[string]string{},
		"param":  map[string]string{},
		"cookie": map[string]string{},
		"static": ctx.Parameters,
		"action": "",
		"global": global,
	}
	if ctx.Parameters == nil {
		env["static"] = map[string]string{}
	}
	if global == nil {
		env["global"] = map[string]string{}
	}
	a := ctx.Action
	if a == nil {
		return env
	}
	if r := a.Request; r != nil {
		env["method"] = r.Method
		env["path"] = r.Path
		env["host"] = r.Host
		headers := make(map[string]string, len(r.Header))
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}
		env["header"] = headers
	}
	env["param"] = a.Parameters.Map()
	cookies := make(map[string]string, len(a.Cookies))
	for _, c := range a.Cookies {
		if _, ok := cookies[c.Name]; !ok {
			cookies[c.Name] = c.Value
		}
	}
	env["cookie"] = cookies
	if a.Action != nil {
		env["action"] = a.Action.String()
	}
	return env
}
