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

package types

import (
	"context"
	"reflect"
)

// Filter intercepts a dispatch at three points.
//
// Early runs right after the route is resolved, before parameters are extracted.
// Before runs after authentication, right before the handler.
// After runs once the handler returned; a non-nil result replaces the current one.
// Returning false from Early or Before stops the request.
type Filter interface {
	Early(ctx *FilterContext) (bool, error)
	Before(ctx *FilterContext) (bool, error)
	After(ctx *FilterContext) (*ActionResult, error)
}

// BaseFilter lets all phases pass. Embed it and override what you need.
type BaseFilter struct{}

func (BaseFilter) Early(ctx *FilterContext) (bool, error) {
	return true, nil
}

func (BaseFilter) Before(ctx *FilterContext) (bool, error) {
	return true, nil
}

func (BaseFilter) After(ctx *FilterContext) (*ActionResult, error) {
	return nil, nil
}

// FilterContext is what one filter invocation sees.
type FilterContext struct {
	Context context.Context
	// Parameters are the static parameters the filter was attached with.
	Parameters map[string]string
	// Action is the request state. Parameters, uploads and cookies are empty during Early.
	Action *ActionContext
	// Result is the in-flight result, set only during After.
	Result *ActionResult
}

// Param returns a static filter parameter.
func (c *FilterContext) Param(key string) string {
	if c.Parameters == nil {
		return ""
	}
	return c.Parameters[key]
}

// Request returns the inbound request.
func (c *FilterContext) Request() *Request {
	if c.Action == nil {
		return nil
	}
	return c.Action.Request
}

// FilterRef attaches a normal filter to an action.
type FilterRef struct {
	Type       reflect.Type
	Parameters map[string]string
}

// UseFilter references the filter type of prototype, with static parameters given as key/value pairs.
func UseFilter(prototype Filter, kv ...string) FilterRef {
	params := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		params[kv[i]] = kv[i+1]
	}
	return FilterRef{Type: reflect.TypeOf(prototype), Parameters: params}
}

// Authenticator decides whether a request may reach an action.
// annotation is the value the action declared alongside the authenticator.
type Authenticator interface {
	Authenticate(annotation interface{}, ctx *FilterContext) (bool, error)
}

// AuthenticatorRef attaches an authenticator, resolved through the container, to an action.
type AuthenticatorRef struct {
	Annotation interface{}
	Type       reflect.Type
}

// Authenticate references the authenticator type of prototype.
func Authenticate(annotation interface{}, prototype Authenticator) AuthenticatorRef {
	return AuthenticatorRef{Annotation: annotation, Type: reflect.TypeOf(prototype)}
}
