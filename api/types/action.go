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
	"reflect"
	"strings"
)

// Service is implemented by every type registered with the service manager.
// Actions declares which methods are exposed and how.
type Service interface {
	Actions() []ActionDef
}

// RouteProvider overrides the default service route, which is the type name followed by "/".
type RouteProvider interface {
	Route() RouteDefinition
}

// HTTPAnyMethod in ActionDef.HTTPMethods allows every verb.
const HTTPAnyMethod = "*"

// ActionDef declares one exposed action of a service.
type ActionDef struct {
	// Name of the action, used in the default route. Defaults to Method with a lower case first letter.
	Name string
	// Method is the name of the Go method on the service. Ignored when Func is set.
	Method string
	// Func is an alternative handler: a plain function value, called without a service instance.
	Func interface{}
	// Params names the handler parameters positionally and attaches validators.
	// Parameters beyond this list are bound by type only.
	Params []ParamDef
	// HTTPMethods lists the allowed verbs, or HTTPAnyMethod. An action
	// without verbs answers every request with MethodNotAllowed.
	HTTPMethods []string
	// PreferredMethod is a hint for clients and documentation generators.
	PreferredMethod string
	// Route replaces the default route entirely.
	Route *RouteDefinition
	// SubRoute is appended to the service route instead of the action name.
	SubRoute string
	// Filters are normal filters applied to this action only, in order.
	Filters []FilterRef
	// Authenticators run in order after early filters.
	Authenticators []AuthenticatorRef
	// ContentType is set on the response by the transport.
	ContentType string
	// WebSocket makes the action a websocket handler.
	WebSocket bool
}

// ParamDef names a handler parameter.
type ParamDef struct {
	Name       string
	Validators []ParamValidator
}

// Param is shorthand for a ParamDef.
func Param(name string, validators ...ParamValidator) ParamDef {
	return ParamDef{Name: name, Validators: validators}
}

// ParamValidator checks and may rewrite a bound argument.
type ParamValidator interface {
	Name() string
	// Validate returns false to reject the value.
	Validate(param *ActionParam, value interface{}) bool
	// Filter returns the value that is finally passed to the handler.
	Filter(param *ActionParam, value interface{}) interface{}
}

// Enum is implemented by integer based enumerations that bind from an ordinal index.
// Ordinals returns the number of declared constants.
type Enum interface {
	Ordinals() int
}

// ActionParam is a resolved handler parameter.
type ActionParam struct {
	Name       string
	Type       reflect.Type
	Validators []ParamValidator
}

// ActionMethod is a resolved, callable action.
type ActionMethod struct {
	Name        string
	ServiceName string
	// ServiceType is the concrete service type. Nil for function handlers.
	ServiceType reflect.Type
	// Func is the method expression (receiver first) or the plain function.
	Func            reflect.Value
	Params          []ActionParam
	HTTPMethods     []string
	PreferredMethod string
	Route           *RouteDefinition
	Filters         []FilterRef
	Authenticators  []AuthenticatorRef
	ContentType     string
}

// AllowsMethod reports whether the HTTP verb may call this action.
func (a *ActionMethod) AllowsMethod(method string) bool {
	for _, m := range a.HTTPMethods {
		if m == HTTPAnyMethod || strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// IsWebSocket reports whether the action is served over websocket.
func (a *ActionMethod) IsWebSocket() bool {
	return a.Route != nil && a.Route.Kind == RouteWebSocket
}

func (a *ActionMethod) String() string {
	if a.ServiceName == "" {
		return a.Name
	}
	return a.ServiceName + "." + a.Name
}
