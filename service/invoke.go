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
	"fmt"
	"reflect"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/utils/runtime"
)

// Invoke calls action with already bound arguments and returns its value.
// Awaitable values are awaited. A panic in the action becomes an Internal
// error carrying the stack.
func (m *Manager) Invoke(ctx context.Context, action *types.ActionMethod, args []interface{}) (result interface{}, err error) {
	in := make([]reflect.Value, 0, len(args)+1)
	if action.ServiceType != nil {
		svc, err := m.GetServiceInstance(action.ServiceType)
		if err != nil {
			return nil, err
		}
		in = append(in, reflect.ValueOf(svc))
	}
	if len(args) != len(action.Params) {
		return nil, types.NewError(types.KindInternal, "%s takes %d arguments, got %d", action.String(), len(action.Params), len(args))
	}
	for i, arg := range args {
		t := action.Params[i].Type
		if arg == nil {
			in = append(in, reflect.Zero(t))
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(t) {
			return nil, types.NewError(types.KindInternal, "argument %d of %s: %v is not assignable to %v", i, action.String(), v.Type(), t)
		}
		in = append(in, v)
	}

	out, err := call(action, in)
	if err != nil {
		return nil, err
	}
	result, err = unpack(out)
	if err != nil {
		return nil, err
	}
	if a, ok := result.(types.Awaitable); ok {
		return a.Await(ctx)
	}
	return result, nil
}

func call(action *types.ActionMethod, in []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = &types.Error{
				Kind:    types.KindInternal,
				Message: fmt.Sprintf("action %s panic: %v", action.String(), e),
				Stack:   runtime.Stack(),
			}
		}
	}()
	return action.Func.Call(in), nil
}

func unpack(out []reflect.Value) (interface{}, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			return nil, asError(out[0])
		}
		return valueOf(out[0]), nil
	default:
		return valueOf(out[0]), asError(out[1])
	}
}

func valueOf(v reflect.Value) interface{} {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
