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

// Package binder turns request data into the positional arguments of an action.
//
// Each parameter is looked up, first hit wins, in:
//
//  1. the reserved names __parameters__, __uploads__, __cookies__ and __body__
//  2. uploads and cookies, by parameter name and type
//  3. ambient objects assignable to the parameter type
//  4. the flat parameter list, by name
//  5. the top level members of a JSON object body
//  6. the tree rebuilt from complex keys such as `user.name` or `tags[]`
//
// Validators attached to the parameter then run in order. Struct arguments built
// from request data are also checked against their `validate` tags.
package binder

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/utils/maps"
)

var (
	pairsType      = reflect.TypeOf(types.Pairs{})
	stringMapType  = reflect.TypeOf(map[string]string{})
	multiMapType   = reflect.TypeOf(map[string][]string{})
	uploadType     = reflect.TypeOf(&types.UploadFile{})
	uploadsType    = reflect.TypeOf([]*types.UploadFile{})
	cookieType     = reflect.TypeOf(&http.Cookie{})
	cookiesType    = reflect.TypeOf([]*http.Cookie{})
	bytesType      = reflect.TypeOf([]byte{})
	stringType     = reflect.TypeOf("")
	emptyInterface = reflect.TypeOf((*interface{})(nil)).Elem()
)

// RequiredValidator names the check that rejects a missing bool or number.
const RequiredValidator = "required"

// Binder binds request data to action parameters. It is safe for concurrent use.
type Binder struct {
	validate *validator.Validate
	logger   types.Logger
}

// New creates a Binder.
func New(logger types.Logger) *Binder {
	return &Binder{
		validate: validator.New(),
		logger:   types.NewLogger(logger),
	}
}

// Bind produces one argument per parameter of action. ambient objects are
// offered to parameters by type, after the ones carried by ctx.
func (b *Binder) Bind(ctx *types.ActionContext, action *types.ActionMethod, ambient ...interface{}) ([]interface{}, error) {
	s := &session{binder: b, ctx: ctx, ambient: b.ambientOf(ctx, ambient)}
	args := make([]interface{}, len(action.Params))
	for i := range action.Params {
		param := &action.Params[i]
		v, err := s.bindParam(param)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (b *Binder) ambientOf(ctx *types.ActionContext, extra []interface{}) []interface{} {
	var objs []interface{}
	if ctx.Context != nil {
		objs = append(objs, ctx.Context)
	}
	objs = append(objs, ctx, ctx.Parameters, ctx.Cookies)
	if r := ctx.Request; r != nil {
		objs = append(objs, r)
		if r.Raw != nil {
			objs = append(objs, r.Raw)
		}
		if r.Response != nil {
			objs = append(objs, r.Response)
		}
	}
	if ctx.Route != nil {
		objs = append(objs, ctx.Route.ExtraParameters...)
	}
	objs = append(objs, ctx.Ambient...)
	return append(objs, extra...)
}

// session holds the lazily computed views of one request.
type session struct {
	binder  *Binder
	ctx     *types.ActionContext
	ambient []interface{}

	jsonParsed bool
	tree       map[string]interface{}
}

func (s *session) bindParam(param *types.ActionParam) (interface{}, error) {
	v, found, fromRequest, err := s.resolve(param)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if found {
		value = v.Interface()
	}
	for _, pv := range param.Validators {
		if !pv.Validate(param, value) {
			return nil, types.NewValidationError(param.Name, pv.Name(), value)
		}
		value = pv.Filter(param, value)
	}

	if value == nil {
		if IsPrimitive(param.Type) {
			return nil, types.NewValidationError(param.Name, RequiredValidator, nil)
		}
		return reflect.Zero(param.Type).Interface(), nil
	}

	rv, err := coerce(param.Type, value)
	if err != nil {
		return nil, validationError(param, err, value)
	}
	if fromRequest {
		if err := s.binder.validateStruct(param, rv); err != nil {
			return nil, err
		}
	}
	return rv.Interface(), nil
}

// resolve applies the lookup order. fromRequest tells whether the value was decoded from request data.
func (s *session) resolve(param *types.ActionParam) (v reflect.Value, found, fromRequest bool, err error) {
	t := param.Type
	ctx := s.ctx

	switch param.Name {
	case types.ParametersName:
		switch t {
		case pairsType:
			return reflect.ValueOf(append(types.Pairs(nil), ctx.Parameters...)), true, false, nil
		case stringMapType:
			return reflect.ValueOf(ctx.Parameters.Map()), true, false, nil
		case multiMapType:
			m := make(map[string][]string)
			for _, p := range ctx.Parameters {
				m[p.Key] = append(m[p.Key], p.Value)
			}
			return reflect.ValueOf(m), true, false, nil
		}
	case types.UploadsName:
		if t == uploadsType {
			return reflect.ValueOf(ctx.Uploads), true, false, nil
		}
	case types.CookiesName:
		if t == cookiesType {
			return reflect.ValueOf(ctx.Cookies), true, false, nil
		}
	case types.BodyKey:
		if body, ok := ctx.Parameters.Get(types.BodyKey); ok {
			switch t {
			case stringType:
				return reflect.ValueOf(body), true, false, nil
			case bytesType:
				return reflect.ValueOf([]byte(body)), true, false, nil
			}
		}
	}

	switch t {
	case uploadType:
		if u := ctx.Upload(param.Name); u != nil {
			return reflect.ValueOf(u), true, false, nil
		}
		return v, false, false, nil
	case uploadsType:
		return reflect.ValueOf(ctx.Uploads), true, false, nil
	case cookieType:
		if c := ctx.Cookie(param.Name); c != nil {
			return reflect.ValueOf(c), true, false, nil
		}
		return v, false, false, nil
	}

	if !scalar(t) && t != emptyInterface {
		for _, obj := range s.ambient {
			if obj == nil {
				continue
			}
			ov := reflect.ValueOf(obj)
			if ov.Type().AssignableTo(t) {
				return ov, true, false, nil
			}
		}
	}

	if values := ctx.Parameters.All(param.Name); len(values) > 0 && convertible(t) {
		v, found, err = convertFlat(t, values)
		if err != nil {
			return v, false, false, validationError(param, err, values)
		}
		if found {
			return v, true, true, nil
		}
	}

	if raw, ok := s.json()[param.Name]; ok {
		ptr := reflect.New(t)
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			return v, false, false, validationError(param, err, string(raw))
		}
		return ptr.Elem(), true, true, nil
	}

	if node, ok := s.complexTree()[param.Name]; ok {
		ptr := reflect.New(t)
		if err := maps.DecodeTree(node, ptr.Interface()); err != nil {
			return v, false, false, validationError(param, err, node)
		}
		return ptr.Elem(), true, true, nil
	}
	return v, false, false, nil
}

func (s *session) json() map[string]json.RawMessage {
	if s.jsonParsed || s.ctx.Json != nil {
		return s.ctx.Json
	}
	s.jsonParsed = true
	body, ok := s.ctx.Parameters.Get(types.JsonKey)
	if !ok || body == "" {
		return nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &members); err != nil {
		s.binder.logger.Printf("binder: json body is not an object: %v", err)
		return nil
	}
	s.ctx.Json = members
	return members
}

func (s *session) complexTree() map[string]interface{} {
	if s.tree != nil {
		return s.tree
	}
	var complexPairs types.Pairs
	for _, p := range s.ctx.Parameters {
		if IsComplexKey(p.Key) {
			complexPairs = append(complexPairs, p)
		}
	}
	s.tree = MergeComplexKeys(complexPairs)
	return s.tree
}

func (b *Binder) validateStruct(param *types.ActionParam, v reflect.Value) error {
	t := v.Type()
	if t.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == timeType {
		return nil
	}
	err := b.validate.Struct(v.Interface())
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return nil
	}
	fe := fieldErrs[0]
	name := param.Name
	if ns := fe.Namespace(); strings.Contains(ns, ".") {
		name += ns[strings.Index(ns, "."):]
	}
	return types.NewValidationError(name, fe.Tag(), fe.Value())
}

func validationError(param *types.ActionParam, err error, value interface{}) error {
	e := types.NewValidationError(param.Name, "type", value)
	e.Err = err
	return e
}

// scalar kinds never bind from ambient objects.
func scalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool, reflect.Float32, reflect.Float64:
		return true
	}
	return isInteger(t.Kind())
}

// convertible reports whether t can be built from wire strings.
func convertible(t reflect.Type) bool {
	switch {
	case t == bytesType:
		return true
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		return t.Elem().Kind() != reflect.Slice && convertibleScalar(t.Elem())
	case t.Kind() == reflect.Ptr:
		return convertibleScalar(t.Elem())
	}
	return convertibleScalar(t)
}

func convertibleScalar(t reflect.Type) bool {
	if t == timeType || t == durationType || t == emptyInterface || reflect.PtrTo(t).Implements(textUnmarshalerType) {
		return true
	}
	return scalar(t)
}

func convertFlat(t reflect.Type, values []string) (reflect.Value, bool, error) {
	switch {
	case t == bytesType:
		return reflect.ValueOf([]byte(values[0])), true, nil
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		v, err := ConvertStrings(t, values)
		return v, err == nil, err
	}
	return ConvertString(t, values[0])
}

// coerce fits a validator's output to the parameter type.
func coerce(t reflect.Type, value interface{}) (reflect.Value, error) {
	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(t):
		out := reflect.New(t).Elem()
		out.Set(v)
		return out, nil
	case v.Kind() == reflect.String && convertible(t):
		out, ok, err := convertFlat(t, []string{v.String()})
		if err != nil || ok {
			return out, err
		}
		return reflect.Zero(t), nil
	case v.Type().ConvertibleTo(t) && scalar(t) && scalar(v.Type()) && (v.Kind() == reflect.String) == (t.Kind() == reflect.String):
		return v.Convert(t), nil
	}
	ptr := reflect.New(t)
	if err := maps.DecodeTree(value, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}
