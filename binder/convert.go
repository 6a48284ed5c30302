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

package binder

import (
	"encoding"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/utils/cast"
)

var (
	enumType            = reflect.TypeOf((*types.Enum)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	timeType            = reflect.TypeOf(time.Time{})
	durationType        = reflect.TypeOf(time.Duration(0))
)

// IsEnum reports whether t binds from an ordinal index.
func IsEnum(t reflect.Type) bool {
	return isInteger(t.Kind()) && (t.Implements(enumType) || reflect.PtrTo(t).Implements(enumType))
}

// IsPrimitive reports whether t can not represent a missing value: bools and numbers, enums excluded.
func IsPrimitive(t reflect.Type) bool {
	k := t.Kind()
	return (k == reflect.Bool || isInteger(k) || k == reflect.Float32 || k == reflect.Float64) && !IsEnum(t)
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func ordinals(t reflect.Type) int {
	if t.Implements(enumType) {
		return reflect.Zero(t).Interface().(types.Enum).Ordinals()
	}
	return reflect.New(t).Interface().(types.Enum).Ordinals()
}

// ConvertString converts a wire value into t. ok is false when the value
// stands for "no value" (an empty string for anything but strings).
// Conversions never depend on the locale.
func ConvertString(t reflect.Type, s string) (v reflect.Value, ok bool, err error) {
	if t.Kind() != reflect.String && s == "" {
		return reflect.Value{}, false, nil
	}

	if reflect.PtrTo(t).Implements(textUnmarshalerType) && t != timeType {
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, false, err
		}
		return ptr.Elem(), true, nil
	}

	switch t {
	case timeType:
		tm, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return reflect.Value{}, false, err
		}
		return reflect.ValueOf(tm), true, nil
	case durationType:
		d, err := cast.ToDurationE(s)
		if err != nil {
			return reflect.Value{}, false, err
		}
		return reflect.ValueOf(d), true, nil
	}

	if IsEnum(t) {
		i, err := cast.ToIntE(s)
		if err != nil {
			return reflect.Value{}, false, err
		}
		if i < 0 || i >= ordinals(t) {
			return reflect.Value{}, false, fmt.Errorf("ordinal %d out of range for %v", i, t)
		}
		v := reflect.New(t).Elem()
		if t.Kind() >= reflect.Uint && t.Kind() <= reflect.Uint64 {
			v.SetUint(uint64(i))
		} else {
			v.SetInt(int64(i))
		}
		return v, true, nil
	}

	v = reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		// anything but true or 1 is false
		v.SetBool(cast.ToBool(s))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := cast.ToInt64E(s)
		if err != nil {
			return reflect.Value{}, false, err
		}
		if v.OverflowInt(i) {
			return reflect.Value{}, false, fmt.Errorf("%s overflows %v", s, t)
		}
		v.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := cast.ToUint64E(s)
		if err != nil {
			return reflect.Value{}, false, err
		}
		if v.OverflowUint(u) {
			return reflect.Value{}, false, fmt.Errorf("%s overflows %v", s, t)
		}
		v.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(s)
		if err != nil {
			return reflect.Value{}, false, err
		}
		if v.OverflowFloat(f) {
			return reflect.Value{}, false, fmt.Errorf("%s overflows %v", s, t)
		}
		v.SetFloat(f)
	case reflect.Ptr:
		elem, ok, err := ConvertString(t.Elem(), s)
		if err != nil || !ok {
			return reflect.Value{}, ok, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		return p, true, nil
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return reflect.Value{}, false, fmt.Errorf("can not convert a string to %v", t)
		}
		v.Set(reflect.ValueOf(s))
	default:
		return reflect.Value{}, false, fmt.Errorf("can not convert a string to %v", t)
	}
	return v, true, nil
}

// ConvertStrings converts every value into the element type of the slice or array type t.
func ConvertStrings(t reflect.Type, values []string) (reflect.Value, error) {
	var out reflect.Value
	if t.Kind() == reflect.Array {
		out = reflect.New(t).Elem()
	} else {
		out = reflect.MakeSlice(t, len(values), len(values))
	}
	for i, s := range values {
		if i >= out.Len() {
			break
		}
		elem, ok, err := ConvertString(t.Elem(), s)
		if err != nil {
			return reflect.Value{}, err
		}
		if ok {
			out.Index(i).Set(elem)
		}
	}
	return out, nil
}

// ParseCookies parses a Cookie header value, `a=1; b=2`, keeping order.
// Invalid pairs are dropped the way net/http drops them.
func ParseCookies(header string) []*http.Cookie {
	if header == "" {
		return nil
	}
	return (&http.Request{Header: http.Header{"Cookie": {header}}}).Cookies()
}
