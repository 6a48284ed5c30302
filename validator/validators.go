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

// Package validator provides the stock parameter validators.
//
//	types.Param("name", validator.NotNull, validator.Length(1, 32), validator.HTMLSanitize(true))
package validator

import (
	"fmt"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
	"github.com/herdgo/herd/api/types"
)

var (
	// NotNull rejects a missing value.
	NotNull types.ParamValidator = notNull{}

	_ types.ParamValidator = defaultValue("")
	_ types.ParamValidator = length{}
	_ types.ParamValidator = tag{}
)

type notNull struct{}

func (notNull) Name() string {
	return "NotNull"
}

func (notNull) Validate(param *types.ActionParam, value interface{}) bool {
	return value != nil
}

func (notNull) Filter(param *types.ActionParam, value interface{}) interface{} {
	return value
}

// Default substitutes value, converted to the parameter type, for a missing value.
func Default(value string) types.ParamValidator {
	return defaultValue(value)
}

type defaultValue string

func (defaultValue) Name() string {
	return "Default"
}

func (defaultValue) Validate(param *types.ActionParam, value interface{}) bool {
	return true
}

func (d defaultValue) Filter(param *types.ActionParam, value interface{}) interface{} {
	if value != nil {
		return value
	}
	return string(d)
}

// Length bounds the length of a string in characters. A bound <= 0 is not checked.
func Length(min, max int) types.ParamValidator {
	return length{min: min, max: max}
}

// ExactLength requires a string of exactly n characters.
func ExactLength(n int) types.ParamValidator {
	return length{exact: n}
}

type length struct {
	exact, min, max int
}

func (l length) Name() string {
	return "Length"
}

func (l length) Validate(param *types.ActionParam, value interface{}) bool {
	s, ok := value.(string)
	n := utf8.RuneCountInString(s)
	if l.exact > 0 {
		return ok && n == l.exact
	}
	if l.max > 0 && ok && n > l.max {
		return false
	}
	if l.min > 0 && (!ok || n < l.min) {
		return false
	}
	return true
}

func (l length) Filter(param *types.ActionParam, value interface{}) interface{} {
	return value
}

var tagValidate = playground.New()

// Tag checks a present value against a go-playground validation tag, e.g. `email` or `oneof=a b`.
// A missing value passes; combine with NotNull to require it.
func Tag(t string) types.ParamValidator {
	return tag{tag: t}
}

type tag struct {
	tag string
}

func (t tag) Name() string {
	return fmt.Sprintf("Tag(%s)", t.tag)
}

func (t tag) Validate(param *types.ActionParam, value interface{}) bool {
	if value == nil {
		return true
	}
	return tagValidate.Var(value, t.tag) == nil
}

func (t tag) Filter(param *types.ActionParam, value interface{}) interface{} {
	return value
}
