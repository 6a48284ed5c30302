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

// InstantiateType is the lifecycle of a component, service or filter.
type InstantiateType int

const (
	// Singleton components are created once and shared.
	Singleton InstantiateType = iota
	// AlwaysNew components are created for every resolution (every invocation, for filters).
	AlwaysNew
)

func (t InstantiateType) String() string {
	if t == AlwaysNew {
		return "AlwaysNew"
	}
	return "Singleton"
}

// InstantiateTyper lets services and filters declare their own lifecycle. Singleton when absent.
type InstantiateTyper interface {
	InstantiateType() InstantiateType
}

// InstantiateTypeOf returns the lifecycle declared by v, Singleton by default.
func InstantiateTypeOf(v interface{}) InstantiateType {
	if t, ok := v.(InstantiateTyper); ok {
		return t.InstantiateType()
	}
	return Singleton
}
