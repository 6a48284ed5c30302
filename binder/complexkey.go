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
	"regexp"
	"strconv"
	"strings"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/utils/cast"
	"github.com/herdgo/herd/utils/str"
)

var indexPattern = regexp.MustCompile(`\[\d+\]`)

// IsComplexKey reports whether a parameter key describes a nested path.
func IsComplexKey(key string) bool {
	return strings.ContainsAny(key, ".[")
}

// MergeComplexKeys rebuilds the nested structure described by flat keys.
//
//	test.a=1, test.b=2                 -> {"test": {"a": 1, "b": 2}}
//	test[]=1, test[]=2                 -> {"test": [1, 2]}
//	test[].a=1, test[].b=3, test[].a=2 -> {"test": [{"a": 1, "b": 3}, {"a": 2}]}
//
// An empty `[]` marker gets an index: it stays on the current element while
// the key that follows it changes, and moves to a new element when that key
// repeats. Leaf values that look like short integers become ints. The result
// holds only map[string]interface{}, []interface{}, string and int values.
func MergeComplexKeys(pairs types.Pairs) map[string]interface{} {
	hub := make(map[string]interface{})
	if len(pairs) == 0 {
		return hub
	}
	fillByPaths(hub, indexArrayKeys(pairs))
	return finalize(hub).(map[string]interface{})
}

// indexArrayKeys replaces every `[]` with a concrete `[n]`.
func indexArrayKeys(pairs types.Pairs) types.Pairs {
	paths := make(types.Pairs, 0, len(pairs))
	counters := make(map[string]int)
	nextKeys := make(map[string]string)

	for _, p := range pairs {
		if !strings.Contains(p.Key, "[]") {
			paths = append(paths, p)
			continue
		}

		key := p.Key
		lastAdded := ""
		repeated := false
		for idx := nextMarker(key, 0); idx >= 0; idx = nextMarker(key, idx) {
			arrayPath := key[:idx]
			if _, ok := counters[arrayPath]; !ok {
				counters[arrayPath] = 0
				lastAdded = arrayPath
			}
			next := key[idx+2:]
			next = next[strings.Index(next, ".")+1:]
			if i := strings.Index(next, "["); i >= 0 {
				next = next[i+1:]
			}
			if known, ok := nextKeys[arrayPath]; !ok {
				nextKeys[arrayPath] = next
			} else if known == next {
				repeated = true
			}
		}

		arrayPath := key[:strings.LastIndex(key, "[]")]
		if arrayPath != lastAdded && repeated {
			counters[arrayPath]++
		}

		final := key
		for idx := nextMarker(final, 0); idx >= 0; idx = nextMarker(final, idx) {
			current := indexPattern.ReplaceAllString(final[:idx], "[]")
			final = final[:idx] + "[" + strconv.Itoa(counters[current]) + "]" + final[idx+2:]
		}
		paths = append(paths, types.Pair{Key: final, Value: p.Value})
	}
	return paths
}

// nextMarker finds the next `[]` strictly after position from.
func nextMarker(key string, from int) int {
	if from+1 > len(key) {
		return -1
	}
	i := strings.Index(key[from+1:], "[]")
	if i < 0 {
		return -1
	}
	return from + 1 + i
}

// array is a growable JSON array while the tree is being built.
type array struct {
	items []interface{}
}

func (a *array) objectAt(i int) map[string]interface{} {
	if m, ok := a.items[i].(map[string]interface{}); ok {
		return m
	}
	m := make(map[string]interface{})
	a.items[i] = m
	return m
}

func objectIn(parent map[string]interface{}, key string) map[string]interface{} {
	if m, ok := parent[key].(map[string]interface{}); ok {
		return m
	}
	m := make(map[string]interface{})
	parent[key] = m
	return m
}

func arrayIn(parent map[string]interface{}, key string) *array {
	if a, ok := parent[key].(*array); ok {
		return a
	}
	a := &array{}
	parent[key] = a
	return a
}

func fillByPaths(hub map[string]interface{}, paths types.Pairs) {
	for _, p := range paths {
		sections := strings.Split(p.Key, ".")
		for len(sections) > 0 && sections[len(sections)-1] == "" {
			sections = sections[:len(sections)-1]
		}
		var value interface{} = p.Value
		if str.IsInteger(p.Value) {
			value = cast.ToInt(p.Value)
		}

		var parent interface{} = hub
		for i, section := range sections {
			keyName := indexPattern.ReplaceAllString(section, "")
			last := i == len(sections)-1

			if !strings.Contains(section, "[") {
				switch node := parent.(type) {
				case *array:
					o := make(map[string]interface{})
					if last {
						o[keyName] = value
					}
					node.items = append(node.items, o)
					parent = o
				case map[string]interface{}:
					if last {
						node[keyName] = value
					} else {
						parent = objectIn(node, keyName)
					}
				}
				continue
			}

			start := strings.Index(section, "[")
			end := strings.Index(section, "]")
			index, err := strconv.Atoi(section[start+1 : end])
			if err != nil {
				break
			}

			switch node := parent.(type) {
			case *array:
				if last {
					break
				}
				if index >= len(node.items) {
					// detached element: a nested array directly inside an array has nowhere to live
					parent = make(map[string]interface{})
				} else {
					parent = arrayIn(node.objectAt(index), keyName)
				}
			case map[string]interface{}:
				current := arrayIn(node, keyName)
				if last {
					if index >= len(current.items) {
						current.items = append(current.items, value)
					} else {
						current.items[index] = value
					}
					break
				}
				if index >= len(current.items) {
					current.items = append(current.items, make(map[string]interface{}))
				}
				parent = current.objectAt(index)
			}
		}
	}
}

func finalize(v interface{}) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		for k, child := range node {
			node[k] = finalize(child)
		}
		return node
	case *array:
		items := make([]interface{}, len(node.items))
		for i, child := range node.items {
			items[i] = finalize(child)
		}
		return items
	}
	return v
}
