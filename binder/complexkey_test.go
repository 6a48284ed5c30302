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
	"testing"

	"github.com/herdgo/herd/api/types"
	"github.com/stretchr/testify/assert"
)

func pairs(kv ...string) types.Pairs {
	var p types.Pairs
	for i := 0; i+1 < len(kv); i += 2 {
		p = append(p, types.Pair{Key: kv[i], Value: kv[i+1]})
	}
	return p
}

func TestIsComplexKey(t *testing.T) {
	assert.True(t, IsComplexKey("a.b"))
	assert.True(t, IsComplexKey("a[]"))
	assert.False(t, IsComplexKey("a"))
}

func TestMergeSimpleObject(t *testing.T) {
	hub := MergeComplexKeys(pairs("test.a", "1", "test.b", "2"))
	assert.Equal(t, map[string]interface{}{
		"test": map[string]interface{}{"a": 1, "b": 2},
	}, hub)
}

func TestMergeDeepSimpleObject(t *testing.T) {
	hub := MergeComplexKeys(pairs("test.a.c", "1", "test.a.d", "2", "test.b.e", "3", "test.b.f", "4"))
	assert.Equal(t, map[string]interface{}{
		"test": map[string]interface{}{
			"a": map[string]interface{}{"c": 1, "d": 2},
			"b": map[string]interface{}{"e": 3, "f": 4},
		},
	}, hub)
}

func TestMergeArray(t *testing.T) {
	hub := MergeComplexKeys(pairs("test[]", "1", "test[]", "2", "test[]", "3"))
	assert.Equal(t, map[string]interface{}{"test": []interface{}{1, 2, 3}}, hub)
}

func TestMergeDeepArray(t *testing.T) {
	hub := MergeComplexKeys(pairs(
		"test[].a", "1", "test[].b", "3",
		"test[].a", "2", "test[].b", "4",
		"test2.c[]", "5", "test2.c[]", "6",
		"test2.d[].e", "7", "test2.d[].f", "9",
		"test2.d[].e", "8", "test2.d[].f", "0",
	))
	assert.Equal(t, map[string]interface{}{
		"test": []interface{}{
			map[string]interface{}{"a": 1, "b": 3},
			map[string]interface{}{"a": 2, "b": 4},
		},
		"test2": map[string]interface{}{
			"c": []interface{}{5, 6},
			"d": []interface{}{
				map[string]interface{}{"e": 7, "f": 9},
				map[string]interface{}{"e": 8, "f": 0},
			},
		},
	}, hub)
}

func TestMergeNestedArrays(t *testing.T) {
	hub := MergeComplexKeys(pairs("test.a[].b[]", "1", "test.a[].b[]", "2"))
	assert.Equal(t, map[string]interface{}{
		"test": map[string]interface{}{
			"a": []interface{}{
				map[string]interface{}{"b": []interface{}{1, 2}},
			},
		},
	}, hub)
}

func TestMergeMixedObjectAndArrays(t *testing.T) {
	hub := MergeComplexKeys(pairs(
		"data.id", "1",
		"data.groupType", "4",
		"data.auth[].module", "2",
		"data.auth[].auth[]", "3",
	))
	assert.Equal(t, map[string]interface{}{
		"data": map[string]interface{}{
			"id":        1,
			"groupType": 4,
			"auth": []interface{}{
				map[string]interface{}{"module": 2, "auth": []interface{}{3}},
			},
		},
	}, hub)
}

func TestMergeKeepsNonIntegerStrings(t *testing.T) {
	hub := MergeComplexKeys(pairs("user.name", "bob", "user.id", "123456789", "user.score", "-12"))
	assert.Equal(t, map[string]interface{}{
		"user": map[string]interface{}{"name": "bob", "id": "123456789", "score": -12},
	}, hub)
}

func TestMergeEmpty(t *testing.T) {
	assert.Equal(t, map[string]interface{}{}, MergeComplexKeys(nil))
}
