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

package cast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToInt64E(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		expect int64
		hasErr bool
	}{
		{"int", 123, 123, false},
		{"uint8", uint8(123), 123, false},
		{"float64", 1.9, 1, false},
		{"string", "123", 123, false},
		{"spaced string", " -7 ", -7, false},
		{"decimal string", "1.5", 0, true},
		{"grouped string", "1,000", 0, true},
		{"invalid type", []int{1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInt64E(tt.input)
			assert.Equal(t, tt.hasErr, err != nil)
			assert.Equal(t, tt.expect, got)
		})
	}
	assert.Equal(t, 42, ToInt("42"))
	assert.Equal(t, 0, ToInt("x"))
}

func TestToUint64E(t *testing.T) {
	v, err := ToUint64E("18446744073709551615")
	assert.Nil(t, err)
	assert.Equal(t, uint64(18446744073709551615), v)

	_, err = ToUint64E("-1")
	assert.NotNil(t, err)
	_, err = ToUint64E(-1)
	assert.NotNil(t, err)
	v, err = ToUint64E(int32(5))
	assert.Nil(t, err)
	assert.Equal(t, uint64(5), v)
}

func TestToBoolE(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "True", "1"} {
		v, err := ToBoolE(s)
		assert.Nil(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"false", "FALSE", "0"} {
		v, err := ToBoolE(s)
		assert.Nil(t, err)
		assert.False(t, v, s)
	}
	_, err := ToBoolE("yes")
	assert.NotNil(t, err)
	assert.False(t, ToBool("yes"))
	assert.True(t, ToBool(3))
}

func TestToFloat64E(t *testing.T) {
	v, err := ToFloat64E("1.25")
	assert.Nil(t, err)
	assert.Equal(t, 1.25, v)

	_, err = ToFloat64E("1,25")
	assert.NotNil(t, err)

	v, err = ToFloat64E(int16(3))
	assert.Nil(t, err)
	assert.Equal(t, 3.0, v)
}

func TestToDurationE(t *testing.T) {
	d, err := ToDurationE("1m30s")
	assert.Nil(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = ToDurationE(int64(5))
	assert.Nil(t, err)
	assert.Equal(t, time.Duration(5), d)

	_, err = ToDurationE("soon")
	assert.NotNil(t, err)
	_, err = ToDurationE(struct{}{})
	assert.NotNil(t, err)
}
