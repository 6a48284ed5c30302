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

package maps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type Address struct {
	Detail string `json:"detail"`
}

type User struct {
	Username string     `json:"username"`
	Age      int        `json:"age"`
	Address  Address    `json:"address"`
	Hobbies  []string   `json:"hobbies"`
	Birthday *time.Time `json:"birthday"`
}

func TestMap2Struct(t *testing.T) {
	type Config struct {
		Timeout time.Duration
	}
	var cfg Config
	err := Map2Struct(map[string]interface{}{"Timeout": "5s"}, &cfg)
	assert.Nil(t, err)
	assert.Equal(t, 5*time.Second, cfg.Timeout)

	err = Map2Struct(map[string]interface{}{"Timeout": "5invalid"}, &cfg)
	assert.NotNil(t, err)

	err = Map2Struct("not a map", &cfg)
	assert.NotNil(t, err)
}

func TestDecodeTree(t *testing.T) {
	var user User
	err := DecodeTree(map[string]interface{}{
		"username": "lala",
		"age":      "5",
		"address":  map[string]interface{}{"detail": 12},
		"hobbies":  []interface{}{"a", "b"},
		"birthday": "",
	}, &user)
	assert.Nil(t, err)
	assert.Equal(t, "lala", user.Username)
	assert.Equal(t, 5, user.Age)
	assert.Equal(t, "12", user.Address.Detail)
	assert.Equal(t, []string{"a", "b"}, user.Hobbies)
	assert.Nil(t, user.Birthday)

	err = DecodeTree(map[string]interface{}{"birthday": "2024-01-02T03:04:05Z"}, &user)
	assert.Nil(t, err)
	assert.Equal(t, 2024, user.Birthday.Year())
}
