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

package validator

import (
	"reflect"
	"testing"

	"github.com/herdgo/herd/api/types"
	"github.com/stretchr/testify/assert"
)

var param = &types.ActionParam{Name: "p", Type: reflect.TypeOf("")}

func TestNotNull(t *testing.T) {
	assert.False(t, NotNull.Validate(param, nil))
	assert.True(t, NotNull.Validate(param, ""))
}

func TestDefault(t *testing.T) {
	d := Default("10")
	assert.True(t, d.Validate(param, nil))
	assert.Equal(t, "10", d.Filter(param, nil))
	assert.Equal(t, 3, d.Filter(param, 3))
}

func TestLength(t *testing.T) {
	l := Length(2, 4)
	assert.False(t, l.Validate(param, "a"))
	assert.True(t, l.Validate(param, "ab"))
	assert.True(t, l.Validate(param, "日本語"))
	assert.False(t, l.Validate(param, "abcde"))
	assert.False(t, l.Validate(param, nil))

	assert.True(t, Length(0, 3).Validate(param, nil))
	assert.True(t, ExactLength(3).Validate(param, "abc"))
	assert.False(t, ExactLength(3).Validate(param, "ab"))
	assert.False(t, ExactLength(3).Validate(param, nil))
}

func TestTag(t *testing.T) {
	email := Tag("email")
	assert.True(t, email.Validate(param, "a@b.com"))
	assert.False(t, email.Validate(param, "nope"))
	assert.True(t, email.Validate(param, nil))
	assert.Equal(t, "Tag(email)", email.Name())
}

func TestHTMLSanitize(t *testing.T) {
	text := HTMLSanitize(true)
	assert.Equal(t, "hello world", text.Filter(param, "<b>hello</b> <script>alert(1)</script>world"))
	assert.Equal(t, "a &lt; b", text.Filter(param, "a < b"))
	assert.Nil(t, text.Filter(param, nil))

	relaxed := HTMLSanitize(false)
	assert.Equal(t, `<b>hi</b><a href="https://x.org">x</a>`,
		relaxed.Filter(param, `<b onclick="x()">hi</b><a href="https://x.org" style="color:red">x</a>`))
	assert.Equal(t, `<a>x</a>`, relaxed.Filter(param, `<a href="javascript:alert(1)">x</a>`))
	assert.Equal(t, `<p>text</p>`, relaxed.Filter(param, `<p><font>text</font></p>`))
}
