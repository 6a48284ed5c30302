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

package runtime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture() []byte {
	return Stack()
}

func TestStack(t *testing.T) {
	stack := string(capture())
	// capture itself is skipped, its caller comes first
	assert.True(t, strings.HasPrefix(stack, "github.com/herdgo/herd/utils/runtime.TestStack\n"))
	assert.Contains(t, stack, "stack_test.go:")
	assert.Contains(t, stack, "testing.tRunner")
}
