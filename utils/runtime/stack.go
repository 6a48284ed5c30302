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

// Package runtime captures call stacks for panics recovered while serving a request.
//
//	defer func() {
//		if e := recover(); e != nil {
//			log.Printf("panic: %v\n%s", e, runtime.Stack())
//		}
//	}()
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

// maxFrames bounds the captured stack.
const maxFrames = 32

// Stack returns the stack of the calling goroutine above the caller of Stack,
// one `function file:line` frame per line.
func Stack() []byte {
	pc := make([]uintptr, maxFrames)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	var b strings.Builder
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return []byte(b.String())
}
