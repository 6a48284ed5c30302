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

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ActionResult is what a dispatch produces: a handler value or a delegate
// (FileResponse, RedirectResponse, ViewResponse) for the transport to write.
type ActionResult struct {
	Context *ActionContext
	Value   interface{}
}

// ContentType returns the content type declared by the action, if any.
func (r *ActionResult) ContentType() string {
	if r == nil || r.Context == nil || r.Context.Action == nil {
		return ""
	}
	return r.Context.Action.ContentType
}

// FileResponse asks the transport to stream a file.
type FileResponse struct {
	Path    string
	ModTime time.Time
	// NotModified is set when the client copy, per If-Modified-Since, is current.
	NotModified bool
}

// RedirectResponse asks the transport to redirect.
type RedirectResponse struct {
	URL  string
	Code int
}

// Redirect returns a temporary redirect to url.
func Redirect(url string) *RedirectResponse {
	return &RedirectResponse{URL: url, Code: http.StatusFound}
}

// ViewResponse asks the transport to render a template with a model.
type ViewResponse struct {
	ViewPath string
	Model    interface{}
}

// Awaitable is a result that completes later. The dispatcher waits for it
// before running after filters.
type Awaitable interface {
	Await(ctx context.Context) (interface{}, error)
}

// Future is an Awaitable driven by a goroutine.
type Future struct {
	done  chan struct{}
	value interface{}
	err   error
}

// Async runs fn in its own goroutine and returns a Future for its result.
func Async(fn func() (interface{}, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if e := recover(); e != nil {
				f.err = fmt.Errorf("async action panic: %v", e)
			}
		}()
		f.value, f.err = fn()
	}()
	return f
}

// Await blocks until the result is available or ctx is done.
func (f *Future) Await(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
