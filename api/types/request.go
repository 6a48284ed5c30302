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
	"encoding/json"
	"net/http"
)

// Reserved parameter keys and names.
const (
	// JsonKey holds a JSON request body.
	JsonKey = "__json__"
	// BodyKey holds the raw request body.
	BodyKey = "__body__"
	// ParametersName binds the whole parameter list.
	ParametersName = "__parameters__"
	// UploadsName binds every uploaded file.
	UploadsName = "__uploads__"
	// CookiesName binds every cookie.
	CookiesName = "__cookies__"
)

// RequestSource extracts the potentially expensive parts of a request.
// Both methods may be called concurrently.
type RequestSource interface {
	// Parameters returns the query, form and body pairs in wire order.
	Parameters(ctx context.Context) (Pairs, error)
	// Uploads stores uploaded files and returns their handles.
	Uploads(ctx context.Context) ([]*UploadFile, error)
}

// Request is the transport independent view of an inbound request.
type Request struct {
	Method string
	Scheme string
	Host   string
	// Path is the URI path, without query.
	Path   string
	Header http.Header
	Source RequestSource
	// Upgrade switches the connection to websocket. Nil when the transport cannot upgrade.
	Upgrade func(ctx context.Context) (interface{}, error)
	// Raw and Response carry the transport's own handles; they are offered to handlers as ambient objects.
	Raw      interface{}
	Response interface{}
}

// UploadFile is an uploaded file already persisted in the upload cache.
type UploadFile struct {
	ParameterName string
	Filename      string
	// Path of the cached copy on disk.
	Path        string
	Size        int64
	ContentType string
}

// StaticSource is a RequestSource over already known values.
type StaticSource struct {
	Params Pairs
	Files  []*UploadFile
}

func (s StaticSource) Parameters(ctx context.Context) (Pairs, error) {
	return append(Pairs(nil), s.Params...), nil
}

func (s StaticSource) Uploads(ctx context.Context) ([]*UploadFile, error) {
	return append([]*UploadFile(nil), s.Files...), nil
}

// ActionContext is the per-request state carried from parameter extraction to invocation.
type ActionContext struct {
	Context context.Context
	// Id is a unique request id.
	Id         string
	Request    *Request
	Route      *RouteDefinition
	Action     *ActionMethod
	Parameters Pairs
	Uploads    []*UploadFile
	Cookies    []*http.Cookie
	// Json holds the top level members of a JSON object body, decoded lazily by the binder.
	Json map[string]json.RawMessage
	// Ambient objects are bound to handler parameters by type.
	Ambient []interface{}
}

// Cookie returns the named cookie.
func (c *ActionContext) Cookie(name string) *http.Cookie {
	for _, cookie := range c.Cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

// Upload returns the upload posted under the form field name.
func (c *ActionContext) Upload(name string) *UploadFile {
	for _, u := range c.Uploads {
		if u.ParameterName == name {
			return u
		}
	}
	return nil
}
