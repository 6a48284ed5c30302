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

package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/herdgo/herd/api/types"
)

// ResultWriter turns dispatch outcomes into HTTP responses.
type ResultWriter interface {
	WriteResult(w http.ResponseWriter, r *http.Request, result *types.ActionResult) error
	WriteError(w http.ResponseWriter, r *http.Request, err error)
}

// ViewRenderer renders a ViewResponse, usually through a template engine.
type ViewRenderer interface {
	Render(w io.Writer, view *types.ViewResponse) error
}

// ViewRendererFunc adapts a function to ViewRenderer.
type ViewRendererFunc func(w io.Writer, view *types.ViewResponse) error

func (f ViewRendererFunc) Render(w io.Writer, view *types.ViewResponse) error {
	return f(w, view)
}

// DefaultWriter writes strings and bytes as is, follows file, redirect and
// view delegates and encodes anything else as JSON.
type DefaultWriter struct {
	// Renderer is required for ViewResponse results.
	Renderer ViewRenderer
}

// ErrorBody is the JSON body of an error response.
type ErrorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Param     string `json:"param,omitempty"`
	Validator string `json:"validator,omitempty"`
}

func (dw DefaultWriter) WriteResult(w http.ResponseWriter, r *http.Request, result *types.ActionResult) error {
	contentType := result.ContentType()
	if contentType != "" {
		w.Header().Set(ContentTypeKey, contentType)
	}
	setDefault := func(ct string) {
		if contentType == "" {
			w.Header().Set(ContentTypeKey, ct)
		}
	}

	switch v := result.Value.(type) {
	case nil:
		w.WriteHeader(http.StatusOK)
	case string:
		setDefault("text/plain; charset=utf-8")
		_, _ = io.WriteString(w, v)
	case []byte:
		setDefault("application/octet-stream")
		_, _ = w.Write(v)
	case *types.FileResponse:
		return writeFile(w, r, v)
	case *types.RedirectResponse:
		http.Redirect(w, r, v.URL, v.Code)
	case *types.ViewResponse:
		if dw.Renderer == nil {
			return types.NewError(types.KindInvalidViewResponse, "no view renderer for %s", v.ViewPath)
		}
		setDefault("text/html; charset=utf-8")
		return dw.Renderer.Render(w, v)
	default:
		setDefault(JsonContextType)
		return json.NewEncoder(w).Encode(v)
	}
	return nil
}

func (dw DefaultWriter) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	body := ErrorBody{Kind: types.KindOf(err).String(), Message: err.Error()}
	var e *types.Error
	if errors.As(err, &e) {
		body.Param = e.Param
		body.Validator = e.Validator
	}
	w.Header().Set(ContentTypeKey, JsonContextType)
	w.WriteHeader(types.KindOf(err).Status())
	_ = json.NewEncoder(w).Encode(body)
}

func writeFile(w http.ResponseWriter, r *http.Request, file *types.FileResponse) error {
	if file.NotModified {
		w.Header().Set("Last-Modified", file.ModTime.UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	f, err := os.Open(file.Path)
	if err != nil {
		return types.WrapError(types.KindRouteNotFound, err, "open "+filepath.Base(file.Path))
	}
	defer f.Close()
	http.ServeContent(w, r, filepath.Base(file.Path), file.ModTime, f)
	return nil
}
