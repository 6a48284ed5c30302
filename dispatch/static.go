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

package dispatch

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/route"
)

const indexFile = "index.html"

// serveStatic looks uri up under the context roots, first root wins.
func (d *Dispatcher) serveStatic(actx *types.ActionContext, uri route.URI) (*types.ActionResult, error) {
	if actx.Request.Method != http.MethodGet || len(d.config.ContextRoots) == 0 {
		return nil, types.NewError(types.KindRouteNotFound, "no route for %s %s", actx.Request.Method, uri.Path)
	}
	rel := strings.TrimPrefix(uri.Path, "/")
	if rel == "" {
		rel = indexFile
	}
	for _, root := range d.config.ContextRoots {
		file, ok := resolveUnder(root, rel)
		if !ok {
			d.logger.Printf("dispatch: %s escapes context root %s", uri.Path, root)
			continue
		}
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			continue
		}
		if d.config.EveryHtmlIsTemplate && strings.HasSuffix(rel, ".html") {
			return &types.ActionResult{Context: actx, Value: &types.ViewResponse{ViewPath: strings.TrimSuffix(rel, ".html")}}, nil
		}
		resp := &types.FileResponse{Path: file, ModTime: info.ModTime()}
		if since := actx.Request.Header.Get("If-Modified-Since"); since != "" {
			if t, err := http.ParseTime(since); err == nil && !info.ModTime().Truncate(time.Second).After(t) {
				resp.NotModified = true
			}
		}
		return &types.ActionResult{Context: actx, Value: resp}, nil
	}
	return nil, types.NewError(types.KindRouteNotFound, "no route or file for %s", uri.Path)
}

// resolveUnder joins rel to root and reports whether the result stays inside root.
func resolveUnder(root, rel string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	file := filepath.Join(absRoot, filepath.FromSlash(rel))
	if file != absRoot && !strings.HasPrefix(file, absRoot+string(filepath.Separator)) {
		return "", false
	}
	return file, true
}
