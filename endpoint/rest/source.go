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
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/upload"
	"github.com/herdgo/herd/utils/str"
)

const (
	ContentTypeKey  = "Content-Type"
	JsonContextType = "application/json"
	FormContentType = "application/x-www-form-urlencoded"
	// maxFieldSize bounds a single non-file multipart field.
	maxFieldSize = 32 << 20
)

// httpSource reads parameters and uploads from an *http.Request. The body is
// parsed once, whichever of the two is asked first. Multipart bodies are
// streamed part by part, so form fields keep their wire order and files go
// straight into the upload store.
type httpSource struct {
	request *http.Request
	store   *upload.Store
	logger  types.Logger

	once    sync.Once
	body    types.Pairs
	uploads []*types.UploadFile
	err     error
	saveMu  sync.Mutex
	saved   []*types.UploadFile
}

func newHTTPSource(r *http.Request, store *upload.Store, logger types.Logger) *httpSource {
	return &httpSource{request: r, store: store, logger: logger}
}

// Parameters returns the query pairs followed by the body pairs.
func (s *httpSource) Parameters(ctx context.Context) (types.Pairs, error) {
	params := parsePairs(s.request.URL.RawQuery, true)
	s.once.Do(func() { s.parseBody(ctx) })
	if s.err != nil {
		return nil, s.err
	}
	return append(params, s.body...), nil
}

// Uploads returns the multipart files saved into the upload cache.
func (s *httpSource) Uploads(ctx context.Context) ([]*types.UploadFile, error) {
	s.once.Do(func() { s.parseBody(ctx) })
	if s.err != nil {
		return nil, s.err
	}
	return s.uploads, nil
}

func (s *httpSource) parseBody(ctx context.Context) {
	r := s.request
	if r.Body == nil || r.Body == http.NoBody {
		return
	}
	defer r.Body.Close()
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get(ContentTypeKey))
	if mediaType == "multipart/form-data" {
		s.err = s.parseMultipart(ctx)
		return
	}

	buf, err := io.ReadAll(r.Body)
	if err != nil {
		s.err = types.WrapError(types.KindInternal, err, "read request body")
		return
	}
	if len(buf) == 0 {
		return
	}
	switch mediaType {
	case FormContentType:
		s.body = parsePairs(string(buf), false)
	case JsonContextType:
		s.body = append(s.body, types.Pair{Key: types.JsonKey, Value: string(buf)})
	}
	s.body = append(s.body, types.Pair{Key: types.BodyKey, Value: string(buf)})
}

func (s *httpSource) parseMultipart(ctx context.Context) error {
	mr, err := s.request.MultipartReader()
	if err != nil {
		return types.WrapError(types.KindValidationFailed, err, "malformed multipart body")
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return types.WrapError(types.KindValidationFailed, err, "malformed multipart body")
		}
		if err := s.readPart(ctx, part); err != nil {
			return err
		}
	}
}

func (s *httpSource) readPart(ctx context.Context, part *multipart.Part) error {
	defer part.Close()
	name := part.FormName()
	if name == "" {
		return nil
	}
	if part.FileName() == "" {
		buf, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
		if err != nil {
			return types.WrapError(types.KindValidationFailed, err, "read multipart field "+name)
		}
		if len(buf) > maxFieldSize {
			e := types.NewError(types.KindValidationFailed, "multipart field %s exceeds %d bytes", name, maxFieldSize)
			e.Param = name
			return e
		}
		s.body = append(s.body, types.Pair{Key: name, Value: string(buf)})
		return nil
	}
	if s.store == nil {
		s.logger.Printf("rest: no upload store, ignoring upload %s", part.FileName())
		return nil
	}
	u, err := s.store.SavePart(ctx, part)
	if err != nil {
		return err
	}
	s.saveMu.Lock()
	s.saved = append(s.saved, u)
	s.saveMu.Unlock()
	s.uploads = append(s.uploads, u)
	return nil
}

// cleanup drops what the request left in the upload cache.
func (s *httpSource) cleanup() {
	s.saveMu.Lock()
	saved := s.saved
	s.saved = nil
	s.saveMu.Unlock()
	if s.store != nil && len(saved) > 0 {
		s.store.Remove(saved)
	}
}

// parsePairs splits an urlencoded string keeping order and duplicates.
func parsePairs(s string, skipUnsafe bool) types.Pairs {
	var pairs types.Pairs
	for _, p := range str.ParseQueryString(s, skipUnsafe) {
		pairs = append(pairs, types.Pair{Key: p.Key, Value: p.Value})
	}
	return pairs
}
