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

// Package upload caches uploaded files on disk for the duration of a request.
package upload

import (
	"context"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/herdgo/herd/api/types"
)

// Store writes uploads into the cache directory under random names.
type Store struct {
	dir     string
	maxSize int64
	logger  types.Logger
}

// NewStore creates a Store. maxSize <= 0 disables the size check.
func NewStore(dir string, maxSize int64, logger types.Logger) *Store {
	return &Store{dir: dir, maxSize: maxSize, logger: types.NewLogger(logger)}
}

// Dir is the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save copies r into the cache. A file larger than the limit is removed and
// reported as UploadOversize.
func (s *Store) Save(ctx context.Context, field, filename, contentType string, r io.Reader) (*types.UploadFile, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, types.WrapError(types.KindInternal, err, "create upload cache")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, types.WrapError(types.KindInternal, err, "upload id")
	}
	path := filepath.Join(s.dir, id.String()+strings.ToLower(filepath.Ext(filename)))
	f, err := os.Create(path)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, err, "create upload file")
	}

	src := io.Reader(&ctxReader{ctx: ctx, r: r})
	if s.maxSize > 0 {
		src = io.LimitReader(src, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, types.WrapError(types.KindInternal, err, "store upload "+filename)
	}
	if s.maxSize > 0 && n > s.maxSize {
		_ = os.Remove(path)
		e := types.NewError(types.KindUploadOversize, "upload %s exceeds %d bytes", filename, s.maxSize)
		e.Param = filename
		return nil, e
	}
	return &types.UploadFile{
		ParameterName: field,
		Filename:      filename,
		Path:          path,
		Size:          n,
		ContentType:   contentType,
	}, nil
}

// SavePart streams one multipart file part into the cache.
func (s *Store) SavePart(ctx context.Context, part *multipart.Part) (*types.UploadFile, error) {
	return s.Save(ctx, part.FormName(), part.FileName(), part.Header.Get("Content-Type"), part)
}

// Remove deletes cached uploads, ignoring files already gone.
func (s *Store) Remove(files []*types.UploadFile) {
	for _, u := range files {
		if err := os.Remove(u.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Printf("upload: remove %s: %v", u.Path, err)
		}
	}
}

// Purge removes cached files last modified before now minus maxAge.
func (s *Store) Purge(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	deadline := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(deadline) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
