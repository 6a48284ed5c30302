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

// Package auth provides authenticators.
package auth

import (
	"encoding/base64"
	"strings"
	"sync"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/utils/str"
	"golang.org/x/crypto/bcrypt"
)

// Principal is the authenticated user. It is added to the action context's
// ambient objects, so handlers can declare a *Principal parameter.
type Principal struct {
	Name string
}

// BasicAuthenticator checks HTTP basic credentials against bcrypt hashes.
//
// The annotation an action declares with it restricts the accepted users:
// nil accepts any known user, a string or a []string names the allowed ones.
//
// Register the configured instance in the container, otherwise an empty one
// is created when an action first needs it.
type BasicAuthenticator struct {
	users map[string][]byte
	sync.RWMutex
}

// NewBasicAuthenticator creates an authenticator without users.
func NewBasicAuthenticator() *BasicAuthenticator {
	return &BasicAuthenticator{users: make(map[string][]byte)}
}

// AddUser hashes password and stores it for name.
func (a *BasicAuthenticator) AddUser(name, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.AddHashedUser(name, hash)
	return nil
}

// AddHashedUser stores an existing bcrypt hash for name.
func (a *BasicAuthenticator) AddHashedUser(name string, hash []byte) {
	a.Lock()
	defer a.Unlock()
	if a.users == nil {
		a.users = make(map[string][]byte)
	}
	a.users[name] = hash
}

func (a *BasicAuthenticator) Authenticate(annotation interface{}, ctx *types.FilterContext) (bool, error) {
	req := ctx.Request()
	if req == nil {
		return false, nil
	}
	name, password, ok := parseBasic(req.Header.Get("Authorization"))
	if !ok || !allowed(annotation, name) {
		return false, nil
	}
	a.RLock()
	hash, known := a.users[name]
	a.RUnlock()
	if !known || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return false, nil
	}
	ctx.Action.Ambient = append(ctx.Action.Ambient, &Principal{Name: name})
	return true, nil
}

func allowed(annotation interface{}, name string) bool {
	switch v := annotation.(type) {
	case nil:
		return true
	case string:
		return v == name
	case []string:
		return str.Contains(v, name)
	}
	return false
}

func parseBasic(header string) (name, password string, ok bool) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(decoded), ":")
}
