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

package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/di"
	"github.com/herdgo/herd/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func basicContext(user, password string) *types.FilterContext {
	header := http.Header{}
	if user != "" {
		header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+password)))
	}
	actx := &types.ActionContext{Context: context.Background(), Request: &types.Request{Header: header}}
	return &types.FilterContext{Context: actx.Context, Action: actx}
}

func TestBasicAuthenticator(t *testing.T) {
	a := NewBasicAuthenticator()
	require.Nil(t, a.AddUser("alice", "secret"))
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.Nil(t, err)
	a.AddHashedUser("bob", hash)

	ctx := basicContext("alice", "secret")
	ok, err := a.Authenticate(nil, ctx)
	require.Nil(t, err)
	assert.True(t, ok)
	require.Len(t, ctx.Action.Ambient, 1)
	assert.Equal(t, &Principal{Name: "alice"}, ctx.Action.Ambient[0])

	ok, _ = a.Authenticate(nil, basicContext("bob", "hunter2"))
	assert.True(t, ok)
	ok, _ = a.Authenticate("alice", basicContext("bob", "hunter2"))
	assert.False(t, ok)
	ok, _ = a.Authenticate([]string{"carol", "bob"}, basicContext("bob", "hunter2"))
	assert.True(t, ok)

	ok, _ = a.Authenticate(nil, basicContext("alice", "wrong"))
	assert.False(t, ok)
	ok, _ = a.Authenticate(nil, basicContext("mallory", "secret"))
	assert.False(t, ok)
	ok, _ = a.Authenticate(nil, basicContext("", ""))
	assert.False(t, ok)
	ok, _ = a.Authenticate(42, basicContext("alice", "secret"))
	assert.False(t, ok)

	bad := basicContext("", "")
	bad.Action.Request.Header.Set("Authorization", "Basic !!!")
	ok, _ = a.Authenticate(nil, bad)
	assert.False(t, ok)
}

func TestBasicAuthenticatorThroughContainer(t *testing.T) {
	container := di.NewContainer(types.DiscardLogger())
	a := NewBasicAuthenticator()
	require.Nil(t, a.AddUser("alice", "secret"))
	require.Nil(t, container.RegisterInstance(a))
	manager := filter.NewManager(container, types.DiscardLogger())

	action := &types.ActionMethod{
		Name:           "admin",
		Authenticators: []types.AuthenticatorRef{types.Authenticate("alice", a)},
	}
	ctx := basicContext("alice", "secret")
	assert.Nil(t, manager.RunAuthenticators(ctx.Action, action))

	err := manager.RunAuthenticators(basicContext("alice", "nope").Action, action)
	assert.True(t, types.IsKind(err, types.KindAuthenticationFailed))
}
