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

package filter

import (
	"github.com/herdgo/herd/api/types"
)

// Invocation is one filter applied to one request.
type Invocation struct {
	entry      *entry
	parameters map[string]string
	// Filter is the instance serving this request, set by Prepare.
	Filter types.Filter
	// Context is shared by the three phases of this invocation.
	Context *types.FilterContext
}

// Name is the filter's type name.
func (inv *Invocation) Name() string {
	return inv.entry.name
}

// Chain is the ordered list of filters of one request.
type Chain []*Invocation

// Prepare creates the filter instances and their contexts.
func (c Chain) Prepare(ctx *types.ActionContext) {
	for _, inv := range c {
		inv.Filter = inv.entry.newInstance()
		inv.Context = &types.FilterContext{
			Context:    ctx.Context,
			Parameters: inv.parameters,
			Action:     ctx,
		}
	}
}

// RunEarly calls Early in order. The first false stops the chain with a FilterRejected error.
func (c Chain) RunEarly(ctx *types.ActionContext) error {
	return c.run(ctx, "early", types.Filter.Early)
}

// RunBefore calls Before in order. The first false stops the chain with a FilterRejected error.
func (c Chain) RunBefore(ctx *types.ActionContext) error {
	return c.run(ctx, "before", types.Filter.Before)
}

func (c Chain) run(ctx *types.ActionContext, phase string, hook func(types.Filter, *types.FilterContext) (bool, error)) error {
	for _, inv := range c {
		if inv.Filter == nil {
			continue
		}
		inv.Context.Action = ctx
		inv.Context.Context = ctx.Context
		ok, err := hook(inv.Filter, inv.Context)
		if err != nil {
			return err
		}
		if !ok {
			return types.NewError(types.KindFilterRejected, "filter %s stopped the request in %s", inv.Name(), phase)
		}
	}
	return nil
}

// RunAfter calls After in order. A filter returning a result replaces the current one.
func (c Chain) RunAfter(ctx *types.ActionContext, result *types.ActionResult) (*types.ActionResult, error) {
	for _, inv := range c {
		if inv.Filter == nil {
			continue
		}
		inv.Context.Action = ctx
		inv.Context.Result = result
		r, err := inv.Filter.After(inv.Context)
		if err != nil {
			return result, err
		}
		if r != nil {
			if r.Context == nil {
				r.Context = ctx
			}
			result = r
		}
	}
	return result, nil
}

// RunAuthenticators resolves the authenticators of action through the container and runs them in order.
func (m *Manager) RunAuthenticators(ctx *types.ActionContext, action *types.ActionMethod) error {
	if action == nil || len(action.Authenticators) == 0 {
		return nil
	}
	fc := &types.FilterContext{Context: ctx.Context, Action: ctx}
	for _, ref := range action.Authenticators {
		obj, err := m.container.Get(ref.Type)
		if err != nil {
			m.logger.Printf("filter: failed to get authenticator %v: %v", ref.Type, err)
			return types.WrapError(types.KindInternal, err, "authenticator "+ref.Type.String())
		}
		auth, ok := obj.(types.Authenticator)
		if !ok {
			return types.NewError(types.KindInternal, "%v is not an authenticator", ref.Type)
		}
		passed, err := auth.Authenticate(ref.Annotation, fc)
		if err != nil {
			return err
		}
		if !passed {
			return types.NewError(types.KindAuthenticationFailed, "authentication failed for %s", action.String())
		}
	}
	return nil
}
