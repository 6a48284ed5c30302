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

// Package dispatch drives one request from route resolution to the handler result.
//
// A request moves through these states, in order:
//
//	RouteResolution -> FilterEarly -> ParamExtraction -> Authentication ->
//	FilterBefore -> Invoke -> FilterAfter -> Done
//
// Any failure moves it to Error. A request that matches no route is looked up
// as a static file under the configured context roots.
package dispatch

import (
	"context"
	"fmt"
	"io"

	"github.com/gofrs/uuid/v5"
	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/binder"
	"github.com/herdgo/herd/filter"
	"github.com/herdgo/herd/route"
	"github.com/herdgo/herd/service"
	"github.com/herdgo/herd/utils/runtime"
	"golang.org/x/sync/errgroup"
)

// State is a step of the dispatch of one request.
type State int

const (
	StateRouteResolution State = iota
	StateFilterEarly
	StateParamExtraction
	StateAuthentication
	StateFilterBefore
	StateInvoke
	StateFilterAfter
	StateDone
	StateError
)

var stateNames = [...]string{
	"RouteResolution",
	"FilterEarly",
	"ParamExtraction",
	"Authentication",
	"FilterBefore",
	"Invoke",
	"FilterAfter",
	"Done",
	"Error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// StateListener observes state transitions. err is set only with StateError.
type StateListener func(ctx *types.ActionContext, state State, err error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithStateListener adds a state observer.
func WithStateListener(listener StateListener) Option {
	return func(d *Dispatcher) {
		if listener != nil {
			d.listeners = append(d.listeners, listener)
		}
	}
}

// Dispatcher composes the route registry, the filter pipeline, the binder and
// the service manager.
type Dispatcher struct {
	config    types.Config
	routes    *route.Registry
	filters   *filter.Manager
	services  *service.Manager
	binder    *binder.Binder
	listeners []StateListener
	logger    types.Logger
}

// New creates a Dispatcher.
func New(config types.Config, routes *route.Registry, filters *filter.Manager, services *service.Manager, b *binder.Binder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		config:   config,
		routes:   routes,
		filters:  filters,
		services: services,
		binder:   b,
		logger:   types.NewLogger(config.Logger),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch serves req. The result carries the action context, and its value is
// either what the handler returned, as replaced by after filters, or a file
// or view delegate for static content.
func (d *Dispatcher) Dispatch(ctx context.Context, req *types.Request) (result *types.ActionResult, err error) {
	actx := &types.ActionContext{Context: ctx, Request: req}
	if id, e := uuid.NewV4(); e == nil {
		actx.Id = id.String()
	}
	defer func() {
		if e := recover(); e != nil {
			result = nil
			err = &types.Error{
				Kind:    types.KindInternal,
				Message: fmt.Sprintf("dispatch %s panic: %v", req.Path, e),
				Stack:   runtime.Stack(),
			}
		}
		if err != nil {
			d.notify(actx, StateError, err)
		} else {
			d.notify(actx, StateDone, nil)
		}
	}()

	d.notify(actx, StateRouteResolution, nil)
	uri := route.ResolveURI(req.Host, req.Path)
	matched := d.routes.FindMatch(uri)
	if matched == nil {
		return d.serveStatic(actx, uri)
	}
	action, ok := matched.Handler.(*types.ActionMethod)
	if !ok {
		return nil, types.NewError(types.KindInternal, "route %s maps to %T, not an action", matched.Route.String(), matched.Handler)
	}
	actx.Route = matched.Route
	actx.Action = action
	if !action.AllowsMethod(req.Method) {
		return nil, types.NewError(types.KindMethodNotAllowed, "%s does not accept %s", action.String(), req.Method)
	}

	chain := d.filters.FindMatched(uri, action)
	chain.Prepare(actx)

	d.notify(actx, StateFilterEarly, nil)
	if err := chain.RunEarly(actx); err != nil {
		return nil, err
	}

	d.notify(actx, StateParamExtraction, nil)
	if err := d.extract(actx, matched.Parameters); err != nil {
		return nil, err
	}

	d.notify(actx, StateAuthentication, nil)
	if err := d.filters.RunAuthenticators(actx, action); err != nil {
		return nil, err
	}

	d.notify(actx, StateFilterBefore, nil)
	if err := chain.RunBefore(actx); err != nil {
		return nil, err
	}

	d.notify(actx, StateInvoke, nil)
	value, err := d.invoke(actx, action)
	if err != nil {
		return nil, err
	}

	d.notify(actx, StateFilterAfter, nil)
	return chain.RunAfter(actx, &types.ActionResult{Context: actx, Value: value})
}

// extract fills parameters, uploads and cookies. The request source is read
// concurrently for parameters and uploads.
func (d *Dispatcher) extract(actx *types.ActionContext, routeParams types.Pairs) error {
	req := actx.Request
	var params types.Pairs
	var uploads []*types.UploadFile
	if req.Source != nil {
		g, gctx := errgroup.WithContext(actx.Context)
		g.Go(func() error {
			p, err := req.Source.Parameters(gctx)
			params = p
			return err
		})
		g.Go(func() error {
			u, err := req.Source.Uploads(gctx)
			uploads = u
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}
	}
	actx.Parameters = append(params, routeParams...)
	actx.Uploads = uploads
	actx.Cookies = binder.ParseCookies(d.config.CookieHeader(req.Header))
	return nil
}

func (d *Dispatcher) invoke(actx *types.ActionContext, action *types.ActionMethod) (interface{}, error) {
	var ambient []interface{}
	if action.IsWebSocket() {
		if actx.Request.Upgrade == nil {
			return nil, types.NewError(types.KindInternal, "%s needs a websocket but the transport cannot upgrade", action.String())
		}
		conn, err := actx.Request.Upgrade(actx.Context)
		if err != nil {
			return nil, types.WrapError(types.KindInternal, err, "websocket upgrade")
		}
		ambient = append(ambient, conn)
	}
	args, err := d.binder.Bind(actx, action, ambient...)
	if err != nil {
		for _, conn := range ambient {
			if c, ok := conn.(io.Closer); ok {
				_ = c.Close()
			}
		}
		return nil, err
	}
	return d.services.Invoke(actx.Context, action, args)
}

func (d *Dispatcher) notify(actx *types.ActionContext, state State, err error) {
	for _, l := range d.listeners {
		func() {
			defer func() {
				if e := recover(); e != nil {
					d.logger.Printf("dispatch: state listener panic: %v", e)
				}
			}()
			l(actx, state, err)
		}()
	}
}
