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

// Package herd is a reflection driven request dispatch engine.
//
// Services declare their actions, the engine derives a route for each one,
// and requests are dispatched through filters, authenticators and the
// parameter binder to the action method.
//
// # Usage
//
//	type Greeter struct{}
//
//	func (g *Greeter) Actions() []types.ActionDef {
//		return []types.ActionDef{
//			{Method: "Greet", Params: []types.ParamDef{types.Param("name", validator.NotNull)}, HTTPMethods: []string{"GET"}},
//		}
//	}
//
//	func (g *Greeter) Greet(name string) string {
//		return "Hello, " + name + "!"
//	}
//
//	h := herd.New(types.WithContextRoots("./www"))
//	_ = h.AddService(&Greeter{})
//	_ = h.Init()
//	restEndpoint := h.Handler()
//	restEndpoint.Config.Addr = ":9090"
//	_ = restEndpoint.Start()
//
// GET /Greeter/greet?name=world now answers "Hello, world!".
package herd

import (
	"context"
	"sync"

	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/binder"
	"github.com/herdgo/herd/di"
	"github.com/herdgo/herd/dispatch"
	"github.com/herdgo/herd/endpoint/rest"
	"github.com/herdgo/herd/filter"
	"github.com/herdgo/herd/route"
	"github.com/herdgo/herd/service"
	"github.com/herdgo/herd/upload"
)

// Herd wires the registries, the binder and the dispatcher of one application.
type Herd struct {
	Config types.Config

	container  *di.Container
	routes     *route.Registry
	filters    *filter.Manager
	services   *service.Manager
	binder     *binder.Binder
	dispatcher *dispatch.Dispatcher
	uploads    *upload.Store
	janitor    *upload.Janitor
	rest       *rest.Rest
	mu         sync.Mutex
}

// New creates an engine configured by opts.
func New(opts ...types.Option) *Herd {
	return NewWithConfig(types.NewConfig(opts...))
}

// NewWithConfig creates an engine from a ready config, e.g. one returned by
// types.LoadConfig. dispatchOpts are passed to the dispatcher.
func NewWithConfig(config types.Config, dispatchOpts ...dispatch.Option) *Herd {
	config.Logger = types.NewLogger(config.Logger)
	h := &Herd{Config: config}
	h.container = di.NewContainer(config.Logger)
	h.routes = route.NewRegistry(config.Logger)
	h.filters = filter.NewManager(h.container, config.Logger)
	h.services = service.NewManager(h.routes, h.container, config.Logger)
	h.binder = binder.New(config.Logger)
	h.dispatcher = dispatch.New(config, h.routes, h.filters, h.services, h.binder, dispatchOpts...)
	h.uploads = upload.NewStore(config.UploadCacheDir, config.MaxUploadFileSize, config.Logger)
	h.janitor = upload.NewJanitor(h.uploads, config.UploadCacheCleanSpec, config.UploadCacheMaxAge, config.Logger)
	return h
}

func (h *Herd) Container() *di.Container {
	return h.container
}

func (h *Herd) Routes() *route.Registry {
	return h.routes
}

func (h *Herd) Filters() *filter.Manager {
	return h.filters
}

func (h *Herd) Services() *service.Manager {
	return h.services
}

func (h *Herd) Dispatcher() *dispatch.Dispatcher {
	return h.dispatcher
}

func (h *Herd) Uploads() *upload.Store {
	return h.uploads
}

// AddService registers a service type. Instances come from the container.
func (h *Herd) AddService(prototype types.Service) error {
	return h.services.AddService(prototype, nil)
}

// AddServiceAt registers a service type under a custom service route.
func (h *Herd) AddServiceAt(prototype types.Service, serviceRoute types.RouteDefinition) error {
	return h.services.AddService(prototype, &serviceRoute)
}

// AddServiceInstance registers a ready service instance.
func (h *Herd) AddServiceInstance(svc types.Service) error {
	return h.services.AddServiceInstance(svc, nil)
}

// AddFilter registers a filter.
func (h *Herd) AddFilter(desc filter.Descriptor) error {
	return h.filters.AddFilter(desc)
}

// Provide registers a component constructor in the container.
func (h *Herd) Provide(ctor interface{}, mode types.InstantiateType, eager bool) error {
	return h.container.Provide(ctor, mode, eager)
}

// Init creates eager components and singleton services and starts the upload janitor.
func (h *Herd) Init() error {
	if err := h.container.Init(); err != nil {
		return err
	}
	if err := h.services.InstantiateSingletonServices(); err != nil {
		return err
	}
	if h.Config.UploadCacheCleanSpec != "" {
		if err := h.janitor.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch serves one request.
func (h *Herd) Dispatch(ctx context.Context, req *types.Request) (*types.ActionResult, error) {
	return h.dispatcher.Dispatch(ctx, req)
}

// Handler returns the HTTP endpoint serving this engine, created on first use.
func (h *Herd) Handler() *rest.Rest {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rest == nil {
		h.rest = &rest.Rest{
			Dispatcher: h.dispatcher,
			Uploads:    h.uploads,
			Logger:     h.Config.Logger,
		}
	}
	return h.rest
}

// Reset removes every route, filter, service and component.
func (h *Herd) Reset() {
	h.routes.Reset()
	h.filters.Reset()
	h.services.Clear()
	h.container.Clear()
}

// Stop stops the janitor and the HTTP endpoint, if started.
func (h *Herd) Stop() error {
	h.janitor.Stop()
	h.mu.Lock()
	r := h.rest
	h.mu.Unlock()
	if r != nil {
		return r.Stop()
	}
	return nil
}

// Default is the engine used by the package level functions.
var Default = New()

// AddService registers a service type on the Default engine.
func AddService(prototype types.Service) error {
	return Default.AddService(prototype)
}

// AddServiceInstance registers a service instance on the Default engine.
func AddServiceInstance(svc types.Service) error {
	return Default.AddServiceInstance(svc)
}

// AddFilter registers a filter on the Default engine.
func AddFilter(desc filter.Descriptor) error {
	return Default.AddFilter(desc)
}

// Dispatch serves one request on the Default engine.
func Dispatch(ctx context.Context, req *types.Request) (*types.ActionResult, error) {
	return Default.Dispatch(ctx, req)
}

// Stop stops the Default engine.
func Stop() error {
	return Default.Stop()
}
