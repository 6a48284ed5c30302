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

// Package rest serves a Dispatcher over HTTP and websocket.
//
//	restEndpoint := &rest.Rest{Config: rest.Config{Addr: ":9090"}, Dispatcher: d}
//	restEndpoint.GET("/healthz", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
//		w.WriteHeader(http.StatusOK)
//	})
//	_ = restEndpoint.Start()
//
// Routes added with AddRouter are served by httprouter directly. Every other
// request goes to the dispatcher.
package rest

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/herdgo/herd/api/types"
	"github.com/herdgo/herd/dispatch"
	"github.com/herdgo/herd/upload"
	"github.com/julienschmidt/httprouter"
)

// Config is the listener configuration.
type Config struct {
	Addr        string
	CertFile    string
	CertKeyFile string
	// AllowOrigins are the origins answered with CORS headers, "*" for any.
	// localhost origins are always allowed.
	AllowOrigins []string
}

// Rest is the HTTP endpoint.
type Rest struct {
	Config     Config
	Dispatcher *dispatch.Dispatcher
	// Uploads stores multipart files. Nil ignores uploads.
	Uploads *upload.Store
	// Writer defaults to DefaultWriter.
	Writer   ResultWriter
	Upgrader websocket.Upgrader
	Logger   types.Logger
	Server   *http.Server

	router *httprouter.Router
	mu     sync.Mutex
}

// Router returns the underlying router, creating it on first use.
func (r *Rest) Router() *httprouter.Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.router == nil {
		r.router = httprouter.New()
		r.router.NotFound = http.HandlerFunc(r.dispatch)
		r.router.HandleMethodNotAllowed = false
	}
	return r.router
}

func (r *Rest) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Router().ServeHTTP(w, req)
}

// AddRouter registers a route served without the dispatcher.
//
// For GET, POST, PUT, PATCH and DELETE requests the respective shortcut
// functions can be used.
func (r *Rest) AddRouter(method, path string, handle httprouter.Handle) *Rest {
	r.Router().Handle(method, path, handle)
	return r
}

func (r *Rest) GET(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodGet, path, handle)
}

func (r *Rest) HEAD(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodHead, path, handle)
}

func (r *Rest) OPTIONS(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodOptions, path, handle)
}

func (r *Rest) POST(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodPost, path, handle)
}

func (r *Rest) PUT(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodPut, path, handle)
}

func (r *Rest) PATCH(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodPatch, path, handle)
}

func (r *Rest) DELETE(path string, handle httprouter.Handle) *Rest {
	return r.AddRouter(http.MethodDelete, path, handle)
}

// Start listens on Config.Addr and serves in the background.
func (r *Rest) Start() error {
	logger := r.logger()
	r.Server = &http.Server{Addr: r.Config.Addr, Handler: r}
	isTls := r.Config.CertKeyFile != "" && r.Config.CertFile != ""
	addr := r.Config.Addr
	if addr == "" {
		if isTls {
			addr = ":https"
		} else {
			addr = ":http"
		}
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	server := r.Server
	if isTls {
		logger.Printf("starting server with TLS on :%s", r.Config.Addr)
		go func() {
			if err := server.ServeTLS(ln, r.Config.CertFile, r.Config.CertKeyFile); err != nil && err != http.ErrServerClosed {
				logger.Printf("rest: serve: %v", err)
			}
		}()
	} else {
		logger.Printf("starting server on :%s", r.Config.Addr)
		go func() {
			if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
				logger.Printf("rest: serve: %v", err)
			}
		}()
	}
	return nil
}

// Stop shuts the server down gracefully.
func (r *Rest) Stop() error {
	if r.Server == nil {
		return nil
	}
	return r.Server.Shutdown(context.Background())
}

func (r *Rest) logger() types.Logger {
	return types.NewLogger(r.Logger)
}

func (r *Rest) writer() ResultWriter {
	if r.Writer == nil {
		return DefaultWriter{}
	}
	return r.Writer
}

func (r *Rest) dispatch(w http.ResponseWriter, req *http.Request) {
	defer func() {
		// keep the server alive
		if e := recover(); e != nil {
			r.logger().Printf("rest handler err :%v", e)
		}
	}()
	if r.cors(w, req) {
		return
	}

	source := newHTTPSource(req, r.Uploads, r.logger())
	defer source.cleanup()

	var conn *websocket.Conn
	request := &types.Request{
		Method:   req.Method,
		Scheme:   "http",
		Host:     req.Host,
		Path:     req.URL.Path,
		Header:   req.Header,
		Source:   source,
		Raw:      req,
		Response: w,
		Upgrade: func(ctx context.Context) (interface{}, error) {
			c, err := r.Upgrader.Upgrade(w, req, nil)
			if err != nil {
				return nil, err
			}
			conn = c
			return c, nil
		},
	}
	if req.TLS != nil {
		request.Scheme = "https"
	}

	result, err := r.Dispatcher.Dispatch(req.Context(), request)
	if conn != nil {
		// the response now belongs to the websocket
		defer conn.Close()
		if err != nil {
			r.logger().Printf("rest: websocket %s: %v", req.URL.Path, err)
			return
		}
		if s, ok := result.Value.(string); ok && s != "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(s))
		}
		return
	}
	if err != nil {
		r.writer().WriteError(w, req, err)
		return
	}
	if err := r.writer().WriteResult(w, req, result); err != nil {
		r.writer().WriteError(w, req, err)
	}
}

// cors adds CORS headers for allowed origins and reports whether the request
// was a preflight that has been answered.
func (r *Rest) cors(w http.ResponseWriter, req *http.Request) bool {
	origin := req.Header.Get("Origin")
	if origin == "" || !r.allowOrigin(origin) {
		return false
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Add("Vary", "Origin")
	if v := req.Header.Get("Access-Control-Request-Headers"); v != "" {
		h.Set("Access-Control-Allow-Headers", v)
	}
	if v := req.Header.Get("Access-Control-Request-Method"); v != "" {
		h.Set("Access-Control-Allow-Methods", v)
	}
	if req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != "" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func (r *Rest) allowOrigin(origin string) bool {
	if u, err := url.Parse(origin); err == nil {
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
	}
	for _, allowed := range r.Config.AllowOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
