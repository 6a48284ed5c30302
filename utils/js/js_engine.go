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

// Package js runs JavaScript functions on pooled goja runtimes.
//
// A script is compiled once. Each runtime in the pool runs it once when
// created, so the functions it declares can then be called with Execute.
// Config.Properties are visible to scripts as `global`, and calls are
// interrupted after Config.ScriptMaxExecutionTime.
package js

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/herdgo/herd/api/types"
)

// GlobalKey is the name under which Config.Properties are exposed.
const GlobalKey = "global"

// GojaJsEngine goja js engine
type GojaJsEngine struct {
	vmPool  sync.Pool
	config  types.Config
	program *goja.Program
}

// NewGojaJsEngine compiles jsScript. vars are set on every runtime before the script runs.
func NewGojaJsEngine(config types.Config, jsScript string, vars map[string]interface{}) (*GojaJsEngine, error) {
	program, err := goja.Compile("", jsScript, true)
	if err != nil {
		return nil, err
	}
	config.Logger = types.NewLogger(config.Logger)
	g := &GojaJsEngine{config: config, program: program}
	g.vmPool = sync.Pool{
		New: func() interface{} {
			return g.newVm(vars)
		},
	}
	return g, nil
}

func (g *GojaJsEngine) newVm(vars map[string]interface{}) *goja.Runtime {
	vm := goja.New()
	for k, v := range vars {
		if err := vm.Set(k, v); err != nil {
			g.config.Logger.Printf("js: set var %s error: %s", k, err.Error())
		}
	}
	if len(g.config.Properties) != 0 {
		if err := vm.Set(GlobalKey, g.config.Properties); err != nil {
			g.config.Logger.Printf("js: set global properties error: %s", err.Error())
		}
	}

	timer := g.startTimeout(vm)
	_, err := vm.RunProgram(g.program)
	g.stopTimeout(timer)
	if err != nil {
		g.config.Logger.Printf("js vm error: %s", err.Error())
	}
	return vm
}

// Execute calls the script function functionName and returns its exported result.
func (g *GojaJsEngine) Execute(functionName string, argumentList ...interface{}) (out interface{}, err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%s", caught)
		}
	}()

	vm := g.vmPool.Get().(*goja.Runtime)
	timer := g.startTimeout(vm)
	defer func() {
		g.stopTimeout(timer)
		// an interrupted runtime must not go back to the pool with its flag set
		vm.ClearInterrupt()
		g.vmPool.Put(vm)
	}()

	f, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, errors.New(functionName + " is not a function")
	}
	params := make([]goja.Value, len(argumentList))
	for i, v := range argumentList {
		params[i] = vm.ToValue(v)
	}
	res, err := f(goja.Undefined(), params...)
	if err != nil {
		return nil, err
	}
	return res.Export(), nil
}

func (g *GojaJsEngine) startTimeout(vm *goja.Runtime) *time.Timer {
	if g.config.ScriptMaxExecutionTime <= 0 {
		return nil
	}
	return time.AfterFunc(g.config.ScriptMaxExecutionTime, func() {
		vm.Interrupt("execution timeout")
	})
}

func (g *GojaJsEngine) stopTimeout(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
