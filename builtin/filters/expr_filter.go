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

package filters

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/herdgo/herd/api/types"
)

// ExprFilter passes requests for which Expr evaluates to true, e.g.
// `header["X-Role"] == "admin" || param.token == global.token`.
type ExprFilter struct {
	types.BaseFilter
	Expr   string
	Phase  Phase
	Global map[string]string

	program *vm.Program
}

// NewExprFilter compiles expression. global is usually Config.Properties.
func NewExprFilter(expression string, phase Phase, global map[string]string) (*ExprFilter, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Expr: expression, Phase: phase, Global: global, program: program}, nil
}

func (x *ExprFilter) Early(ctx *types.FilterContext) (bool, error) {
	if x.Phase != PhaseEarly {
		return true, nil
	}
	return x.eval(ctx)
}

func (x *ExprFilter) Before(ctx *types.FilterContext) (bool, error) {
	if x.Phase != PhaseBefore {
		return true, nil
	}
	return x.eval(ctx)
}

func (x *ExprFilter) eval(ctx *types.FilterContext) (bool, error) {
	out, err := vm.Run(x.program, Env(ctx, x.Global))
	if err != nil {
		return false, types.WrapError(types.KindInternal, err, "expr filter "+x.Expr)
	}
	result, ok := out.(bool)
	return ok && result, nil
}
