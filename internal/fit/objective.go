package fit

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/cwbudde/paramfit/internal/params"
)

// ExprCriterion compiles a numeric expression into a criterion. The
// expression sees the parameter vector as x (table order) and as p, a map from
// dotted label to value, plus the math helpers exp, log, sqrt and pow.
//
//	(p["mean"] - 3)^2 + p["sd"]^2
//
// The program is compiled once; each evaluation builds its own environment,
// so the criterion may be called concurrently.
func ExprCriterion(expression string, labels []params.Label) (Criterion, error) {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.String()
	}

	program, err := expr.Compile(expression, expr.Env(objectiveEnv(names, make([]float64, len(names)))), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("compile objective: %w", err)
	}
	return exprCriterion(program, names), nil
}

func exprCriterion(program *vm.Program, names []string) Criterion {
	return func(x []float64) (float64, error) {
		if len(x) != len(names) {
			return 0, fmt.Errorf("got %d values for %d parameters", len(x), len(names))
		}
		out, err := expr.Run(program, objectiveEnv(names, x))
		if err != nil {
			return 0, fmt.Errorf("evaluate objective: %w", err)
		}
		v, ok := out.(float64)
		if !ok {
			return 0, fmt.Errorf("objective returned %T, want float64", out)
		}
		return v, nil
	}
}

func objectiveEnv(names []string, x []float64) map[string]any {
	p := make(map[string]float64, len(names))
	for i, n := range names {
		p[n] = x[i]
	}
	return map[string]any{
		"x":    x,
		"p":    p,
		"exp":  math.Exp,
		"log":  math.Log,
		"sqrt": math.Sqrt,
		"pow":  math.Pow,
	}
}
