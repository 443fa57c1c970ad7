package fit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/params"
)

func TestSumOfSquares(t *testing.T) {
	assert.Equal(t, 0.0, SumOfSquares(nil))
	assert.Equal(t, 14.0, SumOfSquares([]float64{1, -2, 3}))
}

func TestTargetResiduals(t *testing.T) {
	tbl := params.FromValues([]string{"a", "b.x", "c"}, []float64{0, 0, 0})

	res, err := TargetResiduals(tbl, map[string]float64{"b.x": 2, "a": 1})
	require.NoError(t, err)

	r, err := res([]float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3}, r)

	cost, err := res.Criterion()([]float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 18.0, cost)

	_, err = res([]float64{1})
	require.ErrorIs(t, err, constraints.ErrValidation)

	_, err = TargetResiduals(tbl, map[string]float64{"zzz": 1})
	require.ErrorIs(t, err, constraints.ErrValidation)
	assert.Contains(t, err.Error(), "zzz")
	_, err = TargetResiduals(tbl, nil)
	require.ErrorIs(t, err, constraints.ErrValidation)
}

func TestExprCriterion(t *testing.T) {
	labels := []params.Label{params.ParseLabel("mean"), params.ParseLabel("sd.0")}

	tests := []struct {
		name string
		expr string
		x    []float64
		want float64
	}{
		{name: "map access", expr: `(p["mean"] - 3)^2 + p["sd.0"]^2`, x: []float64{1, 2}, want: 8},
		{name: "vector access", expr: `x[0] * x[1]`, x: []float64{1.5, 2}, want: 3},
		{name: "math helpers", expr: `log(exp(x[0])) + sqrt(x[1]) + pow(x[1], 2)`, x: []float64{1, 4}, want: 19},
		{name: "integer result", expr: `1`, x: []float64{0, 0}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ExprCriterion(tt.expr, labels)
			require.NoError(t, err)
			got, err := c(tt.x)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestExprCriterionErrors(t *testing.T) {
	labels := []params.Label{params.ParseLabel("a")}

	_, err := ExprCriterion(`x[0] +`, labels)
	require.Error(t, err)

	_, err = ExprCriterion(`"text"`, labels)
	require.Error(t, err)

	c, err := ExprCriterion(`x[0]`, labels)
	require.NoError(t, err)
	_, err = c([]float64{1, 2})
	require.Error(t, err)
}

func TestExprCriterionConcurrent(t *testing.T) {
	c, err := ExprCriterion(`x[0] + x[1]`, []params.Label{params.ParseLabel("a"), params.ParseLabel("b")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]float64, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c([]float64{float64(i), 1})
			if err == nil {
				results[i] = v
			}
		}(i)
	}
	wg.Wait()
	for i, v := range results {
		assert.Equal(t, float64(i+1), v)
	}
}
