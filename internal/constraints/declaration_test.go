package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
- type: linear
  id: 7
  loc: a
  weights: [1, -2]
  value: 0
- kill: 7
- type: pairwise_equality
  locs: [a, b]
- type: covariance
  query: "name == 'cov'"
  bounds_distance: 0.001
- type: linear
  loc: [c.0, c.1]
  weights: 1
  lower: 0
  upper: 5
- type: fixed
  id: keep
  loc: b.0
`

func TestDecodeYAML(t *testing.T) {
	items, err := DecodeYAML([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, items, 6)

	lin, ok := items[0].(Linear)
	require.True(t, ok, "item 0 is %T", items[0])
	assert.Equal(t, ID("7"), lin.ID)
	assert.Equal(t, "loc=a", lin.Select.String())
	w, err := lin.Weights.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -2}, w)
	require.NotNil(t, lin.Value)
	assert.Equal(t, 0.0, *lin.Value)

	assert.Equal(t, Killer{Kill: "7"}, items[1])

	pw, ok := items[2].(PairwiseEquality)
	require.True(t, ok)
	require.Len(t, pw.Selects, 2)
	assert.Equal(t, "loc=b", pw.Selects[1].String())

	cov, ok := items[3].(Covariance)
	require.True(t, ok)
	assert.Equal(t, 0.001, ResolveBoundsDistance(cov.BoundsDistance))

	bounded, ok := items[4].(Linear)
	require.True(t, ok)
	w, err = bounded.Weights.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, w)
	assert.Equal(t, 5.0, *bounded.Upper)

	fixed, ok := items[5].(Fixed)
	require.True(t, ok)
	assert.Nil(t, fixed.Value)
	assert.Equal(t, ID("keep"), fixed.ID)
}

func TestDecodeJSON(t *testing.T) {
	items, err := DecodeYAML([]byte(`[{"type": "fixed", "loc": "a.0", "value": 1.5}, {"kill": 3}]`))
	require.NoError(t, err)
	require.Len(t, items, 2)

	fixed := items[0].(Fixed)
	assert.Equal(t, 1.5, *fixed.Value)
	assert.Equal(t, Killer{Kill: "3"}, items[1])
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{name: "missing type", doc: `[{loc: a}]`, wantErr: ErrValidation},
		{name: "unknown type", doc: `[{type: sum, loc: a}]`, wantErr: ErrValidation},
		{name: "killer with extra keys", doc: `[{kill: 7, type: fixed}]`, wantErr: ErrValidation},
		{name: "empty killer", doc: `[{kill: ""}]`, wantErr: ErrValidation},
		{name: "loc and query", doc: `[{type: fixed, loc: a, query: "value > 0"}]`, wantErr: ErrSelection},
		{name: "neither loc nor query", doc: `[{type: equality}]`, wantErr: ErrSelection},
		{name: "value on equality", doc: `[{type: equality, loc: a, value: 1}]`, wantErr: ErrValidation},
		{name: "weights on fixed", doc: `[{type: fixed, loc: a, weights: 1}]`, wantErr: ErrValidation},
		{name: "bounds_distance on linear", doc: `[{type: linear, loc: a, weights: 1, value: 1, bounds_distance: 1}]`, wantErr: ErrValidation},
		{name: "locs on equality", doc: `[{type: equality, locs: [a, b]}]`, wantErr: ErrValidation},
		{name: "pairwise with loc", doc: `[{type: pairwise_equality, loc: a}]`, wantErr: ErrValidation},
		{name: "pairwise with locs and queries", doc: `[{type: pairwise_equality, locs: [a], queries: ["value > 0"]}]`, wantErr: ErrSelection},
		{name: "not a list", doc: `type: fixed`, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeYAML([]byte(tt.doc))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
