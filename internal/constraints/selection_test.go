package constraints

import (
	"testing"

	"github.com/cwbudde/paramfit/internal/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *params.Table {
	return params.FromValues(
		[]string{"a.0", "a.1", "b.0", "b.1", "c.0", "c.1"},
		[]float64{2, 1, 1, 3, 1, 1},
	)
}

func TestSelectionResolve(t *testing.T) {
	tbl := sampleTable()

	tests := []struct {
		name string
		sel  Selection
		want []int
	}{
		{name: "loc prefix", sel: Loc("a"), want: []int{0, 1}},
		{name: "loc full label", sel: Loc("b.1"), want: []int{3}},
		{name: "loc union keeps table order", sel: Loc("c", "a.1"), want: []int{1, 4, 5}},
		{name: "loc wildcard", sel: Loc("*.0"), want: []int{0, 2, 4}},
		{name: "query on name and value", sel: Query("name == 'b' && value > 2"), want: []int{3}},
		{name: "query on position", sel: Query("position >= 4"), want: []int{4, 5}},
		{name: "query on label", sel: Query("label in ['a.0', 'c.1']"), want: []int{0, 5}},
		{name: "func is sorted", sel: Func(func(*params.Table) []int { return []int{5, 2} }), want: []int{2, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.sel.Resolve(tbl)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectionErrors(t *testing.T) {
	tbl := sampleTable()

	tests := []struct {
		name    string
		sel     Selection
		wantErr error
	}{
		{name: "empty selection", sel: Selection{}, wantErr: ErrSelection},
		{name: "loc matches nothing", sel: Loc("z"), wantErr: ErrSelection},
		{name: "query matches nothing", sel: Query("value > 100"), wantErr: ErrSelection},
		{name: "query does not compile", sel: Query("value >"), wantErr: ErrSelection},
		{name: "query is not boolean", sel: Query("value + 1"), wantErr: ErrSelection},
		{name: "overlapping loc patterns", sel: Loc("a", "a.0"), wantErr: ErrValidation},
		{name: "func duplicates", sel: Func(func(*params.Table) []int { return []int{1, 1} }), wantErr: ErrValidation},
		{name: "func out of range", sel: Func(func(*params.Table) []int { return []int{9} }), wantErr: ErrSelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sel.Resolve(tbl)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewSelectionRequiresExactlyOne(t *testing.T) {
	_, err := NewSelection([]string{"a"}, "value > 0")
	require.ErrorIs(t, err, ErrSelection)

	_, err = NewSelection(nil, "")
	require.ErrorIs(t, err, ErrSelection)

	sel, err := NewSelection(nil, "value > 0")
	require.NoError(t, err)
	assert.Equal(t, "query=value > 0", sel.String())
}
