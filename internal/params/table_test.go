package params

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	assert.Equal(t, Label{"sd", "wage"}, ParseLabel("sd.wage"))
	assert.Equal(t, Label{}, ParseLabel(""))
	assert.Equal(t, "sd.wage", ParseLabel("sd.wage").String())
	assert.True(t, ParseLabel("a.b").Equal(Label{"a", "b"}))
	assert.False(t, ParseLabel("a.b").Equal(Label{"a"}))
}

func TestTableColumns(t *testing.T) {
	tbl := NewTable(
		NewEntry("a", 1),
		NewBoundedEntry("b", 2, 0, 5),
	)

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []float64{1, 2}, tbl.Values())
	assert.Equal(t, []float64{math.Inf(-1), 0}, tbl.Lowers())
	assert.Equal(t, []float64{math.Inf(1), 5}, tbl.Uppers())
	assert.Equal(t, 1, tbl.Index(Label{"b"}))
	assert.Equal(t, -1, tbl.Index(Label{"c"}))
}

func TestWithValuesKeepsBounds(t *testing.T) {
	tbl := NewTable(NewBoundedEntry("b", 2, 0, 5))
	out := tbl.WithValues([]float64{3})

	assert.Equal(t, 3.0, out.Entries[0].Value)
	assert.Equal(t, 5.0, out.Entries[0].Upper)
	assert.Equal(t, 2.0, tbl.Entries[0].Value, "original must not change")

	assert.Panics(t, func() { tbl.WithValues([]float64{1, 2}) })
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr bool
	}{
		{name: "valid", entries: []Entry{NewEntry("a", 1), NewBoundedEntry("b", 9, 0, 5)}},
		{name: "duplicate label", entries: []Entry{NewEntry("a", 1), NewEntry("a", 2)}, wantErr: true},
		{name: "nan value", entries: []Entry{NewEntry("a", math.NaN())}, wantErr: true},
		{name: "infinite value", entries: []Entry{NewEntry("a", math.Inf(1))}, wantErr: true},
		{name: "nan bound", entries: []Entry{NewBoundedEntry("a", 1, math.NaN(), 2)}, wantErr: true},
		{name: "inverted bounds", entries: []Entry{NewBoundedEntry("a", 1, 2, 0)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTable(tt.entries...).Validate()
			if tt.wantErr {
				var te *TableError
				require.ErrorAs(t, err, &te)
				return
			}
			require.NoError(t, err)
		})
	}
}
