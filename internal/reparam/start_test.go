package reparam

import (
	"errors"
	"testing"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startItems() []constraints.Item {
	return []constraints.Item{
		constraints.Fixed{Header: constraints.Header{Select: constraints.Loc("b.0")}, Value: constraints.Float(7)},
		constraints.Equality{Header: constraints.Header{Select: constraints.Loc("c")}},
	}
}

func TestStartHelpersSplit(t *testing.T) {
	free, fixed, err := StartHelpers(sampleTable(), startItems())
	require.NoError(t, err)

	freeLabels := make([]string, 0, free.Len())
	for _, l := range free.Labels() {
		freeLabels = append(freeLabels, l.String())
	}
	assert.Equal(t, []string{"a.0", "a.1", "b.1", "c.0"}, freeLabels)

	require.Equal(t, 2, fixed.Len())
	assert.Equal(t, "b.0", fixed.Entries[0].Label.String())
	assert.Equal(t, 7.0, fixed.Entries[0].Value)
	assert.Equal(t, "c.1", fixed.Entries[1].Label.String())
	assert.Equal(t, 1.0, fixed.Entries[1].Value)
}

func TestFromStartHelpersBroadcastsEquality(t *testing.T) {
	table := sampleTable()
	items := startItems()
	free, fixed, err := StartHelpers(table, items)
	require.NoError(t, err)

	idx := free.Index(params.ParseLabel("c.0"))
	require.GreaterOrEqual(t, idx, 0)
	free.Entries[idx].Value = 4

	full, err := FromStartHelpers(free, fixed, table.Labels(), items)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1, 7, 3, 4, 4}, full.Values())

	rp, err := Build(full, items)
	require.NoError(t, err)
	assert.Equal(t, 4, rp.Dim())
}

func TestFromStartHelpersMissingLabel(t *testing.T) {
	table := sampleTable()
	free, fixed, err := StartHelpers(table, startItems())
	require.NoError(t, err)

	free.Entries = free.Entries[1:]
	_, err = FromStartHelpers(free, fixed, table.Labels(), startItems())
	require.Error(t, err)
	assert.True(t, errors.Is(err, constraints.ErrValidation))
}
