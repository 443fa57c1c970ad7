package params

import (
	"fmt"
	"math"
	"strings"
)

// Label identifies a parameter by its path in a hierarchical namespace,
// e.g. {"sd", "wage"} for "sd.wage".
type Label []string

// ParseLabel splits a dotted label string into its components.
func ParseLabel(s string) Label {
	if s == "" {
		return Label{}
	}
	return Label(strings.Split(s, "."))
}

func (l Label) String() string {
	return strings.Join(l, ".")
}

// Equal reports whether two labels have identical components.
func (l Label) Equal(other Label) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Entry is one row of the external parameter vector.
type Entry struct {
	Label Label
	Value float64
	Lower float64 // -Inf when unbounded
	Upper float64 // +Inf when unbounded
}

// NewEntry creates an unbounded entry.
func NewEntry(label string, value float64) Entry {
	return Entry{
		Label: ParseLabel(label),
		Value: value,
		Lower: math.Inf(-1),
		Upper: math.Inf(1),
	}
}

// NewBoundedEntry creates an entry with the given box bounds.
func NewBoundedEntry(label string, value, lower, upper float64) Entry {
	e := NewEntry(label, value)
	e.Lower = lower
	e.Upper = upper
	return e
}

// Table is the ordered external parameter vector. Row order is significant and
// never changes during one optimization run.
type Table struct {
	Entries []Entry
}

// NewTable creates a table from entries. The slice is copied.
func NewTable(entries ...Entry) *Table {
	return &Table{Entries: append([]Entry{}, entries...)}
}

// FromValues creates an unbounded table with labels taken from names.
func FromValues(names []string, values []float64) *Table {
	entries := make([]Entry, len(values))
	for i, v := range values {
		entries[i] = NewEntry(names[i], v)
	}
	return &Table{Entries: entries}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.Entries)
}

// Values returns a copy of the value column.
func (t *Table) Values() []float64 {
	out := make([]float64, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Value
	}
	return out
}

// Lowers returns a copy of the lower bound column.
func (t *Table) Lowers() []float64 {
	out := make([]float64, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Lower
	}
	return out
}

// Uppers returns a copy of the upper bound column.
func (t *Table) Uppers() []float64 {
	out := make([]float64, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Upper
	}
	return out
}

// Labels returns the label column.
func (t *Table) Labels() []Label {
	out := make([]Label, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Label
	}
	return out
}

// WithValues returns a copy of the table whose value column is replaced by
// values. Labels and bounds are preserved.
func (t *Table) WithValues(values []float64) *Table {
	if len(values) != len(t.Entries) {
		panic(fmt.Sprintf("params: %d values for %d entries", len(values), len(t.Entries)))
	}
	entries := make([]Entry, len(t.Entries))
	copy(entries, t.Entries)
	for i := range entries {
		entries[i].Value = values[i]
	}
	return &Table{Entries: entries}
}

// Index returns the position of label, or -1.
func (t *Table) Index(label Label) int {
	for i, e := range t.Entries {
		if e.Label.Equal(label) {
			return i
		}
	}
	return -1
}

// Validate checks that labels are unique, values are finite and bounds are
// ordered. Whether a value lies inside its bounds is a feasibility question
// answered when the reparametrization is built.
func (t *Table) Validate() error {
	seen := make(map[string]int, len(t.Entries))
	for i, e := range t.Entries {
		key := e.Label.String()
		if j, ok := seen[key]; ok {
			return &TableError{Position: i, Label: key, Reason: fmt.Sprintf("duplicate label (first at position %d)", j)}
		}
		seen[key] = i

		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			return &TableError{Position: i, Label: key, Reason: "value must be finite"}
		}
		if math.IsNaN(e.Lower) || math.IsNaN(e.Upper) {
			return &TableError{Position: i, Label: key, Reason: "bounds cannot be NaN"}
		}
		if e.Lower > e.Upper {
			return &TableError{Position: i, Label: key, Reason: fmt.Sprintf("lower bound %g exceeds upper bound %g", e.Lower, e.Upper)}
		}
	}
	return nil
}

// TableError describes an invalid parameter row.
type TableError struct {
	Position int
	Label    string
	Reason   string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("params: entry %d (%s): %s", e.Position, e.Label, e.Reason)
}
