package constraints

import "fmt"

// Kind names a constraint type.
type Kind string

const (
	KindFixed            Kind = "fixed"
	KindEquality         Kind = "equality"
	KindPairwiseEquality Kind = "pairwise_equality"
	KindIncreasing       Kind = "increasing"
	KindDecreasing       Kind = "decreasing"
	KindProbability      Kind = "probability"
	KindCovariance       Kind = "covariance"
	KindSDCorr           Kind = "sdcorr"
	KindLinear           Kind = "linear"
)

// Kinds lists every supported constraint kind.
var Kinds = []Kind{
	KindFixed, KindEquality, KindPairwiseEquality, KindIncreasing, KindDecreasing,
	KindProbability, KindCovariance, KindSDCorr, KindLinear,
}

// ParseKind validates a declared type string.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown constraint type %q", s)}
}

// IsCovarianceLike reports whether positions of this kind are exclusive.
func (k Kind) IsCovarianceLike() bool {
	return k == KindCovariance || k == KindSDCorr
}

// IsEqualityLike reports whether constraints of this kind may be composed
// with each other on overlapping positions.
func (k Kind) IsEqualityLike() bool {
	return k == KindEquality || k == KindPairwiseEquality
}

// ID identifies a declared constraint so that a Killer can remove it.
// The zero value means the constraint has no id.
type ID string

// Item is one element of a declared constraint list: either a Constraint or a
// Killer.
type Item interface {
	isItem()
}

// Killer removes every declared constraint carrying the same id. It is never
// part of the resolved constraint set.
type Killer struct {
	Kill ID
}

func (Killer) isItem() {}

// Header holds the fields every constraint carries.
type Header struct {
	ID     ID
	Select Selection
}

func (Header) isItem() {}

func (h Header) header() Header { return h }

// Constraint is the tagged union of the nine constraint kinds.
type Constraint interface {
	Item
	Kind() Kind
	header() Header
}

// Describe renders a constraint for error messages and logs.
func Describe(c Constraint) string {
	if id := c.header().ID; id != "" {
		return fmt.Sprintf("%s constraint %q", c.Kind(), id)
	}
	return fmt.Sprintf("%s constraint", c.Kind())
}

// Fixed pins the selected entries to Value, or to their current values when
// Value is nil.
type Fixed struct {
	Header
	Value *float64
}

func (Fixed) Kind() Kind { return KindFixed }

// Equality forces all selected entries to share one value.
type Equality struct {
	Header
}

func (Equality) Kind() Kind { return KindEquality }

// PairwiseEquality forces the i-th entries of every selection to be equal.
// All selections must resolve to the same number of positions.
type PairwiseEquality struct {
	Header
	Selects []Selection
}

func (PairwiseEquality) Kind() Kind { return KindPairwiseEquality }

// Increasing forces the selected entries to be weakly increasing in table order.
// Only the first selected entry may carry bounds; bounds on any later entry are
// a ConflictError.
type Increasing struct {
	Header
}

func (Increasing) Kind() Kind { return KindIncreasing }

// Decreasing forces the selected entries to be weakly decreasing in table order.
// Only the first selected entry may carry bounds; bounds on any later entry are
// a ConflictError.
type Decreasing struct {
	Header
}

func (Decreasing) Kind() Kind { return KindDecreasing }

// Probability forces the selected entries to be non-negative and sum to one.
// Any start point on the simplex is accepted, including ones with zero
// entries.
type Probability struct {
	Header
}

func (Probability) Kind() Kind { return KindProbability }

// DefaultBoundsDistance is the lower bound on Cholesky diagonal entries when a
// covariance or sdcorr constraint leaves BoundsDistance unset.
const DefaultBoundsDistance = 1e-8

// Covariance declares that the selected entries are the lower triangle of a
// positive definite covariance matrix, stored row by row.
type Covariance struct {
	Header
	BoundsDistance *float64
}

func (Covariance) Kind() Kind { return KindCovariance }

// SDCorr declares that the selected entries are k standard deviations
// followed by the lower triangle (without diagonal) of a correlation matrix.
type SDCorr struct {
	Header
	BoundsDistance *float64
}

func (SDCorr) Kind() Kind { return KindSDCorr }

// Linear constrains the weighted sum of the selected entries. With Value set
// the sum is pinned; otherwise it must lie in [Lower, Upper].
type Linear struct {
	Header
	Weights Weights
	Value   *float64
	Lower   *float64
	Upper   *float64
}

func (Linear) Kind() Kind { return KindLinear }

// ResolveBoundsDistance returns d, or DefaultBoundsDistance when d is nil.
func ResolveBoundsDistance(d *float64) float64 {
	if d == nil {
		return DefaultBoundsDistance
	}
	return *d
}

// Weights is either a scalar broadcast to every selected entry or an explicit
// vector with one weight per selected entry.
type Weights struct {
	values   []float64
	scalar   float64
	isScalar bool
}

// ScalarWeights broadcasts w to every selected entry.
func ScalarWeights(w float64) Weights {
	return Weights{scalar: w, isScalar: true}
}

// VectorWeights uses one weight per selected entry.
func VectorWeights(ws ...float64) Weights {
	return Weights{values: append([]float64{}, ws...)}
}

// IsZero reports whether no weights were declared.
func (w Weights) IsZero() bool {
	return !w.isScalar && w.values == nil
}

// Resolve expands the weights for n selected entries.
func (w Weights) Resolve(n int) ([]float64, error) {
	if w.isScalar {
		out := make([]float64, n)
		for i := range out {
			out[i] = w.scalar
		}
		return out, nil
	}
	if len(w.values) != n {
		return nil, &ValidationError{
			Field:  "weights",
			Reason: fmt.Sprintf("has %d entries but the selection has %d", len(w.values), n),
		}
	}
	return append([]float64{}, w.values...), nil
}

// Float is a convenience for the optional numeric fields.
func Float(v float64) *float64 {
	return &v
}
