package reparam

import (
	"fmt"
	"math"

	"github.com/cwbudde/paramfit/internal/constraints"
	"github.com/cwbudde/paramfit/internal/params"
	"gonum.org/v1/gonum/mat"
)

// covarianceTransform parametrizes a positive definite matrix by the lower
// triangle of its Cholesky factor, stored row by row. The external layout is
// either the lower triangle of the covariance matrix (covariance) or k standard
// deviations followed by the strict lower triangle of the correlation matrix
// (sdcorr).
type covarianceTransform struct {
	pos      []int
	k        int
	sdcorr   bool
	distance float64
	desc     string
}

func newCovariance(t *params.Table, r constraints.Resolved) (*covarianceTransform, error) {
	k, _ := constraints.TriangularDimension(len(r.Positions))
	f := &covarianceTransform{pos: r.Positions, k: k, desc: r.Describe()}
	switch c := r.Constraint.(type) {
	case constraints.Covariance:
		f.distance = constraints.ResolveBoundsDistance(c.BoundsDistance)
	case constraints.SDCorr:
		f.sdcorr = true
		f.distance = constraints.ResolveBoundsDistance(c.BoundsDistance)
	}

	ext := gather(t.Values(), r.Positions)
	if f.sdcorr {
		for i := 0; i < k; i++ {
			if ext[i] <= 0 {
				return nil, &constraints.InfeasibleStartError{
					Constraint: f.desc,
					Reason:     fmt.Sprintf("standard deviation %d is %g, want a positive value", i, ext[i]),
				}
			}
		}
		for _, rho := range ext[k:] {
			if rho < -1 || rho > 1 {
				return nil, &constraints.InfeasibleStartError{
					Constraint: f.desc,
					Reason:     fmt.Sprintf("correlation %g outside [-1, 1]", rho),
				}
			}
		}
	}

	chol, err := f.toInternal(ext)
	if err != nil {
		return nil, &constraints.InfeasibleStartError{Constraint: f.desc, Reason: "start matrix is not positive definite"}
	}
	for i := 0; i < k; i++ {
		if d := chol[diagIndex(i)]; d < f.distance {
			return nil, &constraints.InfeasibleStartError{
				Constraint: f.desc,
				Reason:     fmt.Sprintf("Cholesky diagonal entry %d is %g, below bounds_distance %g", i, d, f.distance),
			}
		}
	}
	return f, nil
}

// diagIndex is the row-major lower-triangle index of element (i, i).
func diagIndex(i int) int {
	return i*(i+1)/2 + i
}

func (f *covarianceTransform) positions() []int { return f.pos }
func (f *covarianceTransform) dim() int         { return len(f.pos) }
func (f *covarianceTransform) name() string     { return f.desc }

// matrix builds the covariance matrix described by the external entries.
func (f *covarianceTransform) matrix(ext []float64) *mat.SymDense {
	k := f.k
	cov := mat.NewSymDense(k, nil)
	if !f.sdcorr {
		idx := 0
		for i := 0; i < k; i++ {
			for j := 0; j <= i; j++ {
				cov.SetSym(i, j, ext[idx])
				idx++
			}
		}
		return cov
	}

	sds := ext[:k]
	idx := k
	for i := 0; i < k; i++ {
		cov.SetSym(i, i, sds[i]*sds[i])
		for j := 0; j < i; j++ {
			cov.SetSym(i, j, ext[idx]*sds[i]*sds[j])
			idx++
		}
	}
	return cov
}

// flatten writes cov into the external layout.
func (f *covarianceTransform) flatten(cov *mat.SymDense, out []float64) {
	k := f.k
	if !f.sdcorr {
		idx := 0
		for i := 0; i < k; i++ {
			for j := 0; j <= i; j++ {
				out[idx] = cov.At(i, j)
				idx++
			}
		}
		return
	}

	for i := 0; i < k; i++ {
		out[i] = math.Sqrt(cov.At(i, i))
	}
	idx := k
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			out[idx] = cov.At(i, j) / (out[i] * out[j])
			idx++
		}
	}
}

func (f *covarianceTransform) toInternal(ext []float64) ([]float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(f.matrix(ext)); !ok {
		return nil, &constraints.NumericalError{Constraint: f.desc, Reason: "matrix is not positive definite"}
	}
	var l mat.TriDense
	chol.LTo(&l)

	out := make([]float64, 0, len(f.pos))
	for i := 0; i < f.k; i++ {
		for j := 0; j <= i; j++ {
			out = append(out, l.At(i, j))
		}
	}
	return out, nil
}

func (f *covarianceTransform) fromInternal(in, out []float64) error {
	if !finite(in) {
		return &constraints.NumericalError{Constraint: f.desc, Reason: "Cholesky factor has non-finite entries"}
	}
	k := f.k
	l := mat.NewTriDense(k, mat.Lower, nil)
	idx := 0
	for i := 0; i < k; i++ {
		for j := 0; j <= i; j++ {
			l.SetTri(i, j, in[idx])
			idx++
		}
		if d := l.At(i, i); d <= 0 {
			return &constraints.NumericalError{
				Constraint: f.desc,
				Reason:     fmt.Sprintf("Cholesky diagonal entry %d is %g, matrix is not positive definite", i, d),
			}
		}
	}

	var cov mat.SymDense
	cov.SymOuterK(1, l)
	f.flatten(&cov, out)
	return nil
}

func (f *covarianceTransform) internalBounds() ([]float64, []float64) {
	n := len(f.pos)
	lower := filled(n, math.Inf(-1))
	upper := filled(n, math.Inf(1))
	for i := 0; i < f.k; i++ {
		lower[diagIndex(i)] = f.distance
	}
	return lower, upper
}

// externalBounds follows from the Cholesky bounds: every variance is at least
// distance^2, every standard deviation at least distance, correlations lie in
// [-1, 1].
func (f *covarianceTransform) externalBounds() ([]float64, []float64) {
	n := len(f.pos)
	lower := filled(n, math.Inf(-1))
	upper := filled(n, math.Inf(1))
	if !f.sdcorr {
		for i := 0; i < f.k; i++ {
			lower[diagIndex(i)] = f.distance * f.distance
		}
		return lower, upper
	}
	for i := 0; i < f.k; i++ {
		lower[i] = f.distance
	}
	for i := f.k; i < n; i++ {
		lower[i], upper[i] = -1, 1
	}
	return lower, upper
}
