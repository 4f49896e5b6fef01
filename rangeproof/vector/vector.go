// Package vector implements the scalar/point vector arithmetic the
// Bulletproofs range proof is built from: element-wise add/sub/mul,
// scalar-power vectors, vector-matrix exponentiation and inner
// products. Adapted from the teacher's rangeproof/vector package
// (see the retained vector_test.go), generalized from
// toghrulmaharramov/dusk-go/ristretto to github.com/bwesterb/go-ristretto.
package vector

import (
	"errors"

	"github.com/bwesterb/go-ristretto"
)

var ErrLengthMismatch = errors.New("vector: length mismatch")

// Add returns element-wise a[i]+b[i].
func Add(a, b []ristretto.Scalar) ([]ristretto.Scalar, error) {
	if len(a) != len(b) {
		return nil, ErrLengthMismatch
	}
	out := make([]ristretto.Scalar, len(a))
	for i := range a {
		out[i].Add(&a[i], &b[i])
	}
	return out, nil
}

// Sub returns element-wise a[i]-b[i].
func Sub(a, b []ristretto.Scalar) ([]ristretto.Scalar, error) {
	if len(a) != len(b) {
		return nil, ErrLengthMismatch
	}
	out := make([]ristretto.Scalar, len(a))
	for i := range a {
		out[i].Sub(&a[i], &b[i])
	}
	return out, nil
}

// Hadamard returns element-wise a[i]*b[i].
func Hadamard(a, b []ristretto.Scalar) ([]ristretto.Scalar, error) {
	if len(a) != len(b) {
		return nil, ErrLengthMismatch
	}
	out := make([]ristretto.Scalar, len(a))
	for i := range a {
		out[i].Mul(&a[i], &b[i])
	}
	return out, nil
}

// AddScalar adds the same scalar s to every element of a.
func AddScalar(a []ristretto.Scalar, s ristretto.Scalar) []ristretto.Scalar {
	out := make([]ristretto.Scalar, len(a))
	for i := range a {
		out[i].Add(&a[i], &s)
	}
	return out
}

// MulScalar multiplies every element of a by s.
func MulScalar(a []ristretto.Scalar, s ristretto.Scalar) []ristretto.Scalar {
	out := make([]ristretto.Scalar, len(a))
	for i := range a {
		out[i].Mul(&a[i], &s)
	}
	return out
}

// ScalarPowers returns [1, y, y^2, ..., y^(n-1)].
func ScalarPowers(y ristretto.Scalar, n uint32) []ristretto.Scalar {
	out := make([]ristretto.Scalar, n)
	if n == 0 {
		return out
	}
	out[0].SetOne()
	for i := uint32(1); i < n; i++ {
		out[i].Mul(&out[i-1], &y)
	}
	return out
}

// ScalarPowersSum returns sum_{i=0}^{n-1} y^i.
func ScalarPowersSum(y ristretto.Scalar, n uint64) ristretto.Scalar {
	var sum, term ristretto.Scalar
	term.SetOne()
	for i := uint64(0); i < n; i++ {
		sum.Add(&sum, &term)
		term.Mul(&term, &y)
	}
	return sum
}

// InnerProduct returns sum(a[i]*b[i]).
func InnerProduct(a, b []ristretto.Scalar) (ristretto.Scalar, error) {
	var sum ristretto.Scalar
	if len(a) != len(b) {
		return sum, ErrLengthMismatch
	}
	for i := range a {
		var term ristretto.Scalar
		term.Mul(&a[i], &b[i])
		sum.Add(&sum, &term)
	}
	return sum, nil
}

// Exp computes sum(a[i]*G[i]) over n elements, starting at the given
// offset into a and G (offset supports the teacher's "1" start used when
// a leading blinding term is skipped).
func Exp(a []ristretto.Scalar, g []ristretto.Point, n int, offset int) (ristretto.Point, error) {
	if len(a) < offset+n || len(g) < offset+n {
		return ristretto.Point{}, ErrLengthMismatch
	}
	var sum ristretto.Point
	sum.SetZero()
	for i := 0; i < n; i++ {
		var term ristretto.Point
		term.ScalarMult(&g[offset+i], &a[offset+i])
		sum.Add(&sum, &term)
	}
	return sum, nil
}
