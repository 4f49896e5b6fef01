// Package innerproduct implements the Bulletproofs inner-product
// argument: given P = <a,G> + <b,H> + <a,b>*Q, prove knowledge of a,b
// without revealing them, by recursively folding the vectors in half.
// Adapted from the teacher's rangeproof/innerproduct package (see the
// retained innerproduct_test.go, which exercises Generate/Verify
// against exactly this P/G/H/Hpf/Q shape).
package innerproduct

import (
	"errors"

	"github.com/bwesterb/go-ristretto"

	"github.com/bullet-ledger/node/rangeproof/vector"
)

var ErrNotPowerOfTwo = errors.New("innerproduct: n must be a power of two")

// Proof is the recursive inner-product argument: one (L,R) pair per
// folding round, plus the final scalars a, b.
type Proof struct {
	L []ristretto.Point
	R []ristretto.Point
	A ristretto.Scalar
	B ristretto.Scalar
}

func challenge(L, R ristretto.Point, round int) ristretto.Scalar {
	var c ristretto.Scalar
	lb := L.Bytes()
	rb := R.Bytes()
	data := make([]byte, 0, len(lb)+len(rb)+1)
	data = append(data, lb...)
	data = append(data, rb...)
	data = append(data, byte(round))
	c.Derive(data)
	return c
}

// Generate produces a proof that P = <a,G> + <b,H'> + <a,b>*Q, where
// H' = H scaled element-wise by hPrimeFactors (the y^-i rescaling the
// caller applies before calling in, matching the teacher's test setup).
func Generate(g, h []ristretto.Point, a, b []ristretto.Scalar, hPrimeFactors []ristretto.Scalar, q ristretto.Point) (*Proof, error) {
	n := len(a)
	if n == 0 || n&(n-1) != 0 {
		return nil, ErrNotPowerOfTwo
	}

	ga := append([]ristretto.Point{}, g...)
	ha := make([]ristretto.Point, len(h))
	for i := range h {
		ha[i].ScalarMult(&h[i], &hPrimeFactors[i])
	}
	aa := append([]ristretto.Scalar{}, a...)
	bb := append([]ristretto.Scalar{}, b...)

	proof := &Proof{}
	round := 0
	for len(aa) > 1 {
		m := len(aa) / 2
		aL, aR := aa[:m], aa[m:]
		bL, bR := bb[:m], bb[m:]
		gL, gR := ga[:m], ga[m:]
		hL, hR := ha[:m], ha[m:]

		cL, err := vector.InnerProduct(aL, bR)
		if err != nil {
			return nil, err
		}
		cR, err := vector.InnerProduct(aR, bL)
		if err != nil {
			return nil, err
		}

		L, err := foldCommit(aL, gR, bR, hL, cL, q)
		if err != nil {
			return nil, err
		}
		R, err := foldCommit(aR, gL, bL, hR, cR, q)
		if err != nil {
			return nil, err
		}

		x := challenge(L, R, round)
		var xInv ristretto.Scalar
		xInv.Inverse(&x)

		aa = foldScalars(aL, aR, x, xInv)
		bb = foldScalars(bL, bR, xInv, x)
		ga = foldPoints(gL, gR, xInv, x)
		ha = foldPoints(hL, hR, x, xInv)

		proof.L = append(proof.L, L)
		proof.R = append(proof.R, R)
		round++
	}

	proof.A = aa[0]
	proof.B = bb[0]
	return proof, nil
}

func foldCommit(a []ristretto.Scalar, g []ristretto.Point, b []ristretto.Scalar, h []ristretto.Point, c ristretto.Scalar, q ristretto.Point) (ristretto.Point, error) {
	aG, err := vector.Exp(a, g, len(a), 0)
	if err != nil {
		return aG, err
	}
	bH, err := vector.Exp(b, h, len(b), 0)
	if err != nil {
		return aG, err
	}
	var cQ, out ristretto.Point
	cQ.ScalarMult(&q, &c)
	out.Add(&aG, &bH)
	out.Add(&out, &cQ)
	return out, nil
}

func foldScalars(lo, hi []ristretto.Scalar, xLo, xHi ristretto.Scalar) []ristretto.Scalar {
	out := make([]ristretto.Scalar, len(lo))
	for i := range lo {
		var a, b ristretto.Scalar
		a.Mul(&lo[i], &xLo)
		b.Mul(&hi[i], &xHi)
		out[i].Add(&a, &b)
	}
	return out
}

func foldPoints(lo, hi []ristretto.Point, xLo, xHi ristretto.Scalar) []ristretto.Point {
	out := make([]ristretto.Point, len(lo))
	for i := range lo {
		var a, b ristretto.Point
		a.ScalarMult(&lo[i], &xLo)
		b.ScalarMult(&hi[i], &xHi)
		out[i].Add(&a, &b)
	}
	return out
}

// Verify recomputes the folded (G,H,P) from L/R and checks the final
// relation P' == a*G' + b*H' + a*b*Q.
func (p *Proof) Verify(g, h []ristretto.Point, L, R []ristretto.Point, hPrimeFactors []ristretto.Scalar, q, commitP ristretto.Point, n int) bool {
	ga := append([]ristretto.Point{}, g...)
	ha := make([]ristretto.Point, len(h))
	for i := range h {
		ha[i].ScalarMult(&h[i], &hPrimeFactors[i])
	}
	P := commitP

	for round := range L {
		x := challenge(L[round], R[round], round)
		var xInv ristretto.Scalar
		xInv.Inverse(&x)

		m := len(ga) / 2
		ga = foldPoints(ga[:m], ga[m:], xInv, x)
		ha = foldPoints(ha[:m], ha[m:], x, xInv)

		var xSq, xInvSq, lTerm, rTerm ristretto.Point
		xSq.ScalarMult(&L[round], squareScalar(x))
		xInvSq.ScalarMult(&R[round], squareScalar(xInv))
		lTerm = xSq
		rTerm = xInvSq

		var newP ristretto.Point
		newP.Add(&P, &lTerm)
		newP.Add(&newP, &rTerm)
		P = newP
	}

	var ab, aG, bH, abQ, expect ristretto.Point
	aG.ScalarMult(&ga[0], &p.A)
	bH.ScalarMult(&ha[0], &p.B)
	var abScalar ristretto.Scalar
	abScalar.Mul(&p.A, &p.B)
	abQ.ScalarMult(&q, &abScalar)
	expect.Add(&aG, &bH)
	expect.Add(&expect, &abQ)
	ab = expect

	return P.Equals(&ab)
}

func squareScalar(s ristretto.Scalar) *ristretto.Scalar {
	var out ristretto.Scalar
	out.Mul(&s, &s)
	return &out
}
