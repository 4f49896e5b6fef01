// Package rangeproof implements a single-value Bulletproofs range proof
// over [0, 2^64), proving a Pedersen commitment opens to a value in
// range without revealing it. It composes the bit-decomposition and
// polynomial-commitment steps of the Bulletproofs protocol on top of
// the vector/pedersen/innerproduct subpackages, following the same
// layering the teacher's rangeproof package scaffolds (vector ->
// generator vectors -> inner-product argument -> full proof), adapted
// from bwesterb/go-ristretto rather than toghrulmaharramov/dusk-go/ristretto.
package rangeproof

import (
	"crypto/sha256"
	"errors"

	"github.com/bwesterb/go-ristretto"

	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
	"github.com/bullet-ledger/node/rangeproof/innerproduct"
	rppedersen "github.com/bullet-ledger/node/rangeproof/pedersen"
	"github.com/bullet-ledger/node/rangeproof/vector"
)

// BitLength is the proven range width: values must lie in [0, 2^64).
const BitLength = 64

var (
	ErrVerifyFailed = errors.New("rangeproof: verification failed")
)

var (
	gGen = rppedersen.New([]byte("bullet_ledger.rangeproof.G"))
	hGen = rppedersen.New([]byte("bullet_ledger.rangeproof.H"))
	qGen ristretto.Point
)

func init() {
	gGen.BaseVector.Compute(BitLength)
	hGen.BaseVector.Compute(BitLength)
	var qs ristretto.Scalar
	qs.Derive([]byte("bullet_ledger.rangeproof.Q"))
	qGen.ScalarMultBase(&qs)
}

// Proof is a Bulletproofs range proof for a single committed value.
type Proof struct {
	A    ristretto.Point
	S    ristretto.Point
	T1   ristretto.Point
	T2   ristretto.Point
	TauX ristretto.Scalar
	Mu   ristretto.Scalar
	THat ristretto.Scalar
	IPP  *innerproduct.Proof
}

// ipRounds is log2(BitLength), the number of inner-product folding
// rounds a BitLength-wide range proof always performs.
const ipRounds = 6

// Size is the fixed marshalled length of a range proof: 7 group/scalar
// elements (224B) plus ipRounds (L,R) pairs (384B) plus the inner
// product argument's final (a,b) scalars (64B) — 672 bytes total,
// matching the original's PROOF_LENGTH.
const Size = 7*32 + ipRounds*2*32 + 2*32

var ErrBadEncoding = errors.New("rangeproof: malformed proof encoding")

// Marshal writes the proof's fixed 672-byte wire encoding into buf.
func (p *Proof) Marshal(buf []byte) error {
	if len(buf) < Size || len(p.IPP.L) != ipRounds || len(p.IPP.R) != ipRounds {
		return ErrBadEncoding
	}
	off := 0
	putPoint := func(pt ristretto.Point) { copy(buf[off:off+32], pt.Bytes()); off += 32 }
	putScalar := func(s ristretto.Scalar) { copy(buf[off:off+32], s.Bytes()); off += 32 }

	putPoint(p.A)
	putPoint(p.S)
	putPoint(p.T1)
	putPoint(p.T2)
	putScalar(p.TauX)
	putScalar(p.Mu)
	putScalar(p.THat)
	for i := 0; i < ipRounds; i++ {
		putPoint(p.IPP.L[i])
		putPoint(p.IPP.R[i])
	}
	putScalar(p.IPP.A)
	putScalar(p.IPP.B)
	return nil
}

// Unmarshal reads a 672-byte proof encoding produced by Marshal.
func Unmarshal(buf []byte) (*Proof, error) {
	if len(buf) < Size {
		return nil, ErrBadEncoding
	}
	off := 0
	getPoint := func() (ristretto.Point, error) {
		var pt ristretto.Point
		var raw [32]byte
		copy(raw[:], buf[off:off+32])
		off += 32
		if !pt.SetBytes(&raw) {
			return pt, ErrBadEncoding
		}
		return pt, nil
	}
	getScalar := func() ristretto.Scalar {
		var s ristretto.Scalar
		var raw [32]byte
		copy(raw[:], buf[off:off+32])
		off += 32
		s.SetBytes(&raw)
		return s
	}

	p := &Proof{IPP: &innerproduct.Proof{L: make([]ristretto.Point, ipRounds), R: make([]ristretto.Point, ipRounds)}}
	var err error
	if p.A, err = getPoint(); err != nil {
		return nil, err
	}
	if p.S, err = getPoint(); err != nil {
		return nil, err
	}
	if p.T1, err = getPoint(); err != nil {
		return nil, err
	}
	if p.T2, err = getPoint(); err != nil {
		return nil, err
	}
	p.TauX = getScalar()
	p.Mu = getScalar()
	p.THat = getScalar()
	for i := 0; i < ipRounds; i++ {
		if p.IPP.L[i], err = getPoint(); err != nil {
			return nil, err
		}
		if p.IPP.R[i], err = getPoint(); err != nil {
			return nil, err
		}
	}
	p.IPP.A = getScalar()
	p.IPP.B = getScalar()
	return p, nil
}

func deriveScalar(tag string, parts ...[]byte) ristretto.Scalar {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, p := range parts {
		h.Write(p)
	}
	var s ristretto.Scalar
	s.Derive(h.Sum(nil))
	return s
}

func bitsOf(v uint64) []ristretto.Scalar {
	out := make([]ristretto.Scalar, BitLength)
	for i := 0; i < BitLength; i++ {
		if (v>>uint(i))&1 == 1 {
			out[i].SetOne()
		}
	}
	return out
}

// Generate produces a range proof that commit = gens.Commit(v, gamma)
// opens to a value v in [0, 2^64).
func Generate(gens pedersen.Generators, v uint64, gamma ristretto.Scalar) (*Proof, error) {
	aL := bitsOf(v)
	one := vector.AddScalar(make([]ristretto.Scalar, BitLength), oneScalar())
	aR, err := vector.Sub(aL, one)
	if err != nil {
		return nil, err
	}

	var alpha ristretto.Scalar
	alpha.Rand()

	commitA, err := blindedVectorCommit(aL, aR, alpha)
	if err != nil {
		return nil, err
	}

	sL := randomScalarVec(BitLength)
	sR := randomScalarVec(BitLength)
	var rho ristretto.Scalar
	rho.Rand()
	commitS, err := blindedVectorCommit(sL, sR, rho)
	if err != nil {
		return nil, err
	}

	ab := commitA.Bytes()
	sb := commitS.Bytes()
	y := deriveScalar("bullet_ledger.rangeproof.y", ab[:], sb[:])
	z := deriveScalar("bullet_ledger.rangeproof.z", ab[:], sb[:], []byte{1})

	yPow := vector.ScalarPowers(y, BitLength)
	twoPow := vector.ScalarPowers(twoScalar(), BitLength)

	var zSq ristretto.Scalar
	zSq.Mul(&z, &z)

	l0 := vector.AddScalar(aL, negScalar(z))
	r0 := hadamardAddZ(yPow, aR, z, twoPow, zSq)

	var tau1, tau2 ristretto.Scalar
	tau1.Rand()
	tau2.Rand()

	t1, t2, err := polyCoeffs(l0, sL, r0, sR, yPow)
	if err != nil {
		return nil, err
	}

	commitT1 := gens.Commit(t1, tau1)
	commitT2 := gens.Commit(t2, tau2)

	ct1 := commitT1.Bytes()
	ct2 := commitT2.Bytes()
	x := deriveScalar("bullet_ledger.rangeproof.x", ct1[:], ct2[:])

	l, err := foldPoly(l0, sL, x)
	if err != nil {
		return nil, err
	}
	r, err := foldPoly(r0, sR, x)
	if err != nil {
		return nil, err
	}
	tHat, err := vector.InnerProduct(l, r)
	if err != nil {
		return nil, err
	}

	var xSq ristretto.Scalar
	xSq.Mul(&x, &x)
	var zGamma, t1x, t2x2, tauX ristretto.Scalar
	zGamma.Mul(&zSq, &gamma)
	t1x.Mul(&tau1, &x)
	t2x2.Mul(&tau2, &xSq)
	tauX.Add(&zGamma, &t1x)
	tauX.Add(&tauX, &t2x2)

	var mu ristretto.Scalar
	var rhoX ristretto.Scalar
	rhoX.Mul(&rho, &x)
	mu.Add(&alpha, &rhoX)

	hPrimeFactors := vector.ScalarPowers(invScalar(y), BitLength)
	ipp, err := innerproduct.Generate(gGen.BaseVector.Bases, hGen.BaseVector.Bases, l, r, hPrimeFactors, qGen)
	if err != nil {
		return nil, err
	}

	return &Proof{
		A: commitA, S: commitS, T1: commitT1, T2: commitT2,
		TauX: tauX, Mu: mu, THat: tHat, IPP: ipp,
	}, nil
}

// Verify checks a range proof against the Pedersen commitment it was
// generated for.
func (p *Proof) Verify(gens pedersen.Generators, commit ristretto.Point) bool {
	ab := p.A.Bytes()
	sb := p.S.Bytes()
	y := deriveScalar("bullet_ledger.rangeproof.y", ab[:], sb[:])
	z := deriveScalar("bullet_ledger.rangeproof.z", ab[:], sb[:], []byte{1})

	ct1 := p.T1.Bytes()
	ct2 := p.T2.Bytes()
	x := deriveScalar("bullet_ledger.rangeproof.x", ct1[:], ct2[:])

	var zSq ristretto.Scalar
	zSq.Mul(&z, &z)

	lhs := gens.Commit(p.THat, p.TauX)

	var zSqV, xT1, x2T2, rhs ristretto.Point
	zSqV.ScalarMult(&commit, &zSq)
	xT1.ScalarMult(&p.T1, &x)
	var xSq ristretto.Scalar
	xSq.Mul(&x, &x)
	x2T2.ScalarMult(&p.T2, &xSq)

	delta := deltaYZ(y, z)
	deltaPoint := gens.Commit(delta, zeroScalar())

	rhs.Add(&deltaPoint, &zSqV)
	rhs.Add(&rhs, &xT1)
	rhs.Add(&rhs, &x2T2)

	if !lhs.Equals(&rhs) {
		return false
	}

	hPrimeFactors := vector.ScalarPowers(invScalar(y), BitLength)
	var muPoint, pPoint ristretto.Point
	muPoint.ScalarMultBase(&p.Mu)
	pPoint.Sub(&p.A, &muPoint)
	var sx ristretto.Point
	sx.ScalarMult(&p.S, &x)
	pPoint.Add(&pPoint, &sx)

	return p.IPP.Verify(gGen.BaseVector.Bases, hGen.BaseVector.Bases, p.IPP.L, p.IPP.R, hPrimeFactors, qGen, pPoint, BitLength)
}

func blindedVectorCommit(l, r []ristretto.Scalar, blind ristretto.Scalar) (ristretto.Point, error) {
	lg, err := vector.Exp(l, gGen.BaseVector.Bases, BitLength, 0)
	if err != nil {
		return lg, err
	}
	rh, err := vector.Exp(r, hGen.BaseVector.Bases, BitLength, 0)
	if err != nil {
		return lg, err
	}
	var blindPoint, out ristretto.Point
	blindPoint.ScalarMultBase(&blind)
	out.Add(&lg, &rh)
	out.Add(&out, &blindPoint)
	return out, nil
}

func hadamardAddZ(yPow, aR []ristretto.Scalar, z ristretto.Scalar, twoPow []ristretto.Scalar, zSq ristretto.Scalar) []ristretto.Scalar {
	out := make([]ristretto.Scalar, BitLength)
	for i := range out {
		var aRz ristretto.Scalar
		aRz.Add(&aR[i], &z)
		var yaRz ristretto.Scalar
		yaRz.Mul(&yPow[i], &aRz)
		var z2t ristretto.Scalar
		z2t.Mul(&zSq, &twoPow[i])
		out[i].Add(&yaRz, &z2t)
	}
	return out
}

func polyCoeffs(l0, sL, r0, sR []ristretto.Scalar, yPow []ristretto.Scalar) (ristretto.Scalar, ristretto.Scalar, error) {
	sRy, err := vector.Hadamard(sR, yPow)
	if err != nil {
		return ristretto.Scalar{}, ristretto.Scalar{}, err
	}
	t2, err := vector.InnerProduct(sL, sRy)
	if err != nil {
		return ristretto.Scalar{}, ristretto.Scalar{}, err
	}

	l0Ry, err := vector.Hadamard(sL, yPow)
	if err != nil {
		return ristretto.Scalar{}, ristretto.Scalar{}, err
	}
	t1a, err := vector.InnerProduct(l0, sRy)
	if err != nil {
		return ristretto.Scalar{}, ristretto.Scalar{}, err
	}
	t1b, err := vector.InnerProduct(l0Ry, r0)
	if err != nil {
		return ristretto.Scalar{}, ristretto.Scalar{}, err
	}
	var t1 ristretto.Scalar
	t1.Add(&t1a, &t1b)

	return t1, t2, nil
}

func foldPoly(a0, a1 []ristretto.Scalar, x ristretto.Scalar) ([]ristretto.Scalar, error) {
	scaled := vector.MulScalar(a1, x)
	return vector.Add(a0, scaled)
}

func deltaYZ(y, z ristretto.Scalar) ristretto.Scalar {
	var zSq, zCu ristretto.Scalar
	zSq.Mul(&z, &z)
	zCu.Mul(&zSq, &z)

	sumY := vector.ScalarPowersSum(y, BitLength)
	sumTwo := vector.ScalarPowersSum(twoScalar(), BitLength)

	var zMinusZSq, term1, term2 ristretto.Scalar
	zMinusZSq.Sub(&z, &zSq)
	term1.Mul(&zMinusZSq, &sumY)
	term2.Mul(&zCu, &sumTwo)

	var out ristretto.Scalar
	out.Sub(&term1, &term2)
	return out
}

func randomScalarVec(n int) []ristretto.Scalar {
	out := make([]ristretto.Scalar, n)
	for i := range out {
		out[i].Rand()
	}
	return out
}

func oneScalar() ristretto.Scalar {
	var s ristretto.Scalar
	s.SetOne()
	return s
}

func zeroScalar() ristretto.Scalar {
	var s ristretto.Scalar
	s.SetZero()
	return s
}

func twoScalar() ristretto.Scalar {
	var s, one ristretto.Scalar
	one.SetOne()
	s.Add(&one, &one)
	return s
}

func negScalar(s ristretto.Scalar) ristretto.Scalar {
	var z, out ristretto.Scalar
	z.SetZero()
	out.Sub(&z, &s)
	return out
}

func invScalar(s ristretto.Scalar) ristretto.Scalar {
	var out ristretto.Scalar
	out.Inverse(&s)
	return out
}
