// Package pedersen implements Pedersen value commitments over the
// Ristretto group, the same construction the original dusk-go
// rangeproof package builds its generators on (see
// rangeproof/pedersen.New in the retained reference tree), generalized
// here to the two fixed generators B and H the transaction engine needs.
package pedersen

import (
	"github.com/bwesterb/go-ristretto"
)

// Generators holds the two base points B (value) and H (blinding) that
// every commitment in the ledger is expressed against. They are
// deterministically derived from a domain-separation tag so every node
// computes byte-identical generators.
type Generators struct {
	B ristretto.Point
	H ristretto.Point
}

// NewGenerators derives B and H from tag via hash-to-group, mirroring
// the teacher's pedersen.New(genData) "base vector" derivation.
func NewGenerators(tag []byte) Generators {
	var b, h ristretto.Scalar
	b.Derive(append(append([]byte{}, tag...), 'B'))
	h.Derive(append(append([]byte{}, tag...), 'H'))

	var gens Generators
	gens.B.ScalarMultBase(&b)
	gens.H.ScalarMultBase(&h)
	return gens
}

// Commit computes C = v*B + r*H.
func (g Generators) Commit(v, r ristretto.Scalar) ristretto.Point {
	var vB, rH, c ristretto.Point
	vB.ScalarMult(&g.B, &v)
	rH.ScalarMult(&g.H, &r)
	c.Add(&vB, &rH)
	return c
}

// CommitUint64 is a convenience wrapper for the common case of
// committing to a plain value with an explicit blinding scalar.
func (g Generators) CommitUint64(v uint64, r ristretto.Scalar) ristretto.Point {
	var vs ristretto.Scalar
	vs.SetBigInt(uint64ToBigInt(v))
	return g.Commit(vs, r)
}

// Open reports whether commit == Commit(v, r), i.e. that the caller
// indeed knows the opening of commit.
func (g Generators) Open(commit ristretto.Point, v, r ristretto.Scalar) bool {
	got := g.Commit(v, r)
	return got.Equals(&commit)
}
