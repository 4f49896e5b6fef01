// Package schnorr implements the two-scalar Schnorr proof of knowledge
// of (v, r) behind a Pedersen commitment, Fiat-Shamir bound to a 32-byte
// context hash. This is a direct port of the original's
// crypto/schnorr.rs SchnorrProof, generalized from curve25519-dalek to
// the go-ristretto group the rest of this module uses.
package schnorr

import (
	"crypto/sha256"
	"errors"

	"github.com/bwesterb/go-ristretto"

	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
)

var (
	errShortBuffer = errors.New("schnorr: short buffer")
	errBadPoint    = errors.New("schnorr: invalid point encoding")
)

// Proof is a Schnorr proof of knowledge: random commitment plus two
// response scalars. Wire size is 96 bytes (32 + 32 + 32).
type Proof struct {
	Random ristretto.Point
	S1     ristretto.Scalar
	S2     ristretto.Scalar
}

// Size is the marshalled byte length of a Proof.
const Size = 96

func computeChallenge(commit, random ristretto.Point, context [32]byte) ristretto.Scalar {
	h := sha256.New()
	cb := commit.Bytes()
	rb := random.Bytes()
	h.Write(cb[:])
	h.Write(rb[:])
	h.Write(context[:])
	sum := h.Sum(nil)

	var c ristretto.Scalar
	c.Derive(sum)
	return c
}

// Generate produces a proof that the prover knows (x, r) such that
// gens.Commit(x, r) is the commitment bound into context.
func Generate(gens pedersen.Generators, x, r ristretto.Scalar, context [32]byte) Proof {
	commit := gens.Commit(x, r)

	var r1, r2 ristretto.Scalar
	r1.Rand()
	r2.Rand()

	random := gens.Commit(r1, r2)
	c := computeChallenge(commit, random, context)

	var cx, cr, s1, s2 ristretto.Scalar
	cx.Mul(&c, &x)
	s1.Add(&r1, &cx)
	cr.Mul(&c, &r)
	s2.Add(&r2, &cr)

	return Proof{Random: random, S1: s1, S2: s2}
}

// Verify checks the proof against commit and context.
func (p Proof) Verify(gens pedersen.Generators, commit ristretto.Point, context [32]byte) bool {
	c := computeChallenge(commit, p.Random, context)

	var cCommit, expect ristretto.Point
	cCommit.ScalarMult(&commit, &c)
	expect.Add(&p.Random, &cCommit)

	got := gens.Commit(p.S1, p.S2)
	return got.Equals(&expect)
}

// Marshal writes the 96-byte wire form: random || s1 || s2.
func (p Proof) Marshal(buf []byte) {
	copy(buf[0:32], p.Random.Bytes())
	copy(buf[32:64], p.S1.Bytes())
	copy(buf[64:96], p.S2.Bytes())
}

// Unmarshal reads a 96-byte wire form produced by Marshal.
func Unmarshal(buf []byte) (Proof, error) {
	var p Proof
	if len(buf) < Size {
		return p, errShortBuffer
	}
	var rb, s1b, s2b [32]byte
	copy(rb[:], buf[0:32])
	copy(s1b[:], buf[32:64])
	copy(s2b[:], buf[64:96])

	if !p.Random.SetBytes(&rb) {
		return p, errBadPoint
	}
	p.S1.SetBytes(&s1b)
	p.S2.SetBytes(&s2b)
	return p, nil
}
