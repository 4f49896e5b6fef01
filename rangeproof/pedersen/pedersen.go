// Package pedersen derives the deterministic generator vector the
// Bulletproofs inner-product argument commits bit-vectors against,
// mirroring the teacher's rangeproof/pedersen.New(...).BaseVector.Compute(n)
// pattern seen in innerproduct_test.go.
package pedersen

import "github.com/bwesterb/go-ristretto"

// BaseVector is a deterministically derived vector of n generator
// points, one per proven bit.
type BaseVector struct {
	Bases []ristretto.Point
	seed  []byte
}

// Pedersen is a named generator-vector factory: two factories seeded
// with different domain tags produce the disjoint G and H vectors a
// range proof needs.
type Pedersen struct {
	BaseVector BaseVector
}

// New seeds a Pedersen generator factory from genData.
func New(genData []byte) Pedersen {
	seed := make([]byte, len(genData))
	copy(seed, genData)
	return Pedersen{BaseVector: BaseVector{seed: seed}}
}

// Compute derives n generator points deterministically from the seed,
// one hash-to-group per index so every node computes the same vector.
func (bv *BaseVector) Compute(n uint32) {
	bv.Bases = make([]ristretto.Point, n)
	for i := uint32(0); i < n; i++ {
		data := append(append([]byte{}, bv.seed...), encodeIndex(i)...)
		var s ristretto.Scalar
		s.Derive(data)
		bv.Bases[i].ScalarMultBase(&s)
	}
}

func encodeIndex(i uint32) []byte {
	return []byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24)}
}
