package rangeproof

import (
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"

	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	gens := pedersen.NewGenerators([]byte("rangeproof-test"))

	var gamma ristretto.Scalar
	gamma.Rand()

	const v = uint64(424242)
	commit := gens.CommitUint64(v, gamma)

	proof, err := Generate(gens, v, gamma)
	assert.NoError(t, err)

	assert.True(t, proof.Verify(gens, commit))
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	gens := pedersen.NewGenerators([]byte("rangeproof-test"))

	var gamma ristretto.Scalar
	gamma.Rand()

	const v = uint64(99)
	commit := gens.CommitUint64(v, gamma)

	proof, err := Generate(gens, v, gamma)
	assert.NoError(t, err)

	buf := make([]byte, Size)
	assert.NoError(t, proof.Marshal(buf))

	decoded, err := Unmarshal(buf)
	assert.NoError(t, err)
	assert.True(t, decoded.Verify(gens, commit))
}

func TestVerifyRejectsWrongCommitment(t *testing.T) {
	gens := pedersen.NewGenerators([]byte("rangeproof-test"))

	var gamma, otherGamma ristretto.Scalar
	gamma.Rand()
	otherGamma.Rand()

	const v = uint64(7)
	proof, err := Generate(gens, v, gamma)
	assert.NoError(t, err)

	wrongCommit := gens.CommitUint64(v+1, otherGamma)
	assert.False(t, proof.Verify(gens, wrongCommit))
}
