package ledger

import (
	"os"
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"

	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
	"github.com/bullet-ledger/node/pkg/mempool"
	"github.com/bullet-ledger/node/pkg/txs"
)

func openTestStore(t *testing.T) *Store {
	dir, err := os.MkdirTemp("", "ledger-test-*")
	assert.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := Open(dir)
	assert.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func randScalar() ristretto.Scalar {
	var s ristretto.Scalar
	s.Rand()
	return s
}

func TestExecuteEphemeralBlockUpdatesBalancesAndCreditsValidator(t *testing.T) {
	store := openTestStore(t)
	gens := pedersen.NewGenerators([]byte("ledger-test"))

	senderInit := txs.NewSecrets(42, randScalar())
	receiverInit := txs.NewSecrets(0, randScalar())
	delta := txs.NewSecrets(2, randScalar())
	fee := txs.NewSecrets(2, randScalar())

	trx := txs.NewEphemeralTrx(nil)
	sf, err := trx.StateTransition(true, gens, senderInit, delta, fee)
	assert.NoError(t, err)
	trx.SignSender(gens, sf)
	rf, err := trx.StateTransition(false, gens, receiverInit, delta, fee)
	assert.NoError(t, err)
	trx.SignReceiver(gens, rf)

	pool := mempool.New(10)
	pool.Insert(trx)

	var validator ristretto.Point
	var validatorScalar ristretto.Scalar
	validatorScalar.Rand()
	validator.ScalarMultBase(&validatorScalar)

	blockHash := [32]byte{1}
	blk := Block{Hash: blockHash, ValidatorCommit: validator, Fingerprints: []mempool.Fingerprint{trx.Fingerprint()}}

	_, err = Execute(store, pool, gens, blk)
	assert.NoError(t, err)
	assert.Equal(t, 0, pool.Len())

	expectedSenderFinal := sf.Commit(gens)
	expectedReceiverFinal := rf.Commit(gens)

	v, ok, err := store.Get(expectedSenderFinal.Bytes())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, expectedSenderFinal.Bytes(), v)

	v, ok, err = store.Get(expectedReceiverFinal.Bytes())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, expectedReceiverFinal.Bytes(), v)

	var expectedFee ristretto.Point
	var feeScalar ristretto.Scalar
	feeScalar.SetBigInt(uint64ToBigInt(2))
	expectedFee.ScalarMultBase(&feeScalar)

	v, ok, err = store.Get(validator.Bytes())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, expectedFee.Bytes(), v)
}

func TestExecuteSkipsFingerprintMissingFromMempool(t *testing.T) {
	store := openTestStore(t)
	gens := pedersen.NewGenerators([]byte("ledger-test"))
	pool := mempool.New(10)

	blk := Block{Hash: [32]byte{2}, Fingerprints: []mempool.Fingerprint{{9, 9, 9}}}
	_, err := Execute(store, pool, gens, blk)
	assert.NoError(t, err)
}
