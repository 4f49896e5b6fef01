package txs

import (
	"crypto/ed25519"
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"

	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
)

func randScalar() ristretto.Scalar {
	var s ristretto.Scalar
	s.Rand()
	return s
}

func TestEphemeralValidSenderWithSufficientBalance(t *testing.T) {
	gens := pedersen.NewGenerators([]byte("txs-test"))

	senderInit := NewSecrets(42, randScalar())
	receiverInit := NewSecrets(0, randScalar())
	delta := NewSecrets(2, randScalar())
	fee := NewSecrets(2, randScalar())

	trx := NewEphemeralTrx(nil)
	senderFinalSecrets, err := trx.StateTransition(true, gens, senderInit, delta, fee)
	assert.NoError(t, err)
	trx.SignSender(gens, senderFinalSecrets)

	receiverFinalSecrets, err := trx.StateTransition(false, gens, receiverInit, delta, fee)
	assert.NoError(t, err)
	trx.SignReceiver(gens, receiverFinalSecrets)

	senderFinal, receiverFinal, err := trx.IsValid(gens)
	assert.NoError(t, err)
	assert.True(t, senderFinal.Equals(wrap(senderFinalSecrets.Commit(gens))))
	assert.True(t, receiverFinal.Equals(wrap(receiverFinalSecrets.Commit(gens))))
}

func wrap(p ristretto.Point) *ristretto.Point { return &p }

func TestEphemeralInsufficientBalanceFailsStateTransition(t *testing.T) {
	gens := pedersen.NewGenerators([]byte("txs-test"))

	senderInit := NewSecrets(1, randScalar())
	delta := NewSecrets(2, randScalar())
	fee := NewSecrets(2, randScalar())

	trx := NewEphemeralTrx(nil)
	_, err := trx.StateTransition(true, gens, senderInit, delta, fee)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestEphemeralMarshalUnmarshalRoundTrip(t *testing.T) {
	gens := pedersen.NewGenerators([]byte("txs-test"))

	senderInit := NewSecrets(100, randScalar())
	receiverInit := NewSecrets(0, randScalar())
	delta := NewSecrets(10, randScalar())
	fee := NewSecrets(1, randScalar())

	trx := NewEphemeralTrx(nil)
	sf, err := trx.StateTransition(true, gens, senderInit, delta, fee)
	assert.NoError(t, err)
	trx.SignSender(gens, sf)
	rf, err := trx.StateTransition(false, gens, receiverInit, delta, fee)
	assert.NoError(t, err)
	trx.SignReceiver(gens, rf)

	buf, err := trx.Marshal(nil)
	assert.NoError(t, err)
	assert.Len(t, buf, EphemeralWireSize)

	decoded := NewEphemeralTrx(nil)
	assert.NoError(t, decoded.Unmarshal(buf))
	assert.Equal(t, trx.Fingerprint(), decoded.Fingerprint())

	_, _, err = decoded.IsValid(gens)
	assert.NoError(t, err)
}

func TestHiddenValidSignaturesAndProof(t *testing.T) {
	gens := pedersen.NewGenerators([]byte("txs-test"))
	senderPub, senderPriv, _ := ed25519.GenerateKey(nil)
	receiverPub, receiverPriv, _ := ed25519.GenerateKey(nil)

	senderInit := NewSecrets(50, randScalar())
	receiverInit := NewSecrets(0, randScalar())
	delta := NewSecrets(5, randScalar())
	fee := NewSecrets(1, randScalar())

	trx := NewHiddenTrx(nil)
	trx.SenderAddr = senderPub
	trx.ReceiverAddr = receiverPub

	_, err := trx.StateTransition(true, gens, senderInit, delta, fee)
	assert.NoError(t, err)
	trx.SignSender(senderPriv)

	_, err = trx.StateTransition(false, gens, receiverInit, delta, fee)
	assert.NoError(t, err)
	trx.SignReceiver(receiverPriv)

	senderInitCommit := senderInit.Commit(gens)
	receiverInitCommit := receiverInit.Commit(gens)
	_, _, err = trx.IsValid(gens, senderInitCommit, receiverInitCommit)
	assert.NoError(t, err)
}

func TestRegularInsufficientBalanceRejected(t *testing.T) {
	senderPub, senderPriv, _ := ed25519.GenerateKey(nil)
	receiverPub, receiverPriv, _ := ed25519.GenerateKey(nil)

	trx := NewRegularTrx(nil)
	trx.SenderAddr = senderPub
	trx.ReceiverAddr = receiverPub
	trx.DeltaValue = 100
	trx.Fee = 1
	trx.SignSender(senderPriv)
	trx.SignReceiver(receiverPriv)

	_, _, err := trx.IsValid(50, 0)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestRegularMarshalUnmarshalRoundTrip(t *testing.T) {
	senderPub, senderPriv, _ := ed25519.GenerateKey(nil)
	receiverPub, receiverPriv, _ := ed25519.GenerateKey(nil)

	trx := NewRegularTrx(nil)
	trx.SenderAddr = senderPub
	trx.ReceiverAddr = receiverPub
	trx.DeltaValue = 10
	trx.Fee = 1
	trx.SignSender(senderPriv)
	trx.SignReceiver(receiverPriv)

	buf, err := trx.Marshal(nil)
	assert.NoError(t, err)

	decoded := NewRegularTrx(nil)
	assert.NoError(t, decoded.Unmarshal(buf))
	assert.Equal(t, trx.Fingerprint(), decoded.Fingerprint())
	assert.True(t, decoded.VerifySigs())
}
