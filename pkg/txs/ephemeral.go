package txs

import (
	"github.com/bwesterb/go-ristretto"

	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
	"github.com/bullet-ledger/node/pkg/crypto/schnorr"
	"github.com/bullet-ledger/node/pkg/wire"
	"github.com/bullet-ledger/node/rangeproof"
)

// EphemeralWireSize is TrxLength plus two 96-byte Schnorr proofs.
const EphemeralWireSize = TrxLength + schnorr.Size*2

// EphemeralTrx identifies both parties by a one-shot Pedersen
// commitment and binds them with Schnorr proofs of knowledge of
// (value, blinding), rather than a long-lived signing key. Grounded
// on the original's EphemeralTrx.
type EphemeralTrx struct {
	Tag  []byte
	Hash [32]byte

	SenderProof  *rangeproof.Proof
	SenderInit   ristretto.Point
	DeltaCommit  ristretto.Point
	Fee          uint64
	ReceiverInit ristretto.Point

	SenderSchnorr   schnorr.Proof
	ReceiverSchnorr schnorr.Proof
}

// NewEphemeralTrx constructs an empty transaction tagged for the
// shared Bulletproofs transcript/fingerprint domain.
func NewEphemeralTrx(tag []byte) *EphemeralTrx {
	if tag == nil {
		tag = DefaultTag
	}
	return &EphemeralTrx{Tag: tag}
}

func (t *EphemeralTrx) Kind() wire.TrxKind { return wire.TrxEphemeral }
func (t *EphemeralTrx) FeeValue() uint64   { return t.Fee }
func (t *EphemeralTrx) WireSize() int      { return EphemeralWireSize }

// ComputeHash derives the fingerprint over the shared fields, binding
// both commitments and the fee into a single Fiat-Shamir context.
func (t *EphemeralTrx) ComputeHash() {
	senderInit := t.SenderInit.Bytes()
	delta := t.DeltaCommit.Bytes()
	receiverInit := t.ReceiverInit.Bytes()
	t.Hash = fingerprintOf(t.Tag, senderInit, delta, t.Fee, receiverInit)
}

// Fingerprint returns the cached fingerprint, computing it if unset.
func (t *EphemeralTrx) Fingerprint() [32]byte {
	var zero [32]byte
	if t.Hash == zero {
		t.ComputeHash()
	}
	return t.Hash
}

// StateTransition derives the post-transaction secrets for one leg.
// Sender legs additionally produce a range proof on the residual.
func (t *EphemeralTrx) StateTransition(isSender bool, gens pedersen.Generators, init, delta, fee Secrets) (Secrets, error) {
	var val uint64
	var x, r ristretto.Scalar

	if isSender {
		t.SenderInit = init.Commit(gens)
		t.DeltaCommit = delta.Commit(gens)
		t.Fee = fee.Val

		r.Sub(&init.R, &delta.R)
		r.Sub(&r, &fee.R)
		x.Sub(&init.X, &delta.X)
		x.Sub(&x, &fee.X)
		if delta.Val+fee.Val > init.Val {
			return Secrets{}, ErrInsufficientFunds
		}
		val = init.Val - delta.Val - fee.Val

		proof, err := rangeproof.Generate(gens, val, r)
		if err != nil {
			return Secrets{}, err
		}
		t.SenderProof = proof
	} else {
		t.ReceiverInit = init.Commit(gens)
		r.Add(&init.R, &delta.R)
		x.Add(&init.X, &delta.X)
		val = init.Val + delta.Val
	}

	return Secrets{Val: val, X: x, R: r}, nil
}

// SignSender generates the sender's Schnorr proof of knowledge of
// (value, blinding) over the transaction fingerprint.
func (t *EphemeralTrx) SignSender(gens pedersen.Generators, s Secrets) {
	t.ComputeHash()
	t.SenderSchnorr = schnorr.Generate(gens, s.X, s.R, t.Hash)
}

// SignReceiver generates the receiver's Schnorr proof.
func (t *EphemeralTrx) SignReceiver(gens pedersen.Generators, s Secrets) {
	t.ComputeHash()
	t.ReceiverSchnorr = schnorr.Generate(gens, s.X, s.R, t.Hash)
}

// VerifySchnorrs checks both proofs against their respective
// commitments and the transaction's fingerprint.
func (t *EphemeralTrx) VerifySchnorrs(gens pedersen.Generators) bool {
	t.ComputeHash()
	return t.SenderSchnorr.Verify(gens, t.SenderInit, t.Hash) &&
		t.ReceiverSchnorr.Verify(gens, t.ReceiverInit, t.Hash)
}

// IsValid checks Schnorr proofs and the sender's range proof against
// the predicted final commitments, returning them on success.
func (t *EphemeralTrx) IsValid(gens pedersen.Generators) (senderFinal, receiverFinal ristretto.Point, err error) {
	if !t.VerifySchnorrs(gens) {
		return senderFinal, receiverFinal, ErrInvalidSignature
	}
	if t.SenderProof == nil {
		return senderFinal, receiverFinal, ErrInvalidSignature
	}

	var feeScalar ristretto.Scalar
	feeScalar.SetBigInt(uint64ToBigInt(t.Fee))
	var feeCommit ristretto.Point
	feeCommit.ScalarMultBase(&feeScalar)

	senderFinal.Sub(&t.SenderInit, &t.DeltaCommit)
	senderFinal.Sub(&senderFinal, &feeCommit)
	receiverFinal.Add(&t.ReceiverInit, &t.DeltaCommit)

	if !t.SenderProof.Verify(gens, senderFinal) {
		return senderFinal, receiverFinal, ErrInvalidSignature
	}
	return senderFinal, receiverFinal, nil
}

// Marshal writes the fixed-size wire encoding: range proof, shared
// fields, then both Schnorr proofs.
func (t *EphemeralTrx) Marshal(buf []byte) ([]byte, error) {
	if len(buf) < EphemeralWireSize {
		buf = make([]byte, EphemeralWireSize)
	}
	if t.SenderProof != nil {
		if err := t.SenderProof.Marshal(buf[:ProofLength]); err != nil {
			return nil, err
		}
	}
	c := ProofLength
	copy(buf[c:c+32], t.SenderInit.Bytes())
	copy(buf[c+32:c+64], t.DeltaCommit.Bytes())
	putUint64(buf[c+64:c+72], t.Fee)
	copy(buf[c+72:c+104], t.ReceiverInit.Bytes())

	t.SenderSchnorr.Marshal(buf[TrxLength : TrxLength+96])
	t.ReceiverSchnorr.Marshal(buf[TrxLength+96 : TrxLength+192])
	return buf[:EphemeralWireSize], nil
}

// Unmarshal reads a buffer produced by Marshal.
func (t *EphemeralTrx) Unmarshal(buf []byte) error {
	if len(buf) < EphemeralWireSize {
		return ErrShortBuffer
	}
	proof, err := rangeproof.Unmarshal(buf[:ProofLength])
	if err != nil {
		return err
	}
	t.SenderProof = proof
	c := ProofLength

	var senderRaw, deltaRaw, receiverRaw [32]byte
	copy(senderRaw[:], buf[c:c+32])
	copy(deltaRaw[:], buf[c+32:c+64])
	t.Fee = getUint64(buf[c+64 : c+72])
	copy(receiverRaw[:], buf[c+72:c+104])

	if !t.SenderInit.SetBytes(&senderRaw) {
		return ErrDecompression
	}
	if !t.DeltaCommit.SetBytes(&deltaRaw) {
		return ErrDecompression
	}
	if !t.ReceiverInit.SetBytes(&receiverRaw) {
		return ErrDecompression
	}

	senderSchnorr, err := schnorr.Unmarshal(buf[TrxLength : TrxLength+96])
	if err != nil {
		return err
	}
	receiverSchnorr, err := schnorr.Unmarshal(buf[TrxLength+96 : TrxLength+192])
	if err != nil {
		return err
	}
	t.SenderSchnorr = senderSchnorr
	t.ReceiverSchnorr = receiverSchnorr

	t.ComputeHash()
	return nil
}
