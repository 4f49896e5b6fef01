package txs

import (
	"crypto/ed25519"

	"github.com/bwesterb/go-ristretto"

	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
	"github.com/bullet-ledger/node/pkg/wire"
	"github.com/bullet-ledger/node/rangeproof"
)

// HiddenWireSize is TrxLength plus two 64-byte Ed25519 signatures,
// plus the leading 32-byte sender address the original prefixes onto
// the buffer ahead of the range proof.
const HiddenWireSize = 32 + TrxLength + ed25519.SignatureSize*2

// HiddenTrx identifies both parties by a long-lived Ed25519 public
// key and keeps balances as Pedersen commitments, binding the
// transition with ordinary signatures rather than Schnorr proofs of
// knowledge. Grounded on the original's HiddenTrx.
type HiddenTrx struct {
	Tag  []byte
	Hash [32]byte

	SenderProof *rangeproof.Proof
	SenderAddr  ed25519.PublicKey

	DeltaCommit ristretto.Point
	Fee         uint64

	ReceiverAddr ed25519.PublicKey

	SenderSig   []byte
	ReceiverSig []byte
}

func NewHiddenTrx(tag []byte) *HiddenTrx {
	if tag == nil {
		tag = DefaultTag
	}
	return &HiddenTrx{Tag: tag}
}

func (t *HiddenTrx) Kind() wire.TrxKind { return wire.TrxHidden }
func (t *HiddenTrx) FeeValue() uint64   { return t.Fee }
func (t *HiddenTrx) WireSize() int      { return HiddenWireSize }

func (t *HiddenTrx) ComputeHash() {
	delta := t.DeltaCommit.Bytes()
	t.Hash = fingerprintOf(t.Tag, t.SenderAddr, delta, t.Fee, t.ReceiverAddr)
}

func (t *HiddenTrx) Fingerprint() [32]byte {
	var zero [32]byte
	if t.Hash == zero {
		t.ComputeHash()
	}
	return t.Hash
}

// StateTransition mirrors EphemeralTrx.StateTransition but identifies
// the acting party by address rather than a one-shot commitment.
func (t *HiddenTrx) StateTransition(isSender bool, gens pedersen.Generators, init, delta, fee Secrets) (Secrets, error) {
	var val uint64
	var x, r ristretto.Scalar

	t.DeltaCommit = delta.Commit(gens)
	t.Fee = fee.Val

	if isSender {
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
		r.Add(&init.R, &delta.R)
		x.Add(&init.X, &delta.X)
		val = init.Val + delta.Val
	}

	return Secrets{Val: val, X: x, R: r}, nil
}

func (t *HiddenTrx) SignSender(key ed25519.PrivateKey) {
	t.ComputeHash()
	t.SenderSig = ed25519.Sign(key, t.Hash[:])
}

func (t *HiddenTrx) SignReceiver(key ed25519.PrivateKey) {
	t.ComputeHash()
	t.ReceiverSig = ed25519.Sign(key, t.Hash[:])
}

func (t *HiddenTrx) VerifySigs() bool {
	t.ComputeHash()
	return ed25519.Verify(t.SenderAddr, t.Hash[:], t.SenderSig) &&
		ed25519.Verify(t.ReceiverAddr, t.Hash[:], t.ReceiverSig)
}

// IsValid verifies signatures and the sender's range proof against
// the caller-supplied initial commitments (read from storage, keyed
// by sender/receiver address), returning predicted finals on success.
func (t *HiddenTrx) IsValid(gens pedersen.Generators, senderInit, receiverInit ristretto.Point) (senderFinal, receiverFinal ristretto.Point, err error) {
	if !t.VerifySigs() {
		return senderFinal, receiverFinal, ErrInvalidSignature
	}
	if t.SenderProof == nil {
		return senderFinal, receiverFinal, ErrInvalidSignature
	}

	var feeScalar ristretto.Scalar
	feeScalar.SetBigInt(uint64ToBigInt(t.Fee))
	var feeCommit ristretto.Point
	feeCommit.ScalarMultBase(&feeScalar)

	senderFinal.Sub(&senderInit, &t.DeltaCommit)
	senderFinal.Sub(&senderFinal, &feeCommit)
	receiverFinal.Add(&receiverInit, &t.DeltaCommit)

	if !t.SenderProof.Verify(gens, senderFinal) {
		return senderFinal, receiverFinal, ErrInvalidSignature
	}
	return senderFinal, receiverFinal, nil
}

func (t *HiddenTrx) Marshal(buf []byte) ([]byte, error) {
	if len(buf) < HiddenWireSize {
		buf = make([]byte, HiddenWireSize)
	}
	copy(buf[0:32], t.SenderAddr)
	c := 32
	if t.SenderProof != nil {
		if err := t.SenderProof.Marshal(buf[c : c+ProofLength]); err != nil {
			return nil, err
		}
	}
	c += ProofLength
	copy(buf[c:c+32], t.SenderAddr)
	copy(buf[c+32:c+64], t.DeltaCommit.Bytes())
	putUint64(buf[c+64:c+72], t.Fee)
	copy(buf[c+72:c+104], t.ReceiverAddr)

	sigOff := 32 + TrxLength
	copy(buf[sigOff:sigOff+64], t.SenderSig)
	copy(buf[sigOff+64:sigOff+128], t.ReceiverSig)
	return buf[:HiddenWireSize], nil
}

func (t *HiddenTrx) Unmarshal(buf []byte) error {
	if len(buf) < HiddenWireSize {
		return ErrShortBuffer
	}
	c := 32
	proof, err := rangeproof.Unmarshal(buf[c : c+ProofLength])
	if err != nil {
		return err
	}
	t.SenderProof = proof
	c += ProofLength

	t.SenderAddr = append(ed25519.PublicKey{}, buf[c:c+32]...)
	var deltaRaw [32]byte
	copy(deltaRaw[:], buf[c+32:c+64])
	if !t.DeltaCommit.SetBytes(&deltaRaw) {
		return ErrDecompression
	}
	t.Fee = getUint64(buf[c+64 : c+72])
	t.ReceiverAddr = append(ed25519.PublicKey{}, buf[c+72:c+104]...)

	sigOff := 32 + TrxLength
	t.SenderSig = append([]byte{}, buf[sigOff:sigOff+64]...)
	t.ReceiverSig = append([]byte{}, buf[sigOff+64:sigOff+128]...)

	t.ComputeHash()
	return nil
}
