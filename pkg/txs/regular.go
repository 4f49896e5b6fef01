package txs

import (
	"crypto/ed25519"

	"github.com/bullet-ledger/node/pkg/wire"
)

// RegularWireSize: sender_addr(32) + delta_value(8) + fee(8) +
// receiver_addr(32) + sender_sig(64) + receiver_sig(64).
const RegularWireSize = 32 + 8 + 8 + 32 + ed25519.SignatureSize*2

// RegularTrx carries plaintext balances rather than Pedersen
// commitments: there is nothing to hide, so no range proof is
// produced — the non-negativity of the sender's residual is checked
// directly. The original's RegularTrx is an unfinished stub; this
// fills it in following HiddenTrx's identity/signature shape with
// the confidential fields replaced by plaintext ones.
type RegularTrx struct {
	Tag  []byte
	Hash [32]byte

	SenderAddr ed25519.PublicKey
	DeltaValue uint64
	Fee        uint64

	ReceiverAddr ed25519.PublicKey

	SenderSig   []byte
	ReceiverSig []byte
}

func NewRegularTrx(tag []byte) *RegularTrx {
	if tag == nil {
		tag = DefaultTag
	}
	return &RegularTrx{Tag: tag}
}

func (t *RegularTrx) Kind() wire.TrxKind { return wire.TrxRegular }
func (t *RegularTrx) FeeValue() uint64   { return t.Fee }
func (t *RegularTrx) WireSize() int      { return RegularWireSize }

func (t *RegularTrx) ComputeHash() {
	var deltaBuf [8]byte
	putUint64(deltaBuf[:], t.DeltaValue)
	t.Hash = fingerprintOf(t.Tag, t.SenderAddr, deltaBuf[:], t.Fee, t.ReceiverAddr)
}

func (t *RegularTrx) Fingerprint() [32]byte {
	var zero [32]byte
	if t.Hash == zero {
		t.ComputeHash()
	}
	return t.Hash
}

// StateTransition applies the plaintext delta directly; sender legs
// fail with ErrInsufficientFunds instead of a failed range proof.
func (t *RegularTrx) StateTransition(isSender bool, initVal, deltaVal, feeVal uint64) (uint64, error) {
	t.DeltaValue = deltaVal
	t.Fee = feeVal

	if isSender {
		if deltaVal+feeVal > initVal {
			return 0, ErrInsufficientFunds
		}
		return initVal - deltaVal - feeVal, nil
	}
	return initVal + deltaVal, nil
}

func (t *RegularTrx) SignSender(key ed25519.PrivateKey) {
	t.ComputeHash()
	t.SenderSig = ed25519.Sign(key, t.Hash[:])
}

func (t *RegularTrx) SignReceiver(key ed25519.PrivateKey) {
	t.ComputeHash()
	t.ReceiverSig = ed25519.Sign(key, t.Hash[:])
}

func (t *RegularTrx) VerifySigs() bool {
	t.ComputeHash()
	return ed25519.Verify(t.SenderAddr, t.Hash[:], t.SenderSig) &&
		ed25519.Verify(t.ReceiverAddr, t.Hash[:], t.ReceiverSig)
}

// IsValid verifies signatures and checks the caller-supplied sender
// balance (read from storage) can cover delta + fee, returning both
// parties' post-transaction balances on success.
func (t *RegularTrx) IsValid(senderInitVal, receiverInitVal uint64) (senderFinal, receiverFinal uint64, err error) {
	if !t.VerifySigs() {
		return 0, 0, ErrInvalidSignature
	}
	if t.DeltaValue+t.Fee > senderInitVal {
		return 0, 0, ErrInsufficientFunds
	}
	return senderInitVal - t.DeltaValue - t.Fee, receiverInitVal + t.DeltaValue, nil
}

func (t *RegularTrx) Marshal(buf []byte) ([]byte, error) {
	if len(buf) < RegularWireSize {
		buf = make([]byte, RegularWireSize)
	}
	copy(buf[0:32], t.SenderAddr)
	putUint64(buf[32:40], t.DeltaValue)
	putUint64(buf[40:48], t.Fee)
	copy(buf[48:80], t.ReceiverAddr)
	copy(buf[80:144], t.SenderSig)
	copy(buf[144:208], t.ReceiverSig)
	return buf[:RegularWireSize], nil
}

func (t *RegularTrx) Unmarshal(buf []byte) error {
	if len(buf) < RegularWireSize {
		return ErrShortBuffer
	}
	t.SenderAddr = append(ed25519.PublicKey{}, buf[0:32]...)
	t.DeltaValue = getUint64(buf[32:40])
	t.Fee = getUint64(buf[40:48])
	t.ReceiverAddr = append(ed25519.PublicKey{}, buf[48:80]...)
	t.SenderSig = append([]byte{}, buf[80:144]...)
	t.ReceiverSig = append([]byte{}, buf[144:208]...)
	t.ComputeHash()
	return nil
}
