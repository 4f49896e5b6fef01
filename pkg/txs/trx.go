// Package txs implements the three transaction variants the mempool
// and block executor operate on: ephemeral (Schnorr-bound Pedersen
// commitments), hidden (Ed25519-bound Pedersen commitments), and
// regular (Ed25519-bound plaintext balances). All three share the
// arithmetic contract of §4.5: sender subtracts delta+fee with a
// range proof on the residual, receiver adds delta with no proof.
// Ported from the original's src/trxs/{ephemeral,hidden,regular}.rs,
// replacing curve25519-dalek/bulletproofs/ed25519-dalek with
// bwesterb/go-ristretto, this module's own rangeproof package, the
// stdlib crypto/ed25519, and lukechampine.com/blake3.
package txs

import (
	"encoding/binary"
	"errors"

	"github.com/bwesterb/go-ristretto"
	"lukechampine.com/blake3"

	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
	"github.com/bullet-ledger/node/pkg/wire"
	"github.com/bullet-ledger/node/rangeproof"
)

// DefaultTag is the domain separation tag used by the shared
// Bulletproofs transcript and fingerprint hash when a caller doesn't
// supply its own.
var DefaultTag = []byte("bullet_ledger")

// ProofLength is the fixed wire size of a Bulletproofs range proof.
const ProofLength = rangeproof.Size

// SharedFieldsLength is sender_field(32) + delta_commit(32) + fee(8)
// + receiver_field(32), the portion hashed into every fingerprint.
const SharedFieldsLength = 32 + 32 + 8 + 32

// TrxLength is ProofLength + SharedFieldsLength, the point at which
// the trailing signature/Schnorr material begins on the wire.
const TrxLength = ProofLength + SharedFieldsLength

var (
	ErrInvalidSignature = errors.New("txs: signature or proof verification failed")
	ErrDecompression    = errors.New("txs: point decompression failed")
	ErrShortBuffer      = errors.New("txs: short buffer")
	ErrInsufficientFunds = errors.New("txs: sender balance insufficient for delta + fee")
)

// Secrets bundles everything one side of a transaction leg needs to
// carry through a state transition: the u64 value, its scalar form,
// and the blinding factor. Commit derives the Pedersen commitment.
type Secrets struct {
	Val uint64
	X   ristretto.Scalar
	R   ristretto.Scalar
}

// NewSecrets derives X from val and pairs it with the blinding factor r.
func NewSecrets(val uint64, r ristretto.Scalar) Secrets {
	var x ristretto.Scalar
	x.SetBigInt(uint64ToBigInt(val))
	return Secrets{Val: val, X: x, R: r}
}

// Commit returns the Pedersen commitment to these secrets.
func (s Secrets) Commit(gens pedersen.Generators) ristretto.Point {
	return gens.Commit(s.X, s.R)
}

// Trx is the common surface every transaction variant implements so
// the mempool and block executor can treat them uniformly.
type Trx interface {
	Kind() wire.TrxKind
	Fingerprint() [32]byte
	FeeValue() uint64
	Marshal(buf []byte) ([]byte, error)
	Unmarshal(buf []byte) error
	WireSize() int
}

func fingerprintOf(tag []byte, senderField, deltaCommit []byte, feeValue uint64, receiverField []byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write(tag)
	h.Write(senderField)
	h.Write(deltaCommit)
	var feeBuf [8]byte
	binary.LittleEndian.PutUint64(feeBuf[:], feeValue)
	h.Write(feeBuf[:])
	h.Write(receiverField)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func putUint64(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf, v) }
func getUint64(buf []byte) uint64    { return binary.LittleEndian.Uint64(buf) }
