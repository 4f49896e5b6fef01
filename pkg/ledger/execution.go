package ledger

import (
	"github.com/bwesterb/go-ristretto"
	"github.com/pkg/errors"

	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
	"github.com/bullet-ledger/node/pkg/mempool"
	"github.com/bullet-ledger/node/pkg/txs"
	"github.com/bullet-ledger/node/pkg/wire"
)

// Block is the deterministic execution unit: an ordered list of
// fingerprints already agreed on by consensus, plus the validator
// identity fee accrues to. Grounded on the original's
// execute_hidden_block, generalized across all three transaction
// variants instead of one.
type Block struct {
	PrevHash          [32]byte
	Hash              [32]byte
	ValidatorCommit   ristretto.Point
	Fingerprints      []mempool.Fingerprint
}

var ErrTrxKindMismatch = errors.New("ledger: pooled transaction kind does not match dispatch")

// Execute applies every fingerprint in blk against pool and kv,
// staging all mutations under blk.Hash so a mid-block failure can be
// rolled back in one call to kv.Revert. On full-block success it
// calls kv.Finalize and returns the resulting root commitment.
func Execute(kv AuthenticatedKV, pool *mempool.Pool, gens pedersen.Generators, blk Block) ([32]byte, error) {
	var feeAccum ristretto.Point
	feeAccum.SetZero()

	for _, fp := range blk.Fingerprints {
		trx, ok := pool.RemoveOne(fp)
		if !ok {
			// Validator proposed a fingerprint this node never
			// admitted; skip rather than fail the block.
			continue
		}

		feeCommit, err := executeOne(kv, gens, blk.Hash, trx)
		if err != nil {
			kv.Revert(blk.Hash)
			return [32]byte{}, errors.Wrap(err, "ledger: execute")
		}
		feeAccum.Add(&feeAccum, &feeCommit)
	}

	validatorKey := blk.ValidatorCommit.Bytes()
	if err := kv.Put(blk.Hash, validatorKey, feeAccum.Bytes()); err != nil {
		kv.Revert(blk.Hash)
		return [32]byte{}, err
	}

	return kv.Finalize(blk.Hash)
}

func feeAsCommitment(gens pedersen.Generators, fee uint64) ristretto.Point {
	var feeScalar ristretto.Scalar
	feeScalar.SetBigInt(uint64ToBigInt(fee))
	var feeCommit ristretto.Point
	feeCommit.ScalarMultBase(&feeScalar)
	return feeCommit
}

func executeOne(kv AuthenticatedKV, gens pedersen.Generators, blockHash [32]byte, trx txs.Trx) (ristretto.Point, error) {
	switch trx.Kind() {
	case wire.TrxEphemeral:
		return executeEphemeral(kv, gens, blockHash, trx)
	case wire.TrxHidden:
		return executeHidden(kv, gens, blockHash, trx)
	case wire.TrxRegular:
		return executeRegular(kv, gens, blockHash, trx)
	default:
		return ristretto.Point{}, ErrTrxKindMismatch
	}
}

func executeEphemeral(kv AuthenticatedKV, gens pedersen.Generators, blockHash [32]byte, trxIface txs.Trx) (ristretto.Point, error) {
	trx, ok := trxIface.(*txs.EphemeralTrx)
	if !ok {
		return ristretto.Point{}, ErrTrxKindMismatch
	}
	senderFinal, receiverFinal, err := trx.IsValid(gens)
	if err != nil {
		return ristretto.Point{}, err
	}

	senderInitKey := trx.SenderInit.Bytes()
	receiverInitKey := trx.ReceiverInit.Bytes()
	if err := kv.Remove(blockHash, senderInitKey); err != nil {
		return ristretto.Point{}, err
	}
	if err := kv.Remove(blockHash, receiverInitKey); err != nil {
		return ristretto.Point{}, err
	}
	senderFinalKey := senderFinal.Bytes()
	receiverFinalKey := receiverFinal.Bytes()
	if err := kv.Put(blockHash, senderFinalKey, senderFinalKey); err != nil {
		return ristretto.Point{}, err
	}
	if err := kv.Put(blockHash, receiverFinalKey, receiverFinalKey); err != nil {
		return ristretto.Point{}, err
	}

	return feeAsCommitment(gens, trx.Fee), nil
}

func executeHidden(kv AuthenticatedKV, gens pedersen.Generators, blockHash [32]byte, trxIface txs.Trx) (ristretto.Point, error) {
	trx, ok := trxIface.(*txs.HiddenTrx)
	if !ok {
		return ristretto.Point{}, ErrTrxKindMismatch
	}

	senderInit, err := loadCommitment(kv, trx.SenderAddr)
	if err != nil {
		return ristretto.Point{}, err
	}
	receiverInit, err := loadCommitment(kv, trx.ReceiverAddr)
	if err != nil {
		return ristretto.Point{}, err
	}

	senderFinal, receiverFinal, err := trx.IsValid(gens, senderInit, receiverInit)
	if err != nil {
		return ristretto.Point{}, err
	}

	if err := kv.Put(blockHash, trx.SenderAddr, senderFinal.Bytes()); err != nil {
		return ristretto.Point{}, err
	}
	if err := kv.Put(blockHash, trx.ReceiverAddr, receiverFinal.Bytes()); err != nil {
		return ristretto.Point{}, err
	}

	return feeAsCommitment(gens, trx.Fee), nil
}

func executeRegular(kv AuthenticatedKV, gens pedersen.Generators, blockHash [32]byte, trxIface txs.Trx) (ristretto.Point, error) {
	trx, ok := trxIface.(*txs.RegularTrx)
	if !ok {
		return ristretto.Point{}, ErrTrxKindMismatch
	}

	senderInit, err := loadUint64(kv, trx.SenderAddr)
	if err != nil {
		return ristretto.Point{}, err
	}
	receiverInit, err := loadUint64(kv, trx.ReceiverAddr)
	if err != nil {
		return ristretto.Point{}, err
	}

	senderFinal, receiverFinal, err := trx.IsValid(senderInit, receiverInit)
	if err != nil {
		return ristretto.Point{}, err
	}

	if err := kv.Put(blockHash, trx.SenderAddr, uint64ToLE(senderFinal)); err != nil {
		return ristretto.Point{}, err
	}
	if err := kv.Put(blockHash, trx.ReceiverAddr, uint64ToLE(receiverFinal)); err != nil {
		return ristretto.Point{}, err
	}

	return feeAsCommitment(gens, trx.Fee), nil
}

func loadCommitment(kv AuthenticatedKV, key []byte) (ristretto.Point, error) {
	var p ristretto.Point
	v, ok, err := kv.Get(key)
	if err != nil {
		return p, err
	}
	if !ok {
		p.SetZero()
		return p, nil
	}
	var raw [32]byte
	copy(raw[:], v)
	if !p.SetBytes(&raw) {
		return p, errors.New("ledger: stored commitment is malformed")
	}
	return p, nil
}

func loadUint64(kv AuthenticatedKV, key []byte) (uint64, error) {
	v, ok, err := kv.Get(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if len(v) < 8 {
		return 0, errors.New("ledger: stored balance is malformed")
	}
	return leUint64(v), nil
}
