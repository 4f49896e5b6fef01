package actors

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/bullet-ledger/node/internal/spsc"
	"github.com/bullet-ledger/node/pkg/consensus"
	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
	"github.com/bullet-ledger/node/pkg/internalmsg"
	"github.com/bullet-ledger/node/pkg/ledger"
	"github.com/bullet-ledger/node/pkg/mempool"
	"github.com/bullet-ledger/node/pkg/txs"
	"github.com/bullet-ledger/node/pkg/wire"
)

// Blockchain owns the authenticated KV and the mempool: it admits
// transactions announced by the networker and applies announced votes
// to the checkpoint tree. ExecuteBlock runs a block a caller supplies;
// the event loop itself never executes blocks.
type Blockchain struct {
	kv     *ledger.Store
	pool   *mempool.Pool
	gens   pedersen.Generators
	consns *consensus.Consensus

	fromNetworker *spsc.Consumer[*internalmsg.BlockchainEvent]
}

// NewBlockchain opens the ledger at path, constructs the mempool bounded
// at poolCap, and roots the checkpoint tree at the given genesis
// (epoch, hash) under roster.
func NewBlockchain(path string, poolCap int, gens pedersen.Generators, roster *consensus.Roster, genesisEpoch uint64, genesisHash consensus.Hash, fromNetworker *spsc.Consumer[*internalmsg.BlockchainEvent]) (*Blockchain, error) {
	kv, err := ledger.Open(path)
	if err != nil {
		return nil, err
	}
	return &Blockchain{
		kv:            kv,
		pool:          mempool.New(poolCap),
		gens:          gens,
		consns:        consensus.New(roster, genesisEpoch, genesisHash),
		fromNetworker: fromNetworker,
	}, nil
}

// admitTrx decodes and validates an incoming transaction announcement
// before inserting it into the mempool. An ephemeral transaction is
// inserted only if IsValid accepts it; hidden and regular transactions
// are inserted once both signatures verify, with no range-proof or
// balance check at this point.
func (b *Blockchain) admitTrx(body []byte) error {
	if len(body) < 1 {
		return errors.New("blockchain: empty NewTrx body")
	}
	kind := wire.TrxKind(body[0])
	raw := body[1:]

	switch kind {
	case wire.TrxEphemeral:
		t := txs.NewEphemeralTrx(nil)
		if err := t.Unmarshal(raw); err != nil {
			return err
		}
		if _, _, err := t.IsValid(b.gens); err != nil {
			return err
		}
		b.pool.Insert(t)
	case wire.TrxHidden:
		t := txs.NewHiddenTrx(nil)
		if err := t.Unmarshal(raw); err != nil {
			return err
		}
		if !t.VerifySigs() {
			return txs.ErrInvalidSignature
		}
		b.pool.Insert(t)
	case wire.TrxRegular:
		t := txs.NewRegularTrx(nil)
		if err := t.Unmarshal(raw); err != nil {
			return err
		}
		if !t.VerifySigs() {
			return txs.ErrInvalidSignature
		}
		b.pool.Insert(t)
	default:
		return errors.New("blockchain: unknown transaction kind")
	}
	return nil
}

// ExecuteBlock runs the block executor (§4.5) against the mempool and
// authenticated KV.
func (b *Blockchain) ExecuteBlock(blk ledger.Block) ([32]byte, error) {
	return ledger.Execute(b.kv, b.pool, b.gens, blk)
}

// voteWireSize is the fixed-layout encoding of a Vote announcement:
// voter(32) ‖ source_epoch(8) ‖ source_hash(32) ‖ target_epoch(8) ‖
// target_hash(32).
const voteWireSize = 32 + 8 + 32 + 8 + 32

// admitVote decodes a Vote announcement and applies it to the
// checkpoint tree, returning the justified tail (if any) for the
// caller to act on.
func (b *Blockchain) admitVote(body []byte) (*consensus.Justified, error) {
	if len(body) < voteWireSize {
		return nil, errors.New("blockchain: short vote body")
	}
	var voter consensus.ValidatorID
	copy(voter[:], body[0:32])

	var v consensus.Vote
	v.Source.Epoch = binary.LittleEndian.Uint64(body[32:40])
	copy(v.Source.Hash[:], body[40:72])
	v.Target.Epoch = binary.LittleEndian.Uint64(body[72:80])
	copy(v.Target.Hash[:], body[80:112])

	return b.consns.OnVote(voter, v)
}

// LastJustified exposes the checkpoint tree's current finality pointer.
func (b *Blockchain) LastJustified() (uint64, consensus.Hash) {
	return b.consns.LastJustified()
}

// drainNetworker processes every queued event. Admission and vote
// failures are swallowed (malformed or invalid transactions are simply
// never pooled); NewBlock events are discarded unapplied, so it always
// returns nil.
func (b *Blockchain) drainNetworker() error {
	if b.fromNetworker == nil {
		return nil
	}
	for {
		ev, ok := b.fromNetworker.Pop()
		if !ok {
			return nil
		}
		switch ev.Kind {
		case internalmsg.EventNewTrx:
			b.admitTrx(ev.Body)
		case internalmsg.EventVote:
			// A vote only advances the checkpoint pointer; the
			// justified tail it may return is not acted on here.
			b.admitVote(ev.Body)
		case internalmsg.EventNewBlock:
			// NewBlock bodies are dropped: they are neither decoded
			// nor executed, and nothing else is triggered.
		}
	}
}

// RunOnce drains one batch of networker events.
func (b *Blockchain) RunOnce() error {
	return b.drainNetworker()
}

// Run loops RunOnce until shutdown is set.
func (b *Blockchain) Run(shutdown *atomic.Bool) error {
	for !shutdown.Load() {
		if err := b.RunOnce(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the ledger handle.
func (b *Blockchain) Close() error {
	return b.kv.Close()
}
