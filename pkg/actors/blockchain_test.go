package actors

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bullet-ledger/node/internal/spsc"
	"github.com/bullet-ledger/node/pkg/consensus"
	"github.com/bullet-ledger/node/pkg/crypto/pedersen"
	"github.com/bullet-ledger/node/pkg/internalmsg"
	"github.com/bullet-ledger/node/pkg/wire"
)

func openTestBlockchain(t *testing.T, roster *consensus.Roster) (*Blockchain, *spsc.Producer[*internalmsg.BlockchainEvent]) {
	t.Helper()
	dir := t.TempDir()
	gens := pedersen.NewGenerators([]byte("bullet-ledger-test"))

	prod, cons, err := spsc.New(16, 64, func(cap int) *internalmsg.BlockchainEvent {
		return &internalmsg.BlockchainEvent{Body: make([]byte, 0, cap)}
	})
	require.NoError(t, err)

	b, err := NewBlockchain(dir+"/ledger", 8, gens, roster, 0, consensus.Hash{}, cons)
	require.NoError(t, err)
	t.Cleanup(func() {
		b.Close()
		os.RemoveAll(dir)
	})
	return b, prod
}

func encodeVote(voter consensus.ValidatorID, source, target consensus.Target) []byte {
	body := make([]byte, voteWireSize)
	copy(body[0:32], voter[:])
	binary.LittleEndian.PutUint64(body[32:40], source.Epoch)
	copy(body[40:72], source.Hash[:])
	binary.LittleEndian.PutUint64(body[72:80], target.Epoch)
	copy(body[80:112], target.Hash[:])
	return body
}

func TestAdmitTrxRejectsMalformedBody(t *testing.T) {
	roster := consensus.NewRoster(nil)
	b, _ := openTestBlockchain(t, roster)

	err := b.admitTrx(append([]byte{byte(wire.TrxEphemeral)}, make([]byte, 4)...))
	assert.Error(t, err)
	assert.Equal(t, 0, b.pool.Len())
}

func TestAdmitVoteJustifiesAtSuperMajority(t *testing.T) {
	var v1, v2 consensus.ValidatorID
	v1[0], v2[0] = 1, 2
	roster := consensus.NewRoster(map[consensus.ValidatorID]uint64{v1: 1, v2: 1})

	b, prod := openTestBlockchain(t, roster)

	var targetHash consensus.Hash
	targetHash[0] = 0xAB
	genesis := consensus.Target{Epoch: 0, Hash: consensus.Hash{}}
	target := consensus.Target{Epoch: 1, Hash: targetHash}

	prod.TryPush(&internalmsg.BlockchainEvent{Kind: internalmsg.EventVote, Body: encodeVote(v1, genesis, target)})
	require.NoError(t, b.RunOnce())

	epoch, hash := b.LastJustified()
	assert.Equal(t, uint64(0), epoch)
	assert.Equal(t, consensus.Hash{}, hash)

	prod.TryPush(&internalmsg.BlockchainEvent{Kind: internalmsg.EventVote, Body: encodeVote(v2, genesis, target)})
	require.NoError(t, b.RunOnce())

	epoch, hash = b.LastJustified()
	assert.Equal(t, uint64(1), epoch)
	assert.Equal(t, targetHash, hash)
}
