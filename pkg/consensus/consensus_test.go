package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRoster(weights ...uint64) (*Roster, []ValidatorID) {
	r := &Roster{byID: make(map[ValidatorID]Validator)}
	ids := make([]ValidatorID, len(weights))
	for i, w := range weights {
		var id ValidatorID
		id[0] = byte(i + 1)
		ids[i] = id
		r.byID[id] = Validator{ID: id, Weight: w}
		r.total += w
	}
	return r, ids
}

func TestSuperMajorityVoteJustifies(t *testing.T) {
	roster, ids := testRoster(10, 10, 10, 10)
	var genesis Hash
	c := New(roster, 0, genesis)

	target := Hash{1}
	var justified *Justified
	for i, id := range ids {
		vote := Vote{Source: Target{Epoch: 0, Hash: genesis}, Target: Target{Epoch: 1, Hash: target}}
		j, err := c.OnVote(id, vote)
		assert.NoError(t, err)
		if i < 2 {
			assert.Nil(t, j)
		} else {
			justified = j
		}
	}
	assert.NotNil(t, justified)
	epoch, hash := c.LastJustified()
	assert.Equal(t, uint64(1), epoch)
	assert.Equal(t, target, hash)
}

func TestStaleVoteRejected(t *testing.T) {
	roster, ids := testRoster(10)
	var genesis Hash
	c := New(roster, 0, genesis)

	first := Vote{Source: Target{0, genesis}, Target: Target{2, Hash{2}}}
	_, err := c.OnVote(ids[0], first)
	assert.NoError(t, err)

	stale := Vote{Source: Target{0, genesis}, Target: Target{1, Hash{1}}}
	_, err = c.OnVote(ids[0], stale)
	assert.ErrorIs(t, err, ErrStaleVote)
}

func TestHeaviestChildTiebreakIsDeterministic(t *testing.T) {
	a := &CheckpointNode{Hash: Hash{1}, Weight: 5}
	b := &CheckpointNode{Hash: Hash{0}, Weight: 5}
	assert.True(t, heavier(b, a))
	assert.False(t, heavier(a, b))
}

func TestSuperMajorityRounding(t *testing.T) {
	roster, _ := testRoster(1, 1, 1)
	assert.Equal(t, uint64(2), roster.SuperMajority())
}
