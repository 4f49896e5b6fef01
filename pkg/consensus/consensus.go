// Package consensus implements the checkpoint/justification actor of
// §4.6: an epoch-bucketed tree of CheckpointNodes, FFG-style voting with
// a deterministic fork-choice tiebreak, and justification that
// linearizes a justified tail for the execution layer. Grounded on the
// original's src/blockchain/checkpoint.rs structure, generalized from
// a fixed validator table to the roster of §4.6-FULL.
package consensus

import "github.com/pkg/errors"

var (
	// ErrStaleVote is returned when a voter's new target epoch doesn't
	// strictly exceed its previous vote, per §4.6's surround-vote check.
	ErrStaleVote   = errors.New("consensus: vote target epoch did not advance")
	ErrUnknownNode = errors.New("consensus: target node not found in its epoch bucket")
)

// Justified is the linearized canonical tail produced by a
// justification event: the ordered list of hashes from the previously
// justified epoch (exclusive) down to the newly justified target.
type Justified struct {
	Hashes []Hash
}

// Consensus owns the epoch buckets and per-validator vote log.
type Consensus struct {
	roster *Roster

	lastJustifiedEpoch uint64
	lastJustifiedHash  Hash

	validators map[ValidatorID]Vote
	buckets    map[uint64]map[Hash]*CheckpointNode
}

// New constructs a Consensus actor rooted at genesis.
func New(roster *Roster, genesisEpoch uint64, genesisHash Hash) *Consensus {
	root := &CheckpointNode{Hash: genesisHash, Epoch: genesisEpoch}
	return &Consensus{
		roster:             roster,
		lastJustifiedEpoch: genesisEpoch,
		lastJustifiedHash:  genesisHash,
		validators:         make(map[ValidatorID]Vote),
		buckets: map[uint64]map[Hash]*CheckpointNode{
			genesisEpoch: {genesisHash: root},
		},
	}
}

func (c *Consensus) nodeAt(epoch uint64, hash Hash) (*CheckpointNode, bool) {
	bucket, ok := c.buckets[epoch]
	if !ok {
		return nil, false
	}
	n, ok := bucket[hash]
	return n, ok
}

func (c *Consensus) getOrCreate(epoch uint64, hash Hash, parent *CheckpointNode) *CheckpointNode {
	bucket, ok := c.buckets[epoch]
	if !ok {
		bucket = make(map[Hash]*CheckpointNode)
		c.buckets[epoch] = bucket
	}
	n, ok := bucket[hash]
	if !ok {
		n = &CheckpointNode{Hash: hash, Epoch: epoch, Parent: parent}
		bucket[hash] = n
		if parent != nil {
			parent.Children = append(parent.Children, n)
		}
	}
	return n
}

// OnVote applies voter's ballot: rejects a non-advancing target epoch,
// adds weight to the target node, and updates the fork-choice pointer
// on the target's parent. Returns a non-nil *Justified if the vote
// justified the target, in which case the caller should hand its
// Hashes to the execution layer in order.
func (c *Consensus) OnVote(voter ValidatorID, v Vote) (*Justified, error) {
	if prev, ok := c.validators[voter]; ok && v.Target.Epoch <= prev.Target.Epoch {
		return nil, ErrStaleVote
	}
	c.validators[voter] = v

	parent, ok := c.nodeAt(v.Source.Epoch, v.Source.Hash)
	if !ok {
		parent = c.getOrCreate(v.Source.Epoch, v.Source.Hash, nil)
	}
	target := c.getOrCreate(v.Target.Epoch, v.Target.Hash, parent)

	weight := c.roster.Weight(voter)
	target.Weight += weight

	if heavier(target, parent.HeaviestChild) {
		parent.HeaviestChild = target
	}

	if target.Weight >= c.roster.SuperMajority() {
		return c.justify(target), nil
	}
	return nil, nil
}

// justify walks parents from target back to the current
// lastJustifiedEpoch/Hash, collects the linearized tail, removes the
// intermediate buckets, and advances the justified pointer.
func (c *Consensus) justify(target *CheckpointNode) *Justified {
	var tail []Hash
	node := target
	for node != nil && !(node.Epoch == c.lastJustifiedEpoch && node.Hash == c.lastJustifiedHash) {
		tail = append(tail, node.Hash)
		node = node.Parent
	}
	// Reverse into chronological order (oldest unjustified ancestor first).
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}

	for epoch := c.lastJustifiedEpoch; epoch < target.Epoch; epoch++ {
		delete(c.buckets, epoch)
	}
	c.lastJustifiedEpoch = target.Epoch
	c.lastJustifiedHash = target.Hash

	return &Justified{Hashes: tail}
}

// Poll advances the epoch boundary check; the current implementation's
// validator set never rotates (§4.6-FULL), so this only reports whether
// now has crossed the epoch boundary the caller should act on.
//
// TODO: once roster rotation lands, this is the call site that would
// swap in the next epoch's Roster.
func (c *Consensus) Poll(nowEpoch uint64) bool {
	return nowEpoch > c.lastJustifiedEpoch
}

// LastJustified returns the most recently justified (epoch, hash).
func (c *Consensus) LastJustified() (uint64, Hash) {
	return c.lastJustifiedEpoch, c.lastJustifiedHash
}
