package consensus

import (
	"encoding/hex"

	"github.com/bwesterb/go-ristretto"
	"github.com/pkg/errors"

	"github.com/bullet-ledger/node/internal/config"
)

// ValidatorID is the Blake3-style hash identifying a validator slot in
// the vote/checkpoint maps.
type ValidatorID [32]byte

// Validator is one roster entry: an identity, its Ristretto commitment
// (the point fee/stake is ultimately credited to), and its fixed
// voting weight.
type Validator struct {
	ID        ValidatorID
	PublicKey ristretto.Point
	Weight    uint64
}

// Roster is the static-weight validator set resolving §4.6's "derive
// the next validator state" Open Question (see SPEC_FULL.md §4.6-FULL):
// loaded once at startup from a companion TOML file, unchanged across
// epochs by this implementation.
type Roster struct {
	byID   map[ValidatorID]Validator
	total  uint64
}

// LoadRoster parses path (a config.Roster TOML document) into a Roster,
// computing each entry's point from its hex-encoded compressed form.
func LoadRoster(path string) (*Roster, error) {
	raw, err := config.LoadRoster(path)
	if err != nil {
		return nil, err
	}

	r := &Roster{byID: make(map[ValidatorID]Validator, len(raw.Validators))}
	for _, v := range raw.Validators {
		idBytes, err := hex.DecodeString(v.IDHex)
		if err != nil || len(idBytes) != 32 {
			return nil, errors.Errorf("consensus: bad validator id %q", v.IDHex)
		}
		var id ValidatorID
		copy(id[:], idBytes)

		pubBytes, err := hex.DecodeString(v.PublicKey)
		if err != nil || len(pubBytes) != 32 {
			return nil, errors.Errorf("consensus: bad validator pubkey %q", v.PublicKey)
		}
		var raw32 [32]byte
		copy(raw32[:], pubBytes)
		var pt ristretto.Point
		if !pt.SetBytes(&raw32) {
			return nil, errors.Errorf("consensus: undecodable validator point %q", v.PublicKey)
		}

		r.byID[id] = Validator{ID: id, PublicKey: pt, Weight: v.Weight}
		r.total += v.Weight
	}
	return r, nil
}

// NewRoster builds a Roster directly from validator weights, for
// callers (and tests) that already have identities and weights in hand
// rather than a TOML file to parse.
func NewRoster(weights map[ValidatorID]uint64) *Roster {
	r := &Roster{byID: make(map[ValidatorID]Validator, len(weights))}
	for id, w := range weights {
		r.byID[id] = Validator{ID: id, Weight: w}
		r.total += w
	}
	return r
}

// IsValidator reports membership by identity.
func (r *Roster) IsValidator(id ValidatorID) bool {
	_, ok := r.byID[id]
	return ok
}

// Weight returns id's configured weight, 0 if not a member.
func (r *Roster) Weight(id ValidatorID) uint64 {
	return r.byID[id].Weight
}

// SuperMajority returns ⌈(2/3)·Σweight⌉ over the current roster, the
// justification threshold of §4.6.
func (r *Roster) SuperMajority() uint64 {
	return (2*r.total + 2) / 3
}
