// Package ledger implements the authenticated key-value store the
// blockchain actor executes blocks against: an embedded goleveldb
// database fronted by a block-scoped staging layer, so a proof
// failure partway through a block can discard every mutation that
// block attempted rather than leaving the store half-applied. This
// resolves the "block execution reversibility" open question by
// staging into a per-block write set and committing only on full-block
// success, per the design notes. Grounded on the teacher's
// pkg/core/chain/database.go ldb wrapper around
// github.com/syndtr/goleveldb/leveldb, generalized from per-block
// headers/transactions to arbitrary account-balance keys.
package ledger

import (
	"bytes"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	lderrors "github.com/syndtr/goleveldb/leveldb/errors"
	"lukechampine.com/blake3"
)

// AuthenticatedKV is the contract the block executor consumes: plain
// reads, block-scoped writes that stage until Finalize, and an escape
// hatch (DB*) for data that isn't part of the trie (peer scores,
// validator rosters, etc. live in their own stores, but auxiliary
// bookkeeping can ride along here).
type AuthenticatedKV interface {
	Get(key []byte) ([]byte, bool, error)
	Put(blockHash [32]byte, key, value []byte) error
	Remove(blockHash [32]byte, key []byte) error
	Finalize(blockHash [32]byte) ([32]byte, error)
	Revert(blockHash [32]byte)

	DBPut(key, value []byte) error
	DBGet(key []byte) ([]byte, error)
	DBRemove(key []byte) error
	DBExists(key []byte) (bool, error)

	Close() error
}

type writeOp struct {
	remove bool
	key    []byte
	value  []byte
}

// Store is the goleveldb-backed AuthenticatedKV implementation.
type Store struct {
	mu      sync.Mutex
	db      *leveldb.DB
	staged  map[[32]byte][]writeOp
}

// Open creates or reopens the on-disk store at path, attempting
// leveldb's corruption recovery path before giving up.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if _, corrupted := err.(*lderrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if _, accessDenied := err.(*os.PathError); accessDenied {
		return nil, errors.Wrap(err, "ledger: could not open or create store")
	}
	if err != nil {
		return nil, errors.Wrap(err, "ledger: open")
	}
	return &Store{db: db, staged: make(map[[32]byte][]writeOp)}, nil
}

const liveValuePrefix = "v/"

func liveKey(key []byte) []byte {
	return append([]byte(liveValuePrefix), key...)
}

// Get reads the committed value for key, ignoring any in-flight
// staged writes for blocks not yet finalized.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	v, err := s.db.Get(liveKey(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "ledger: get")
	}
	return v, true, nil
}

// Put stages a write under blockHash; it is not visible to Get until
// Finalize commits the block.
func (s *Store) Put(blockHash [32]byte, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[blockHash] = append(s.staged[blockHash], writeOp{key: append([]byte{}, key...), value: append([]byte{}, value...)})
	return nil
}

// Remove stages a deletion under blockHash.
func (s *Store) Remove(blockHash [32]byte, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[blockHash] = append(s.staged[blockHash], writeOp{remove: true, key: append([]byte{}, key...)})
	return nil
}

// Revert discards every staged write for blockHash without touching
// the committed store.
func (s *Store) Revert(blockHash [32]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.staged, blockHash)
}

// Finalize commits blockHash's staged write set in one leveldb batch,
// then recomputes the root commitment over the full ordered set of
// live entries, so two stores that observed the same committed
// sequence always agree on the result.
func (s *Store) Finalize(blockHash [32]byte) ([32]byte, error) {
	s.mu.Lock()
	ops := s.staged[blockHash]
	delete(s.staged, blockHash)
	s.mu.Unlock()

	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.remove {
			batch.Delete(liveKey(op.key))
		} else {
			batch.Put(liveKey(op.key), op.value)
		}
	}
	if err := s.db.Write(batch, nil); err != nil {
		return [32]byte{}, errors.Wrap(err, "ledger: finalize write")
	}

	root, err := s.computeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	if err := s.DBPut(rootKeyFor(blockHash), root[:]); err != nil {
		return [32]byte{}, err
	}
	return root, nil
}

// computeRoot hashes the sorted set of live (key, value) pairs,
// standing in for a full Merkle Patricia Trie root while preserving
// its determinism property: identical live sets hash identically
// regardless of insertion order.
func (s *Store) computeRoot() ([32]byte, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	type kv struct{ k, v []byte }
	var entries []kv
	prefix := []byte(liveValuePrefix)
	for iter.Next() {
		k := iter.Key()
		if !bytes.HasPrefix(k, prefix) {
			continue
		}
		entries = append(entries, kv{k: append([]byte{}, k...), v: append([]byte{}, iter.Value()...)})
	}
	if err := iter.Error(); err != nil {
		return [32]byte{}, errors.Wrap(err, "ledger: iterate")
	}

	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].k, entries[j].k) < 0 })

	h := blake3.New(32, nil)
	for _, e := range entries {
		h.Write(e.k)
		h.Write(e.v)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

func rootKeyFor(blockHash [32]byte) []byte {
	return append([]byte("root/"), blockHash[:]...)
}

// DBPut writes directly to the committed store, bypassing staging.
func (s *Store) DBPut(key, value []byte) error {
	return errors.Wrap(s.db.Put(append([]byte("db/"), key...), value, nil), "ledger: db_put")
}

// DBGet reads directly from the committed store.
func (s *Store) DBGet(key []byte) ([]byte, error) {
	v, err := s.db.Get(append([]byte("db/"), key...), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return v, errors.Wrap(err, "ledger: db_get")
}

// DBRemove deletes directly from the committed store.
func (s *Store) DBRemove(key []byte) error {
	return errors.Wrap(s.db.Delete(append([]byte("db/"), key...), nil), "ledger: db_remove")
}

// DBExists reports whether key has a direct-store entry.
func (s *Store) DBExists(key []byte) (bool, error) {
	ok, err := s.db.Has(append([]byte("db/"), key...), nil)
	return ok, errors.Wrap(err, "ledger: db_exists")
}

// Close releases the underlying leveldb handle.
func (s *Store) Close() error {
	return s.db.Close()
}
