// Package reputation implements the peer scoring store the networker
// consults before accepting or dialing a connection: a
// mattn/go-sqlite3-backed table of address → score, with a configurable
// ban threshold. Grounded on the ambient stack's choice of go-sqlite3
// (already in the teacher's dependency surface) for small embedded
// tables that don't need goleveldb's LSM write path.
package reputation

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/bullet-ledger/node/internal/neterr"
)

// Store tracks a misbehavior score per IPv4 address.
type Store struct {
	db        *sql.DB
	threshold int
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures the scores table exists.
func Open(path string, threshold int) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "reputation: open")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS scores (
		addr BLOB PRIMARY KEY,
		score INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "reputation: migrate")
	}
	return &Store{db: db, threshold: threshold}, nil
}

// Score returns addr's current score, 0 if never seen.
func (s *Store) Score(addr [4]byte) (int, error) {
	var score int
	err := s.db.QueryRow(`SELECT score FROM scores WHERE addr = ?`, addr[:]).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, neterr.New(neterr.PeerDbQuery, false, "reputation: score", err)
	}
	return score, nil
}

// Bump adds delta to addr's score, inserting a row at delta if absent.
func (s *Store) Bump(addr [4]byte, delta int) error {
	if delta == 0 {
		return nil
	}
	_, err := s.db.Exec(`INSERT INTO scores (addr, score) VALUES (?, ?)
		ON CONFLICT(addr) DO UPDATE SET score = score + excluded.score`, addr[:], delta)
	if err != nil {
		return neterr.New(neterr.PeerDbExec, false, "reputation: bump", err)
	}
	return nil
}

// BumpForError applies the reputation bump carried by a taxonomy error,
// the networker's single call site for translating protocol misbehavior
// into a score change.
func (s *Store) BumpForError(addr [4]byte, err *neterr.Error) error {
	if err == nil {
		return nil
	}
	return s.Bump(addr, err.Score())
}

// AllowConnection reports whether addr's score is still under the ban
// threshold.
func (s *Store) AllowConnection(addr [4]byte) (bool, error) {
	score, err := s.Score(addr)
	if err != nil {
		return false, err
	}
	return score < s.threshold, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
