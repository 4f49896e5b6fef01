package reputation

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bullet-ledger/node/internal/neterr"
)

func openTestStore(t *testing.T, threshold int) *Store {
	f, err := os.CreateTemp("", "reputation-test-*.db")
	assert.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	store, err := Open(f.Name(), threshold)
	assert.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBanThresholdExceeded(t *testing.T) {
	store := openTestStore(t, 100)
	addr := [4]byte{10, 0, 0, 1}

	allowed, err := store.AllowConnection(addr)
	assert.NoError(t, err)
	assert.True(t, allowed)

	assert.NoError(t, store.Bump(addr, 30))
	assert.NoError(t, store.Bump(addr, 30))
	assert.NoError(t, store.Bump(addr, 30))

	score, err := store.Score(addr)
	assert.NoError(t, err)
	assert.Equal(t, 90, score)

	allowed, err = store.AllowConnection(addr)
	assert.NoError(t, err)
	assert.True(t, allowed)

	assert.NoError(t, store.Bump(addr, 20))
	allowed, err = store.AllowConnection(addr)
	assert.NoError(t, err)
	assert.False(t, allowed)
}

func TestBumpForErrorAppliesTaxonomyScore(t *testing.T) {
	store := openTestStore(t, 100)
	addr := [4]byte{10, 0, 0, 2}

	unauthorized := neterr.New(neterr.Unauthorized, true, "test", nil)
	assert.NoError(t, store.BumpForError(addr, unauthorized))

	score, err := store.Score(addr)
	assert.NoError(t, err)
	assert.Equal(t, 30, score)
}
