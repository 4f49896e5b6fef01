package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bullet-ledger/node/pkg/txs"
	"github.com/bullet-ledger/node/pkg/wire"
)

type stubTrx struct {
	fp  Fingerprint
	fee uint64
}

func (s *stubTrx) Kind() wire.TrxKind             { return wire.TrxRegular }
func (s *stubTrx) Fingerprint() [32]byte          { return s.fp }
func (s *stubTrx) FeeValue() uint64               { return s.fee }
func (s *stubTrx) Marshal(buf []byte) ([]byte, error) { return buf, nil }
func (s *stubTrx) Unmarshal(buf []byte) error     { return nil }
func (s *stubTrx) WireSize() int                  { return 0 }

var _ txs.Trx = (*stubTrx)(nil)

func fp(b byte) Fingerprint {
	var f Fingerprint
	f[0] = b
	return f
}

func TestEvictionKeepsHighestFees(t *testing.T) {
	p := New(3)
	p.Insert(&stubTrx{fp: fp(1), fee: 5})
	p.Insert(&stubTrx{fp: fp(2), fee: 7})
	p.Insert(&stubTrx{fp: fp(3), fee: 2})
	p.Insert(&stubTrx{fp: fp(4), fee: 10})

	assert.Equal(t, 3, p.Len())
	assert.False(t, p.Contains(fp(3)))

	seen := map[uint64]bool{}
	for p.Len() > 0 {
		_, trx, ok := p.Pop()
		assert.True(t, ok)
		seen[trx.FeeValue()] = true
	}
	assert.Equal(t, map[uint64]bool{10: true, 7: true, 5: true}, seen)
}

func TestDuplicateInsertIsIdempotent(t *testing.T) {
	p := New(10)
	f := fp(9)
	p.Insert(&stubTrx{fp: f, fee: 3})
	p.Insert(&stubTrx{fp: f, fee: 3})
	assert.Equal(t, 1, p.Len())
}

func TestPeekDiscardsStaleEntries(t *testing.T) {
	p := New(10)
	p.Insert(&stubTrx{fp: fp(1), fee: 1})
	p.Insert(&stubTrx{fp: fp(2), fee: 2})

	p.RemoveOne(fp(2))

	topFp, trx, ok := p.Peek()
	assert.True(t, ok)
	assert.Equal(t, fp(1), topFp)
	assert.Equal(t, uint64(1), trx.FeeValue())
}

func TestCapacityNeverExceeded(t *testing.T) {
	p := New(2)
	for i := byte(0); i < 20; i++ {
		p.Insert(&stubTrx{fp: fp(i), fee: uint64(i)})
		assert.LessOrEqual(t, p.Len(), 2)
	}
}
