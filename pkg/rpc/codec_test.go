package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bullet-ledger/node/pkg/internalmsg"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Code: CodeAddPeer, Length: 8}
	buf := make([]byte, HeaderSize)
	h.Marshal(buf)

	got, err := UnmarshalHeader(buf)
	assert.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestAddrsRoundTrip(t *testing.T) {
	addrs := [][4]byte{{1, 2, 3, 4}, {10, 0, 0, 1}}
	body := internalmsg.PeerListMsg{Addrs: addrs}.EncodeAddrs()
	assert.Equal(t, addrs, internalmsg.DecodeAddrs(body))
}
