// Package internalmsg defines the messages actors exchange over their
// SPSC channels rather than the wire: peer-store mutations the RPC
// actor requests of the networker, and new-transaction/new-block/vote
// announcements the networker forwards to the blockchain actor.
package internalmsg

// NetManCode identifies the operation an internal message destined for
// the networker's inbound SPSC requests, per §4.7.
type NetManCode uint8

const (
	AddPeer NetManCode = iota + 1
	RemovePeer
)

// PeerListMsg is the internal message the RPC actor emits: a NetManCode
// plus the concatenation of 4-byte IPv4 addresses to add or remove.
type PeerListMsg struct {
	Code  NetManCode
	Addrs [][4]byte
}

// EncodeAddrs flattens Addrs back into the wire body format RPC itself
// parses (§4.7): a plain concatenation of 4-byte addresses.
func (m PeerListMsg) EncodeAddrs() []byte {
	buf := make([]byte, 4*len(m.Addrs))
	for i, a := range m.Addrs {
		copy(buf[i*4:i*4+4], a[:])
	}
	return buf
}

// DecodeAddrs splits a concatenated-IPv4 body back into individual
// addresses, per §4.7's "body of add/remove is a concatenation of
// 4-byte IPv4 addresses."
func DecodeAddrs(body []byte) [][4]byte {
	n := len(body) / 4
	out := make([][4]byte, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], body[i*4:i*4+4])
	}
	return out
}

// BlockchainEventKind distinguishes the three payload shapes the
// networker forwards to the blockchain actor over its inbound SPSC.
type BlockchainEventKind uint8

const (
	EventNewBlock BlockchainEventKind = iota + 1
	EventNewTrx
	EventVote
)

// BlockchainEvent carries a raw, still-encoded NewBlock, NewTrx or Vote body
// from the wire into the blockchain actor's own address space, where it
// is unmarshalled against the concrete transaction/block types.
type BlockchainEvent struct {
	Kind BlockchainEventKind
	Body []byte
}
