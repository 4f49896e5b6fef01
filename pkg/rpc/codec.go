// Package rpc implements the admin control plane of §4.7: a minimal
// framed protocol (code:u8 ‖ length:u64-LE ‖ body) carrying AddPeer and
// RemovePeer commands, each translated into an internal message handed
// to the networker actor. Unlike the peer codec (§4.2) this transport
// is unauthenticated and unencrypted — it is meant for a trusted local
// operator, not the public network.
package rpc

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderSize is code(1) + length(8).
const HeaderSize = 9

// Code is the leading byte of an RPC frame.
type Code uint8

const (
	CodeAddPeer    Code = 1
	CodeRemovePeer Code = 2
)

var ErrShortBuffer = errors.New("rpc: short buffer")

// Header is the 9-byte (code, length) pair at the front of every frame.
type Header struct {
	Code   Code
	Length uint64
}

func (h Header) Marshal(buf []byte) {
	buf[0] = byte(h.Code)
	binary.LittleEndian.PutUint64(buf[1:9], h.Length)
}

func UnmarshalHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortBuffer
	}
	return Header{Code: Code(buf[0]), Length: binary.LittleEndian.Uint64(buf[1:9])}, nil
}
