// Package wire defines the on-the-wire frame layout shared by every
// peer connection: a fixed 36-byte prefix carrying the AEAD nonce and
// tag ahead of a length-delimited, optionally encrypted payload whose
// own leading bytes are a small (code, msg_id) header. Modeled on the
// teacher's pkg/p2p/wire package naming, replacing its dusk
// block/tx message set with this project's frame/header/codes.
package wire

import (
	"encoding/binary"
	"errors"
)

// PrefixSize is the fixed byte length of a frame's prefix.
const PrefixSize = 36

// NonceSize and TagSize are the ChaCha20-Poly1305 nonce and
// authentication tag sizes used by every Established connection.
const (
	NonceSize = 12
	TagSize   = 16
)

var (
	ErrShortBuffer    = errors.New("wire: short buffer")
	ErrPayloadTooLong = errors.New("wire: payload exceeds configured maximum")
)

// Prefix is the fixed leading 36 bytes of every frame.
type Prefix struct {
	Length uint64
	Nonce  [NonceSize]byte
	Tag    [TagSize]byte
}

// Marshal writes the prefix into buf[0:36].
func (p Prefix) Marshal(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], p.Length)
	copy(buf[8:8+NonceSize], p.Nonce[:])
	copy(buf[8+NonceSize:PrefixSize], p.Tag[:])
}

// UnmarshalPrefix reads a 36-byte prefix from the front of buf.
func UnmarshalPrefix(buf []byte) (Prefix, error) {
	if len(buf) < PrefixSize {
		return Prefix{}, ErrShortBuffer
	}
	var p Prefix
	p.Length = binary.LittleEndian.Uint64(buf[0:8])
	copy(p.Nonce[:], buf[8:8+NonceSize])
	copy(p.Tag[:], buf[8+NonceSize:PrefixSize])
	return p, nil
}
