package wire

import "encoding/binary"

// HeaderSize is the length of the plaintext header carried at the
// front of every frame's (decrypted) payload.
const HeaderSize = 3

// Header is the leading (code, msg_id) pair inside a frame's payload.
type Header struct {
	Code  Code
	MsgID uint16
}

// Marshal writes the 3-byte header into buf[0:3].
func (h Header) Marshal(buf []byte) {
	buf[0] = byte(h.Code)
	binary.LittleEndian.PutUint16(buf[1:3], h.MsgID)
}

// UnmarshalHeader reads a 3-byte header from the front of buf.
func UnmarshalHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortBuffer
	}
	return Header{
		Code:  Code(buf[0]),
		MsgID: binary.LittleEndian.Uint16(buf[1:3]),
	}, nil
}
