package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixRoundTrip(t *testing.T) {
	p := Prefix{Length: 1234}
	copy(p.Nonce[:], []byte("abcdefghijkl"))
	copy(p.Tag[:], []byte("0123456789abcdef"))

	buf := make([]byte, PrefixSize)
	p.Marshal(buf)

	got, err := UnmarshalPrefix(buf)
	assert.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Code: CodeBlockchain, MsgID: 0xBEEF}
	buf := make([]byte, HeaderSize)
	h.Marshal(buf)

	got, err := UnmarshalHeader(buf)
	assert.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestUnmarshalPrefixShortBuffer(t *testing.T) {
	_, err := UnmarshalPrefix(make([]byte, 10))
	assert.Equal(t, ErrShortBuffer, err)
}
