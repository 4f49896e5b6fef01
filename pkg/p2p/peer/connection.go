package peer

import (
	"crypto/rand"
	"io"

	"golang.org/x/sys/unix"

	"github.com/bullet-ledger/node/internal/neterr"
	"github.com/bullet-ledger/node/pkg/crypto"
	"github.com/bullet-ledger/node/pkg/wire"
)

// ReadState is the Read FSM's current stage (§4.2).
type ReadState int

const (
	ReadingPrefix ReadState = iota
	Reading
	Processing
)

// WriteState is the Write FSM's current stage.
type WriteState int

const (
	Idle WriteState = iota
	Writing
)

// HandshakeState tracks progress through the X25519/HKDF/ChaCha20-Poly1305
// handshake described in §4.2.
type HandshakeState int

const (
	HandshakeNone HandshakeState = iota
	HandshakeSynSent
	HandshakeAcking
	Established
)

// Dispatcher resolves an inbound frame to a handler by code. A
// registered correlation for msg_id is checked first and takes
// priority; this is only consulted when no correlation matched.
type Dispatcher interface {
	HandlerFor(code wire.Code, msgID uint16) Handler
}

// Connection is one peer socket's independent reader/writer/handshake
// state machine, driven entirely by readiness edges — it never blocks.
type Connection struct {
	fd      int
	addr    [4]byte
	port    uint16
	dialer  bool

	readState      ReadState
	writeState     WriteState
	handshakeState HandshakeState

	prefixBuf    [wire.PrefixSize]byte
	prefixFilled int
	prefix       wire.Prefix

	bodyBuf    []byte
	bodyFilled int

	key [32]byte

	ourPriv, ourPub [32]byte
	saltI, saltR    [32]byte

	outbound []*NetMsg
	writeBuf []byte
	writeOff int
	curCode  wire.Code
	curMsgID uint16
	// curHandler is the in-flight frame's response handler, moved into
	// inboundHandlers once the frame is fully written.
	curHandler Handler

	inboundHandlers map[uint16]Handler

	// LastActive is never updated by Connection itself; the server
	// tracks idleness in its own per-fd stamps.
	LastActive int64
}

// NewConnection wraps fd, which must already be non-blocking. dialer is
// true for outbound connections, which send the SYN; false for accepted
// connections, which wait for one.
func NewConnection(fd int, addr [4]byte, port uint16, dialer bool, ourPriv, ourPub [32]byte) *Connection {
	return &Connection{
		fd:              fd,
		addr:            addr,
		port:            port,
		dialer:          dialer,
		ourPriv:         ourPriv,
		ourPub:          ourPub,
		inboundHandlers: make(map[uint16]Handler),
		bodyBuf:         make([]byte, 0, 4096),
	}
}

func (c *Connection) Fd() int           { return c.fd }
func (c *Connection) Addr() [4]byte     { return c.addr }
func (c *Connection) IsEstablished() bool { return c.handshakeState == Established }

// StartHandshake queues the dialer's plaintext SYN. Called once right
// after a successful non-blocking connect.
func (c *Connection) StartHandshake() error {
	saltI, err := crypto.RandBytes32()
	if err != nil {
		return err
	}
	c.saltI = saltI
	c.handshakeState = HandshakeSynSent

	msg := &NetMsg{Code: wire.CodeNegotiationSyn, Body: encodeSyn(c.ourPub, c.saltI)}
	c.Enqueue(msg)
	return nil
}

// Enqueue appends msg to the outbound queue. The Write FSM picks it up
// the next time OnWritable runs.
func (c *Connection) Enqueue(msg *NetMsg) {
	c.outbound = append(c.outbound, msg)
}

// AwaitResponse registers a continuation for a correlated reply, used by
// handlers that issue a request and want the answer routed back to them
// rather than dispatched by code.
func (c *Connection) AwaitResponse(msgID uint16, h Handler) {
	c.inboundHandlers[msgID] = h
}

func randMsgID() uint16 {
	var b [2]byte
	_, _ = io.ReadFull(rand.Reader, b[:])
	return uint16(b[0]) | uint16(b[1])<<8
}

// OnReadable drives the Read FSM until the socket would block, an error
// occurs, or the connection must be torn down. internalOut receives any
// NetMsg produced by Processing that the caller should route onward
// (e.g. a NewTrx frame destined for the mempool).
func (c *Connection) OnReadable(dispatch Dispatcher, internalOut func(*NetMsg)) *neterr.Error {
	for {
		switch c.readState {
		case ReadingPrefix:
			n, err := unix.Read(c.fd, c.prefixBuf[c.prefixFilled:wire.PrefixSize])
			if done, nerr := c.handleIOResult(n, err, true); done {
				return nerr
			}
			c.prefixFilled += n
			if c.prefixFilled < wire.PrefixSize {
				return nil
			}
			prefix, perr := wire.UnmarshalPrefix(c.prefixBuf[:])
			if perr != nil {
				return neterr.New(neterr.MalformedPrefix, true, "peer: prefix", perr)
			}
			c.prefix = prefix
			if cap(c.bodyBuf) < int(prefix.Length) {
				c.bodyBuf = make([]byte, prefix.Length)
			} else {
				c.bodyBuf = c.bodyBuf[:prefix.Length]
			}
			c.bodyFilled = 0
			c.readState = Reading

		case Reading:
			if c.bodyFilled == len(c.bodyBuf) {
				c.readState = Processing
				continue
			}
			n, err := unix.Read(c.fd, c.bodyBuf[c.bodyFilled:])
			if done, nerr := c.handleIOResult(n, err, true); done {
				return nerr
			}
			c.bodyFilled += n
			if c.bodyFilled < len(c.bodyBuf) {
				return nil
			}
			c.readState = Processing

		case Processing:
			nerr := c.process(dispatch, internalOut)
			c.prefixFilled = 0
			c.readState = ReadingPrefix
			if nerr != nil {
				return nerr
			}
		}
	}
}

// handleIOResult normalizes a raw unix.Read/Write result: (false, nil)
// means "n bytes progressed, keep looping"; (true, nerr) means stop,
// nerr may be nil for a clean WOULDBLOCK.
func (c *Connection) handleIOResult(n int, err error, isRead bool) (done bool, nerr *neterr.Error) {
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return true, nil
		}
		return true, neterr.New(neterr.SocketFailed, true, "peer: io", err)
	}
	if n == 0 && isRead {
		return true, neterr.New(neterr.ConnectionAborted, true, "peer: peer closed", nil)
	}
	return false, nil
}

// process decrypts (if Established) and dispatches the just-completed
// frame, per §4.2's Processing stage.
func (c *Connection) process(dispatch Dispatcher, internalOut func(*NetMsg)) *neterr.Error {
	var plaintext []byte
	if c.IsEstablished() {
		opened, err := crypto.Open(c.key, c.prefix.Nonce, []byte(handshakeAAD), c.bodyBuf, c.prefix.Tag[:])
		if err != nil {
			return neterr.New(neterr.Decryption, true, "peer: open", err)
		}
		plaintext = opened
	} else {
		plaintext = c.bodyBuf
	}

	hdr, err := wire.UnmarshalHeader(plaintext)
	if err != nil {
		return neterr.New(neterr.MalformedPrefix, true, "peer: header", err)
	}
	body := plaintext[wire.HeaderSize:]

	if !c.IsEstablished() && hdr.Code != wire.CodeNegotiationSyn && hdr.Code != wire.CodeNegotiationAck {
		return neterr.New(neterr.Unauthorized, true, "peer: frame before handshake", nil)
	}

	switch hdr.Code {
	case wire.CodeNegotiationSyn:
		return c.handleSyn(body)
	case wire.CodeNegotiationAck:
		return c.handleAck(body)
	}

	h, correlated := c.inboundHandlers[hdr.MsgID]
	if correlated {
		delete(c.inboundHandlers, hdr.MsgID)
	} else if dispatch != nil {
		h = dispatch.HandlerFor(hdr.Code, hdr.MsgID)
	}
	if h == nil {
		return nil
	}

	msg := &NetMsg{Code: hdr.Code, MsgID: hdr.MsgID, Body: append([]byte{}, body...)}
	reply, herr := h(c, msg)
	if herr != nil {
		return neterr.New(neterr.Unauthorized, false, "peer: handler", herr)
	}
	if reply != nil {
		if reply.Internal && internalOut != nil {
			internalOut(reply)
		} else {
			c.Enqueue(reply)
		}
	}
	return nil
}

func (c *Connection) handleSyn(body []byte) *neterr.Error {
	if c.dialer {
		return neterr.New(neterr.Unauthorized, true, "peer: unexpected syn", nil)
	}
	theirPub, saltI, err := decodeSyn(body)
	if err != nil {
		return neterr.New(neterr.MalformedPrefix, true, "peer: syn", err)
	}
	key, ackBody, err := acceptHandshake(c.ourPriv, c.ourPub, theirPub, saltI)
	if err != nil {
		return neterr.New(neterr.NegotiationFailed, true, "peer: accept handshake", err)
	}
	c.key = key
	c.handshakeState = HandshakeAcking
	c.Enqueue(&NetMsg{Code: wire.CodeNegotiationAck, Body: ackBody})
	return nil
}

func (c *Connection) handleAck(body []byte) *neterr.Error {
	if !c.dialer || c.handshakeState != HandshakeSynSent {
		return neterr.New(neterr.Unauthorized, true, "peer: unexpected ack", nil)
	}
	theirPub, saltR, nonce, ciphertext, tag, err := decodeAck(body)
	if err != nil {
		return neterr.New(neterr.MalformedPrefix, true, "peer: ack", err)
	}
	c.saltR = saltR
	key, err := finishHandshake(c.ourPriv, theirPub, c.saltI, saltR, nonce, ciphertext, tag)
	if err != nil {
		return neterr.New(neterr.Unauthorized, true, "peer: finish handshake", err)
	}
	c.key = key
	c.handshakeState = Established
	return nil
}

// OnWritable drives the Write FSM until the socket would block or the
// outbound queue drains. onInternalReturn receives internal messages
// popped from the front of the queue so the caller can recycle them
// back to the originating SPSC.
func (c *Connection) OnWritable(onInternalReturn func(*NetMsg)) *neterr.Error {
	for {
		switch c.writeState {
		case Idle:
			if len(c.outbound) == 0 {
				return nil
			}
			msg := c.outbound[0]
			c.outbound = c.outbound[1:]
			if msg.Internal {
				if onInternalReturn != nil {
					onInternalReturn(msg)
				}
				continue
			}
			if err := c.prepareWrite(msg); err != nil {
				return neterr.New(neterr.Encryption, false, "peer: seal", err)
			}
			c.curMsgID = msg.MsgID
			c.curHandler = msg.ResponseHandler
			c.writeState = Writing

		case Writing:
			n, err := unix.Write(c.fd, c.writeBuf[c.writeOff:])
			if done, nerr := c.handleIOResult(n, err, false); done {
				return nerr
			}
			c.writeOff += n
			if c.writeOff < len(c.writeBuf) {
				return nil
			}
			if c.curHandler != nil {
				c.inboundHandlers[c.curMsgID] = c.curHandler
				c.curHandler = nil
			}
			if c.curCode == wire.CodeNegotiationAck && c.handshakeState == HandshakeAcking {
				c.handshakeState = Established
			}
			c.writeState = Idle
		}
	}
}

// prepareWrite marshals msg into c.writeBuf, sealing it first if the
// connection is Established.
func (c *Connection) prepareWrite(msg *NetMsg) error {
	if msg.MsgID == 0 {
		msg.MsgID = randMsgID()
	}
	c.curCode = msg.Code

	plaintext := make([]byte, wire.HeaderSize+len(msg.Body))
	wire.Header{Code: msg.Code, MsgID: msg.MsgID}.Marshal(plaintext)
	copy(plaintext[wire.HeaderSize:], msg.Body)

	var prefix wire.Prefix
	var payload []byte

	if c.IsEstablished() {
		nonce, ciphertext, tag, err := crypto.Seal(c.key, []byte(handshakeAAD), plaintext)
		if err != nil {
			return err
		}
		prefix = wire.Prefix{Length: uint64(len(ciphertext)), Nonce: nonce, Tag: [wire.TagSize]byte{}}
		copy(prefix.Tag[:], tag)
		payload = ciphertext
	} else {
		prefix = wire.Prefix{Length: uint64(len(plaintext))}
		payload = plaintext
	}

	buf := make([]byte, wire.PrefixSize+len(payload))
	prefix.Marshal(buf)
	copy(buf[wire.PrefixSize:], payload)

	c.writeBuf = buf
	c.writeOff = 0
	return nil
}

// HasPendingWrites reports whether the write side still has queued
// frames or an in-flight partial write, the server's cue to keep
// writable interest registered.
func (c *Connection) HasPendingWrites() bool {
	return c.writeState == Writing || len(c.outbound) > 0
}

// Close releases the underlying socket.
func (c *Connection) Close() error {
	return unix.Close(c.fd)
}
