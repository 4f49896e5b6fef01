package peer

import (
	"github.com/pkg/errors"

	"github.com/bullet-ledger/node/pkg/crypto"
)

// handshakeAAD is the fixed associated data every sealed frame on an
// established connection is bound to.
const handshakeAAD = "bullet_ledger"

// hkdfInfo is the HKDF context string distinguishing the session key
// from any other secret this module derives from the same shared point.
const hkdfInfo = "bullet_ledger"

var (
	errShortSyn  = errors.New("peer: short negotiation syn")
	errShortAck  = errors.New("peer: short negotiation ack")
	errHandshake = errors.New("peer: handshake verification failed")
)

// encodeSyn builds the dialer's plaintext SYN: our_pub || salt_i.
func encodeSyn(ourPub, saltI [32]byte) []byte {
	buf := make([]byte, 64)
	copy(buf[0:32], ourPub[:])
	copy(buf[32:64], saltI[:])
	return buf
}

func decodeSyn(body []byte) (theirPub, saltI [32]byte, err error) {
	if len(body) < 64 {
		return theirPub, saltI, errShortSyn
	}
	copy(theirPub[:], body[0:32])
	copy(saltI[:], body[32:64])
	return theirPub, saltI, nil
}

// encodeAck builds the acceptor's reply: our_pub || salt_r || nonce ||
// tag || AEAD_seal(final_salt), sized 32+32+12+16+32 = 124 bytes.
func encodeAck(ourPub, saltR [32]byte, nonce [12]byte, ciphertext, tag []byte) []byte {
	buf := make([]byte, 124)
	copy(buf[0:32], ourPub[:])
	copy(buf[32:64], saltR[:])
	copy(buf[64:76], nonce[:])
	copy(buf[76:92], tag)
	copy(buf[92:124], ciphertext)
	return buf
}

func decodeAck(body []byte) (theirPub, saltR [32]byte, nonce [12]byte, ciphertext, tag []byte, err error) {
	if len(body) < 124 {
		return theirPub, saltR, nonce, nil, nil, errShortAck
	}
	copy(theirPub[:], body[0:32])
	copy(saltR[:], body[32:64])
	copy(nonce[:], body[64:76])
	tag = append([]byte{}, body[76:92]...)
	ciphertext = append([]byte{}, body[92:124]...)
	return theirPub, saltR, nonce, ciphertext, tag, nil
}

// deriveSessionKey runs the shared ECDH+HKDF step both sides perform,
// parameterized only by which salts are already known.
func deriveSessionKey(ourPriv, theirPub [32]byte, finalSalt [32]byte) ([32]byte, error) {
	shared, err := crypto.X25519Shared(ourPriv, theirPub)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "peer: x25519")
	}
	key, err := crypto.HKDFDeriveKey(shared, hkdfInfo, finalSalt)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "peer: hkdf")
	}
	return key, nil
}

// acceptHandshake runs the acceptor's half of step 2: derive the shared
// key and produce the ACK body to send back.
func acceptHandshake(ourPriv, ourPub [32]byte, theirPub, saltI [32]byte) (key [32]byte, ackBody []byte, err error) {
	saltR, err := crypto.RandBytes32()
	if err != nil {
		return key, nil, err
	}
	finalSalt := crypto.FinalSalt(saltI, saltR)

	key, err = deriveSessionKey(ourPriv, theirPub, finalSalt)
	if err != nil {
		return key, nil, err
	}

	nonce, ciphertext, tag, err := crypto.Seal(key, []byte(handshakeAAD), finalSalt[:])
	if err != nil {
		return key, nil, err
	}
	return key, encodeAck(ourPub, saltR, nonce, ciphertext, tag), nil
}

// finishHandshake runs the dialer's half of step 3: recompute the final
// salt, derive the key, and verify the echoed value.
func finishHandshake(ourPriv, theirPub, saltI, saltR [32]byte, nonce [12]byte, ciphertext, tag []byte) (key [32]byte, err error) {
	finalSalt := crypto.FinalSalt(saltI, saltR)
	key, err = deriveSessionKey(ourPriv, theirPub, finalSalt)
	if err != nil {
		return key, err
	}
	opened, err := crypto.Open(key, nonce, []byte(handshakeAAD), ciphertext, tag)
	if err != nil {
		return key, errors.Wrap(errHandshake, err.Error())
	}
	if string(opened) != string(finalSalt[:]) {
		return key, errHandshake
	}
	return key, nil
}
