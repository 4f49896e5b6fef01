// Package crypto collects the primitives the peer transport and the
// transaction engine share: Blake3 hashing, X25519 key agreement, HKDF
// key derivation, and ChaCha20-Poly1305 sealing. Ed25519 signing lives in
// ed25519.go; Pedersen commitments and Schnorr proofs live in their own
// sub-packages since they operate over the Ristretto group rather than
// raw bytes.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
	"lukechampine.com/blake3"
)

// Hash is an opaque 32-byte Blake3 digest. Equality is byte-equality;
// ordering is lexicographic, per the data model.
type Hash [32]byte

// Less reports whether h sorts before o in lexicographic byte order.
func (h Hash) Less(o Hash) bool {
	for i := range h {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}

// SumBlake3 hashes the concatenation of parts with Blake3.
func SumBlake3(parts ...[]byte) Hash {
	h := blake3.New(32, nil)
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// RandBytes32 returns 32 cryptographically random bytes, used for the
// handshake's per-side salt.
func RandBytes32() ([32]byte, error) {
	var b [32]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return b, err
	}
	return b, nil
}

// FinalSalt combines the initiator's and responder's salts the same way
// both sides of the handshake must: SHA-256(salt_i || salt_r).
func FinalSalt(saltI, saltR [32]byte) [32]byte {
	h := sha256.New()
	h.Write(saltI[:])
	h.Write(saltR[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// X25519Shared derives the ECDH shared secret for (priv, theirPub).
func X25519Shared(priv, theirPub [32]byte) ([32]byte, error) {
	var out [32]byte
	shared, err := curve25519.X25519(priv[:], theirPub[:])
	if err != nil {
		return out, err
	}
	copy(out[:], shared)
	return out, nil
}

// HKDFDeriveKey derives a 32-byte ChaCha20-Poly1305 key from the shared
// secret, using the wire AAD string as the HKDF info and the session's
// final salt as the HKDF salt.
func HKDFDeriveKey(shared [32]byte, info string, salt [32]byte) ([32]byte, error) {
	r := hkdf.New(sha256.New, shared[:], salt[:], []byte(info))
	var key [32]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

// Seal authenticates and encrypts plaintext into a newly allocated
// ciphertext, returning the nonce and detached tag the wire frame
// prefix carries separately.
func Seal(key [32]byte, aad, plaintext []byte) (nonce [12]byte, ciphertext, tag []byte, err error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nonce, nil, nil, err
	}
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nonce, nil, nil, err
	}
	sealed := aead.Seal(nil, nonce[:], plaintext, aad)
	n := len(sealed) - aead.Overhead()
	return nonce, sealed[:n], sealed[n:], nil
}

// Open verifies and decrypts a detached-tag ciphertext.
func Open(key [32]byte, nonce [12]byte, aad, ciphertext, tag []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	sealed := append(append([]byte{}, ciphertext...), tag...)
	return aead.Open(nil, nonce[:], sealed, aad)
}
