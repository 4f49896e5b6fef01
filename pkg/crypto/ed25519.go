package crypto

import "crypto/ed25519"

// Sign signs msg with priv, matching the hidden/regular transaction
// binding's "two Ed25519 signatures over the fingerprint" contract.
func Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Verify checks sig against msg under pub.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
