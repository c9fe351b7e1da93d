package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

const KeySize = 32

// KeyPair is a Curve25519 key pair used for fan-out envelopes.
type KeyPair struct {
	PublicKey  *[KeySize]byte
	PrivateKey *[KeySize]byte
}

func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return &KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// Wipe zeroes the private half.
func (kp *KeyPair) Wipe() {
	if kp == nil || kp.PrivateKey == nil {
		return
	}
	for i := range kp.PrivateKey {
		kp.PrivateKey[i] = 0
	}
}

func EncodeKey(key *[KeySize]byte) string {
	return base64.StdEncoding.EncodeToString(key[:])
}

func DecodeKey(encoded string) (*[KeySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeyLength, KeySize, len(raw))
	}

	var key [KeySize]byte
	copy(key[:], raw)
	return &key, nil
}
