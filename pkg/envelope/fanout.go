package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"
)

const fanoutHeaderSize = KeySize + NonceSize

// SealTo encrypts plaintext for the holder of recipientPublicKey. A new
// ephemeral key pair is generated per call, so the sender needs no
// identity of its own and the recipient needs only its private key.
func SealTo(plaintext []byte, recipientPublicKey *[KeySize]byte) ([]byte, error) {
	if recipientPublicKey == nil {
		return nil, ErrInvalidKeyLength
	}

	ephemeralPublic, ephemeralPrivate, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key pair: %w", err)
	}
	defer func() {
		for i := range ephemeralPrivate {
			ephemeralPrivate[i] = 0
		}
	}()

	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, fanoutHeaderSize+len(plaintext)+box.Overhead)
	out = append(out, ephemeralPublic[:]...)
	out = append(out, nonce[:]...)

	return box.Seal(out, plaintext, &nonce, recipientPublicKey, ephemeralPrivate), nil
}

func OpenWith(blob []byte, recipientPrivateKey *[KeySize]byte) ([]byte, error) {
	if recipientPrivateKey == nil {
		return nil, ErrInvalidKeyLength
	}
	if len(blob) < fanoutHeaderSize+box.Overhead {
		return nil, ErrDecryptionFailure
	}

	var ephemeralPublic [KeySize]byte
	var nonce [NonceSize]byte
	copy(ephemeralPublic[:], blob[:KeySize])
	copy(nonce[:], blob[KeySize:fanoutHeaderSize])

	plaintext, ok := box.Open(nil, blob[fanoutHeaderSize:], &nonce, &ephemeralPublic, recipientPrivateKey)
	if !ok {
		return nil, ErrDecryptionFailure
	}

	return plaintext, nil
}

func SealString(plaintext string, recipientPublicKey *[KeySize]byte) (string, error) {
	blob, err := SealTo([]byte(plaintext), recipientPublicKey)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

func OpenString(encoded string, recipientPrivateKey *[KeySize]byte) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryptionFailure
	}

	plaintext, err := OpenWith(blob, recipientPrivateKey)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
