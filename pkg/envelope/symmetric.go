package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const NonceSize = 24

// Encrypt seals plaintext under key with a fresh random nonce, which is
// prepended to the output.
func Encrypt(plaintext []byte, key *[KeySize]byte) ([]byte, error) {
	if key == nil {
		return nil, ErrInvalidKeyLength
	}

	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

func Decrypt(blob []byte, key *[KeySize]byte) ([]byte, error) {
	if key == nil {
		return nil, ErrInvalidKeyLength
	}
	if len(blob) < NonceSize+secretbox.Overhead {
		return nil, ErrDecryptionFailure
	}

	var nonce [NonceSize]byte
	copy(nonce[:], blob[:NonceSize])

	plaintext, ok := secretbox.Open(nil, blob[NonceSize:], &nonce, key)
	if !ok {
		return nil, ErrDecryptionFailure
	}

	return plaintext, nil
}

func EncryptString(plaintext string, key *[KeySize]byte) (string, error) {
	blob, err := Encrypt([]byte(plaintext), key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// DecryptString treats undecodable base64 the same as a bad tag.
func DecryptString(encoded string, key *[KeySize]byte) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryptionFailure
	}

	plaintext, err := Decrypt(blob, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
