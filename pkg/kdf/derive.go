package kdf

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// Iterations is part of the key format. Changing it makes every
// previously derived key unrecoverable.
const Iterations = 100000

const KeySize = 32

var ErrEmptyInput = errors.New("password and identifier must not be empty")

// DeriveSymmetricKey stretches password with identifier as the salt.
// The same pair always yields the same key, so the key is recomputed
// locally instead of being stored or transmitted.
func DeriveSymmetricKey(password, identifier string) ([KeySize]byte, error) {
	var key [KeySize]byte
	if password == "" || identifier == "" {
		return key, ErrEmptyInput
	}

	derived := pbkdf2.Key([]byte(password), []byte(identifier), Iterations, KeySize, sha256.New)
	copy(key[:], derived)

	for i := range derived {
		derived[i] = 0
	}

	return key, nil
}
