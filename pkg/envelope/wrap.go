package envelope

import "fmt"

// WrapPrivateKey encrypts a private key under the password-derived key
// so it can be stored remotely.
func WrapPrivateKey(privateKey, symmetricKey *[KeySize]byte) (string, error) {
	if privateKey == nil {
		return "", ErrInvalidKeyLength
	}
	return EncryptString(string(privateKey[:]), symmetricKey)
}

func UnwrapPrivateKey(wrapped string, symmetricKey *[KeySize]byte) (*[KeySize]byte, error) {
	raw, err := DecryptString(wrapped, symmetricKey)
	if err != nil {
		return nil, err
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: unwrapped private key has %d bytes", ErrInvalidKeyLength, len(raw))
	}

	var key [KeySize]byte
	copy(key[:], raw)
	return &key, nil
}
