package envelope

import "errors"

var (
	ErrDecryptionFailure = errors.New("ciphertext could not be authenticated")
	ErrInvalidKeyLength  = errors.New("invalid key length")
)
