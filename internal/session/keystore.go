package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

const KeySize = 32

var ErrReauthenticationRequired = errors.New("key material not available, re-authentication required")

type KeyKind int

const (
	KindSymmetric KeyKind = iota
	KindPrivate
)

func (k KeyKind) String() string {
	switch k {
	case KindSymmetric:
		return "symmetric key"
	case KindPrivate:
		return "private key"
	default:
		return "unknown key"
	}
}

// KeyStore holds the decrypted key material of one authenticated
// session. Keys are kept in memguard enclaves, encrypted while at rest
// in process memory, and only decrypted into a copy for the caller.
type KeyStore struct {
	mu        sync.RWMutex
	symmetric *memguard.Enclave
	private   *memguard.Enclave
}

func NewKeyStore() *KeyStore {
	return &KeyStore{}
}

// Set replaces all key material. A nil privateKey leaves the session
// without one, which later surfaces as ErrReauthenticationRequired.
func (s *KeyStore) Set(symmetricKey [KeySize]byte, privateKey *[KeySize]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.symmetric = seal(&symmetricKey)
	s.private = seal(privateKey)
	wipe(&symmetricKey)
}

func (s *KeyStore) SetSymmetricKey(symmetricKey [KeySize]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.symmetric = seal(&symmetricKey)
	wipe(&symmetricKey)
}

func (s *KeyStore) SetPrivateKey(privateKey *[KeySize]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.private = seal(privateKey)
}

func (s *KeyStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.symmetric = nil
	s.private = nil
}

func (s *KeyStore) Has(kind KeyKind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case KindSymmetric:
		return s.symmetric != nil
	case KindPrivate:
		return s.private != nil
	default:
		return false
	}
}

func (s *KeyStore) SymmetricKey() (*[KeySize]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return open(s.symmetric, KindSymmetric)
}

func (s *KeyStore) PrivateKey() (*[KeySize]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return open(s.private, KindPrivate)
}

// seal copies key into a new enclave. The intermediate buffer is wiped
// by memguard.
func seal(key *[KeySize]byte) *memguard.Enclave {
	if key == nil {
		return nil
	}
	buf := make([]byte, KeySize)
	copy(buf, key[:])
	return memguard.NewEnclave(buf)
}

func open(enclave *memguard.Enclave, kind KeyKind) (*[KeySize]byte, error) {
	if enclave == nil {
		return nil, ErrReauthenticationRequired
	}

	buf, err := enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", kind, err)
	}
	defer buf.Destroy()

	var key [KeySize]byte
	copy(key[:], buf.Bytes())
	return &key, nil
}

func wipe(key *[KeySize]byte) {
	if key == nil {
		return
	}
	memguard.WipeBytes(key[:])
}

// Wipe zeroes a key obtained from the store once the caller is done.
func Wipe(key *[KeySize]byte) {
	wipe(key)
}
