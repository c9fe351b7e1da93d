// Package vault is the client side of passy: it turns passwords into
// keys, encrypts and decrypts secrets, and runs the re-encryption
// protocols for password changes, key-pair rotation and team onboarding.
//
// Decrypted key material stays in the injected session.KeyStore. The
// storage service only ever receives ciphertext, public keys and the
// password-wrapped private key.
package vault

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/patrykmil/passy/internal/logging"
	"github.com/patrykmil/passy/internal/session"
)

const defaultFanoutConcurrency = 4

type Options struct {
	Store  SecretStore
	Users  UserDirectory
	Teams  TeamDirectory
	Auth   Authenticator
	Keys   *session.KeyStore
	Logger *logging.Logger

	// FanoutConcurrency bounds parallel per-secret and per-member work.
	FanoutConcurrency int
}

// Account identifies the authenticated user of the session.
type Account struct {
	UserID   string
	Username string
}

type Vault struct {
	store    SecretStore
	users    UserDirectory
	teams    TeamDirectory
	auth     Authenticator
	keys     *session.KeyStore
	log      *logging.Logger
	validate *validator.Validate
	limit    int

	mu      sync.RWMutex
	account *Account
}

func New(opts Options) *Vault {
	limit := opts.FanoutConcurrency
	if limit < 1 {
		limit = defaultFanoutConcurrency
	}

	keys := opts.Keys
	if keys == nil {
		keys = session.NewKeyStore()
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &Vault{
		store:    opts.Store,
		users:    opts.Users,
		teams:    opts.Teams,
		auth:     opts.Auth,
		keys:     keys,
		log:      log,
		validate: validator.New(),
		limit:    limit,
	}
}

func (v *Vault) Keys() *session.KeyStore {
	return v.keys
}

// SetAccount restores the account from durable session metadata. Keys
// still have to be installed through Login or Reauthenticate.
func (v *Vault) SetAccount(userID, username string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.account = &Account{UserID: userID, Username: username}
}

func (v *Vault) Account() (Account, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.account == nil {
		return Account{}, ErrNotAuthenticated
	}
	return *v.account, nil
}

func (v *Vault) clearAccount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.account = nil
}
