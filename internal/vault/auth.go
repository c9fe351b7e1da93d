package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/pkg/envelope"
	"github.com/patrykmil/passy/pkg/kdf"
)

type LoginResult struct {
	User        *domain.User
	AccessToken string

	// PrivateKeyAvailable is false when the wrapped private key could
	// not be unwrapped. Team secrets then require re-authentication.
	PrivateKeyAvailable bool
}

// Register creates a key pair, wraps the private key under the key
// derived from password and username, and submits the identity. The
// session is not logged in afterwards.
func (v *Vault) Register(ctx context.Context, username, password string) (*domain.User, error) {
	symmetricKey, err := kdf.DeriveSymmetricKey(password, username)
	if err != nil {
		return nil, err
	}
	defer wipeKey(&symmetricKey)

	kp, err := envelope.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()

	wrapped, err := envelope.WrapPrivateKey(kp.PrivateKey, &symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap private key: %w", err)
	}

	req := &domain.RegisterRequest{
		Username:            username,
		Password:            password,
		PublicKey:           envelope.EncodeKey(kp.PublicKey),
		EncryptedPrivateKey: wrapped,
	}
	if err := v.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	user, err := v.auth.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	v.log.Infof("registered user %s", user.ID)
	return user, nil
}

// Login authenticates against the storage service and installs the
// derived symmetric key and unwrapped private key in the key store.
func (v *Vault) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	symmetricKey, err := kdf.DeriveSymmetricKey(password, username)
	if err != nil {
		return nil, err
	}
	defer wipeKey(&symmetricKey)

	resp, err := v.auth.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	result := &LoginResult{User: resp.User, AccessToken: resp.AccessToken}

	privateKey, err := envelope.UnwrapPrivateKey(resp.User.EncryptedPrivateKey, &symmetricKey)
	if err != nil {
		v.log.Warnf("private key of user %s could not be unwrapped: %v", resp.User.ID, err)
		privateKey = nil
	}
	result.PrivateKeyAvailable = privateKey != nil

	v.keys.Set(symmetricKey, privateKey)
	wipeKey(privateKey)

	v.SetAccount(resp.User.ID, resp.User.Username)
	return result, nil
}

// Reauthenticate reinstalls key material for the current account after
// an operation failed with ErrReauthenticationRequired.
func (v *Vault) Reauthenticate(ctx context.Context, password string) (*LoginResult, error) {
	acct, err := v.Account()
	if err != nil {
		return nil, err
	}
	return v.Login(ctx, acct.Username, password)
}

// Logout clears key material even when the remote logout fails.
func (v *Vault) Logout(ctx context.Context) error {
	defer v.clearAccount()
	defer v.keys.Clear()

	if err := v.auth.Logout(ctx); err != nil && !errors.Is(err, ErrNotAuthenticated) {
		v.log.Warnf("remote logout failed: %v", err)
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

func wipeKey(key *[envelope.KeySize]byte) {
	if key == nil {
		return
	}
	for i := range key {
		key[i] = 0
	}
}
