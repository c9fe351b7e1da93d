package vault

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/pkg/envelope"
	"github.com/patrykmil/passy/pkg/kdf"
)

type PasswordChangeOptions struct {
	// RewrapPrivateKey re-encrypts the session's private key under the
	// new password so the next login can unwrap it.
	RewrapPrivateKey bool
}

// RotationResult lists the secrets a rotation re-encrypted and the ones
// it had to skip.
type RotationResult struct {
	Rotated []string
	Failed  []SecretFailure
}

// ChangePassword updates the server credential, installs the key
// derived from newPassword and re-encrypts every personal secret.
//
// Once the server accepted the new credential the rotation runs to the
// end regardless of ctx cancellation. Secrets that fail are skipped;
// the returned *PartialRotationError names them.
func (v *Vault) ChangePassword(ctx context.Context, oldPassword, newPassword string, opts PasswordChangeOptions) (*RotationResult, error) {
	acct, err := v.Account()
	if err != nil {
		return nil, err
	}

	oldKey, err := kdf.DeriveSymmetricKey(oldPassword, acct.Username)
	if err != nil {
		return nil, err
	}
	defer wipeKey(&oldKey)

	newKey, err := kdf.DeriveSymmetricKey(newPassword, acct.Username)
	if err != nil {
		return nil, err
	}
	defer wipeKey(&newKey)

	var wrapped *string
	if opts.RewrapPrivateKey {
		privateKey, err := v.keys.PrivateKey()
		if err != nil {
			return nil, err
		}
		w, err := envelope.WrapPrivateKey(privateKey, &newKey)
		wipeKey(privateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to wrap private key: %w", err)
		}
		wrapped = &w
	}

	if err := v.store.UpdateAuthCredential(ctx, oldPassword, newPassword, wrapped); err != nil {
		return nil, fmt.Errorf("failed to update credential: %w", err)
	}

	ctx = context.WithoutCancel(ctx)
	v.keys.SetSymmetricKey(newKey)
	v.log.Infof("credential of user %s changed, re-encrypting personal secrets", acct.UserID)

	secrets, err := v.store.FetchSecretsByOwner(ctx, domain.PersonalScope())
	if err != nil {
		return &RotationResult{}, &PartialRotationError{
			Protocol: "password rotation",
			Cause:    fmt.Errorf("failed to fetch personal secrets: %w", err),
		}
	}

	updates, failures := v.reencryptPersonal(secrets, &oldKey, &newKey)
	return v.commitRotation(ctx, "password rotation", updates, failures)
}

func (v *Vault) reencryptPersonal(secrets []*domain.Secret, oldKey, newKey *[envelope.KeySize]byte) ([]*domain.Secret, []SecretFailure) {
	var (
		mu       sync.Mutex
		updates  []*domain.Secret
		failures []SecretFailure
	)

	var g errgroup.Group
	g.SetLimit(v.limit)

	for _, secret := range secrets {
		g.Go(func() error {
			ciphertext, err := reencryptSymmetric(secret.Ciphertext, oldKey, newKey)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				v.log.Warnf("secret %s not re-encrypted: %v", secret.ID, err)
				failures = append(failures, SecretFailure{SecretID: secret.ID, SecretName: secret.Name, Err: err})
				return nil
			}
			updated := *secret
			updated.Ciphertext = ciphertext
			updates = append(updates, &updated)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(updates, func(i, j int) bool { return updates[i].ID < updates[j].ID })
	sort.Slice(failures, func(i, j int) bool { return failures[i].SecretID < failures[j].SecretID })
	return updates, failures
}

func reencryptSymmetric(ciphertext string, oldKey, newKey *[envelope.KeySize]byte) (string, error) {
	plaintext, err := envelope.DecryptString(ciphertext, oldKey)
	if err != nil {
		return "", err
	}
	return envelope.EncryptString(plaintext, newKey)
}

// commitRotation submits the re-encrypted rows in one batch and turns
// per-secret failures, or rows the batch rejected, into a
// PartialRotationError. A *BatchWriteError fails only the rows it names.
func (v *Vault) commitRotation(ctx context.Context, protocol string, updates []*domain.Secret, failures []SecretFailure) (*RotationResult, error) {
	result := &RotationResult{Failed: failures}

	if len(updates) > 0 {
		_, err := v.store.BatchUpdateSecrets(ctx, updates)

		var partial *BatchWriteError
		switch {
		case err == nil:
			for _, u := range updates {
				result.Rotated = append(result.Rotated, u.ID)
			}
		case errors.As(err, &partial):
			for _, u := range updates {
				if partial.failed(u.ID) {
					result.Failed = append(result.Failed, SecretFailure{SecretID: u.ID, SecretName: u.Name, Err: partial.Err})
					continue
				}
				result.Rotated = append(result.Rotated, u.ID)
			}
			v.log.Warnf("%s: batch rejected %d of %d row(s)", protocol, len(partial.FailedIDs), len(updates))
		default:
			for _, u := range updates {
				result.Failed = append(result.Failed, SecretFailure{SecretID: u.ID, SecretName: u.Name, Err: err})
			}
			return result, &PartialRotationError{
				Protocol: protocol,
				Failures: result.Failed,
				Cause:    fmt.Errorf("batch update failed: %w", err),
			}
		}
	}

	if len(result.Failed) > 0 {
		return result, &PartialRotationError{Protocol: protocol, Failures: result.Failed}
	}
	return result, nil
}
