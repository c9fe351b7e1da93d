package vault

import (
	"context"
	"fmt"
	"sort"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/pkg/envelope"
)

type IdentityRotationResult struct {
	RotationResult

	PublicKey string

	// SharedSecretsSkipped is set when the old private key was not in
	// the session. Existing team rows stay sealed to the old key and are
	// unreadable with the new one.
	SharedSecretsSkipped bool
}

// RotateIdentity replaces the user's key pair and re-seals every team
// row the user holds to the new public key.
func (v *Vault) RotateIdentity(ctx context.Context) (*IdentityRotationResult, error) {
	acct, err := v.Account()
	if err != nil {
		return nil, err
	}

	symmetricKey, err := v.keys.SymmetricKey()
	if err != nil {
		return nil, err
	}
	defer wipeKey(symmetricKey)

	oldPrivateKey, oldKeyErr := v.keys.PrivateKey()
	defer wipeKey(oldPrivateKey)

	kp, err := envelope.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()

	wrapped, err := envelope.WrapPrivateKey(kp.PrivateKey, symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap private key: %w", err)
	}

	publicKey := envelope.EncodeKey(kp.PublicKey)
	if err := v.store.UpdateIdentity(ctx, publicKey, wrapped); err != nil {
		return nil, fmt.Errorf("failed to update identity: %w", err)
	}

	ctx = context.WithoutCancel(ctx)
	v.keys.SetPrivateKey(kp.PrivateKey)
	result := &IdentityRotationResult{PublicKey: publicKey}

	if oldKeyErr != nil {
		v.log.Warnf("identity of user %s rotated without old private key, shared secrets left sealed to the old key", acct.UserID)
		result.SharedSecretsSkipped = true
		return result, ErrSharedSecretsOrphaned
	}

	secrets, err := v.store.FetchSecretsByOwner(ctx, domain.AllTeamsScope())
	if err != nil {
		return result, &PartialRotationError{
			Protocol: "identity rotation",
			Cause:    fmt.Errorf("failed to fetch team secrets: %w", err),
		}
	}

	var (
		updates  []*domain.Secret
		failures []SecretFailure
	)
	for _, secret := range secrets {
		ciphertext, err := resealTeam(secret.Ciphertext, oldPrivateKey, kp.PublicKey)
		if err != nil {
			v.log.Warnf("team secret %s not re-sealed: %v", secret.ID, err)
			failures = append(failures, SecretFailure{SecretID: secret.ID, SecretName: secret.Name, Err: err})
			continue
		}
		updated := *secret
		updated.Ciphertext = ciphertext
		updates = append(updates, &updated)
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].ID < updates[j].ID })

	rotation, err := v.commitRotation(ctx, "identity rotation", updates, failures)
	result.RotationResult = *rotation
	return result, err
}

func resealTeam(ciphertext string, oldPrivateKey, newPublicKey *[envelope.KeySize]byte) (string, error) {
	plaintext, err := envelope.OpenString(ciphertext, oldPrivateKey)
	if err != nil {
		return "", err
	}
	return envelope.SealString(plaintext, newPublicKey)
}
