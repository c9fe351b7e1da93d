package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/pkg/envelope"
	"github.com/patrykmil/passy/pkg/kdf"
)

func createPersonal(t *testing.T, v *Vault, name, password string) *domain.Secret {
	t.Helper()

	secret, err := v.CreatePersonalSecret(context.Background(), SecretInput{Name: name, Login: "alice", Password: password})
	if err != nil {
		t.Fatalf("CreatePersonalSecret() error = %v", err)
	}
	return secret
}

func TestVault_ChangePassword(t *testing.T) {
	b := newFakeBackend()
	v := registerAndLogin(t, b, "alice", "old1")
	secret := createPersonal(t, v, "mail", "hunter2")

	result, err := v.ChangePassword(context.Background(), "old1", "new2", PasswordChangeOptions{RewrapPrivateKey: true})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if len(result.Rotated) != 1 || result.Rotated[0] != secret.ID {
		t.Errorf("Rotated = %v", result.Rotated)
	}

	stored := b.secret(secret.ID)
	newKey, _ := kdf.DeriveSymmetricKey("new2", "alice")
	oldKey, _ := kdf.DeriveSymmetricKey("old1", "alice")

	got, err := envelope.DecryptString(stored.Ciphertext, &newKey)
	if err != nil || got != "hunter2" {
		t.Errorf("decrypt with new key = %q, %v", got, err)
	}
	if _, err := envelope.DecryptString(stored.Ciphertext, &oldKey); !errors.Is(err, envelope.ErrDecryptionFailure) {
		t.Errorf("decrypt with old key error = %v, want ErrDecryptionFailure", err)
	}

	fresh := newTestVault(b)
	login, err := fresh.Login(context.Background(), "alice", "new2")
	if err != nil {
		t.Fatalf("Login() with new password error = %v", err)
	}
	if !login.PrivateKeyAvailable {
		t.Error("private key should unwrap under the new password")
	}
	if got := reveal(t, fresh, stored); got != "hunter2" {
		t.Errorf("reveal after relogin = %q", got)
	}
}

func TestVault_ChangePassword_PartialFailure(t *testing.T) {
	b := newFakeBackend()
	v := registerAndLogin(t, b, "alice", "old1")
	good := createPersonal(t, v, "mail", "hunter2")
	bad := createPersonal(t, v, "bank", "letmein")
	b.setCiphertext(bad.ID, "bm90IGEgc2VjcmV0")

	result, err := v.ChangePassword(context.Background(), "old1", "new2", PasswordChangeOptions{})

	var partial *PartialRotationError
	if !errors.As(err, &partial) {
		t.Fatalf("error = %v, want *PartialRotationError", err)
	}
	if !errors.Is(err, ErrPartialRotation) {
		t.Error("expected ErrPartialRotation")
	}
	if ids := partial.FailedIDs(); len(ids) != 1 || ids[0] != bad.ID {
		t.Errorf("FailedIDs() = %v, want [%s]", ids, bad.ID)
	}
	if len(result.Rotated) != 1 || result.Rotated[0] != good.ID {
		t.Errorf("Rotated = %v, want [%s]", result.Rotated, good.ID)
	}

	if got := reveal(t, v, b.secret(good.ID)); got != "hunter2" {
		t.Errorf("reveal = %q", got)
	}
	if b.users["id-alice"].Password != "new2" {
		t.Error("credential should be changed")
	}
}

func TestVault_ChangePassword_BatchFailure(t *testing.T) {
	b := newFakeBackend()
	v := registerAndLogin(t, b, "alice", "old1")
	secret := createPersonal(t, v, "mail", "hunter2")
	b.failBatch = ErrCollaboratorUnavailable

	result, err := v.ChangePassword(context.Background(), "old1", "new2", PasswordChangeOptions{})
	if !errors.Is(err, ErrPartialRotation) || !errors.Is(err, ErrCollaboratorUnavailable) {
		t.Fatalf("error = %v, want partial rotation caused by unavailable service", err)
	}
	if len(result.Failed) != 1 || result.Failed[0].SecretID != secret.ID {
		t.Errorf("Failed = %+v", result.Failed)
	}
}

func TestVault_ChangePassword_Rejected(t *testing.T) {
	b := newFakeBackend()
	v := registerAndLogin(t, b, "alice", "old1")
	secret := createPersonal(t, v, "mail", "hunter2")
	b.failAuth = errors.New("invalid credentials")

	if _, err := v.ChangePassword(context.Background(), "old1", "new2", PasswordChangeOptions{}); err == nil {
		t.Fatal("expected error")
	}
	if got := reveal(t, v, b.secret(secret.ID)); got != "hunter2" {
		t.Errorf("reveal with unchanged key = %q", got)
	}
}

func TestVault_ChangePassword_NotLoggedIn(t *testing.T) {
	v := newTestVault(newFakeBackend())

	_, err := v.ChangePassword(context.Background(), "old1", "new2", PasswordChangeOptions{})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("error = %v, want ErrNotAuthenticated", err)
	}
}

func TestVault_ChangePassword_IgnoresCancellationAfterCommit(t *testing.T) {
	b := newFakeBackend()
	v := registerAndLogin(t, b, "alice", "old1")
	secret := createPersonal(t, v, "mail", "hunter2")

	ctx, cancel := context.WithCancel(context.Background())
	s := v.store.(*fakeSession)
	v.store = &cancelAfterAuth{fakeSession: s, cancel: cancel}

	if _, err := v.ChangePassword(ctx, "old1", "new2", PasswordChangeOptions{}); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if got := reveal(t, v, b.secret(secret.ID)); got != "hunter2" {
		t.Errorf("reveal = %q", got)
	}
}

// cancelAfterAuth cancels the caller's context once the credential
// update has been accepted and fails any later call that observes it.
type cancelAfterAuth struct {
	*fakeSession
	cancel context.CancelFunc
}

func (c *cancelAfterAuth) UpdateAuthCredential(ctx context.Context, oldPassword, newPassword string, wrapped *string) error {
	err := c.fakeSession.UpdateAuthCredential(ctx, oldPassword, newPassword, wrapped)
	c.cancel()
	return err
}

func (c *cancelAfterAuth) FetchSecretsByOwner(ctx context.Context, scope domain.OwnerScope) ([]*domain.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.fakeSession.FetchSecretsByOwner(ctx, scope)
}

func (c *cancelAfterAuth) BatchUpdateSecrets(ctx context.Context, secrets []*domain.Secret) ([]*domain.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.fakeSession.BatchUpdateSecrets(ctx, secrets)
}

func TestVault_ChangePassword_BatchPartiallyRejected(t *testing.T) {
	b := newFakeBackend()
	v := registerAndLogin(t, b, "alice", "old1")
	applied := createPersonal(t, v, "mail", "hunter2")
	rejected := createPersonal(t, v, "bank", "swordfish")
	b.rejectBatch[rejected.ID] = true

	result, err := v.ChangePassword(context.Background(), "old1", "new2", PasswordChangeOptions{})

	var partial *PartialRotationError
	if !errors.As(err, &partial) {
		t.Fatalf("error = %v, want *PartialRotationError", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Errorf("error = %v, want the conflict to be reachable", err)
	}
	if len(result.Rotated) != 1 || result.Rotated[0] != applied.ID {
		t.Errorf("Rotated = %v, want [%s]", result.Rotated, applied.ID)
	}
	if ids := partial.FailedIDs(); len(ids) != 1 || ids[0] != rejected.ID {
		t.Errorf("FailedIDs = %v, want [%s]", ids, rejected.ID)
	}
	if got := reveal(t, v, b.secret(applied.ID)); got != "hunter2" {
		t.Errorf("reveal = %q", got)
	}
}
