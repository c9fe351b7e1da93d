package vault

import (
	"context"

	"github.com/patrykmil/passy/internal/domain"
)

// SecretStore is the remote service holding ciphertext rows and
// identities. It is the serialization point for concurrent writers.
type SecretStore interface {
	FetchSecretsByOwner(ctx context.Context, scope domain.OwnerScope) ([]*domain.Secret, error)
	FetchSecretsByGroup(ctx context.Context, groupToken string) ([]*domain.Secret, error)
	BatchUpdateSecrets(ctx context.Context, secrets []*domain.Secret) ([]*domain.Secret, error)
	CreateSecret(ctx context.Context, secret *domain.Secret) (*domain.Secret, error)
	UpdateSecret(ctx context.Context, secret *domain.Secret) (*domain.Secret, error)
	DeleteSecret(ctx context.Context, id string) error
	DeleteSecretGroup(ctx context.Context, groupToken string) error
	UpdateAuthCredential(ctx context.Context, oldPassword, newPassword string, wrappedPrivateKey *string) error
	UpdateIdentity(ctx context.Context, publicKey, wrappedPrivateKey string) error
}

type UserDirectory interface {
	FetchPublicKey(ctx context.Context, userID string) (string, error)
}

type TeamDirectory interface {
	FetchMembers(ctx context.Context, teamID string) ([]string, error)
	AcceptApplication(ctx context.Context, teamID, userID string, role domain.Role) error
}

type Authenticator interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.LoginResponse, error)
	Logout(ctx context.Context) error
}
