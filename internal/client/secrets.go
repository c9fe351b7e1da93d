package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/vault"
	"github.com/patrykmil/passy/pkg/response"
)

func (c *Client) FetchSecretsByOwner(ctx context.Context, scope domain.OwnerScope) ([]*domain.Secret, error) {
	q := url.Values{}
	q.Set("scope", string(scope.Kind))
	if scope.TeamID != "" {
		q.Set("team_id", scope.TeamID)
	}

	var secrets []*domain.Secret
	if err := c.do(ctx, "GET", "/secrets?"+q.Encode(), nil, &secrets); err != nil {
		return nil, err
	}
	return secrets, nil
}

func (c *Client) FetchSecretsByGroup(ctx context.Context, groupToken string) ([]*domain.Secret, error) {
	var secrets []*domain.Secret
	if err := c.do(ctx, "GET", "/secrets/groups/"+url.PathEscape(groupToken), nil, &secrets); err != nil {
		return nil, err
	}
	return secrets, nil
}

func (c *Client) CreateSecret(ctx context.Context, secret *domain.Secret) (*domain.Secret, error) {
	req := &domain.CreateSecretRequest{
		Scope:           secret.Scope,
		TeamID:          secret.TeamID,
		GroupToken:      secret.GroupToken,
		RecipientUserID: secret.RecipientUserID,
		Ciphertext:      secret.Ciphertext,
		Name:            secret.Name,
		URL:             secret.URL,
		Login:           secret.Login,
	}

	var created domain.Secret
	if err := c.do(ctx, "POST", "/secrets", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateSecret(ctx context.Context, secret *domain.Secret) (*domain.Secret, error) {
	req := &domain.UpdateSecretRequest{
		Rev:        secret.Rev,
		Ciphertext: &secret.Ciphertext,
		Name:       &secret.Name,
		URL:        &secret.URL,
		Login:      &secret.Login,
	}

	var updated domain.Secret
	if err := c.do(ctx, "PUT", "/secrets/"+url.PathEscape(secret.ID), req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// BatchUpdateSecrets replaces ciphertext for several rows in one
// request. The server authorizes every row before writing any, but
// storage may still reject single rows; those come back as a
// *vault.BatchWriteError and the other rows are written.
func (c *Client) BatchUpdateSecrets(ctx context.Context, secrets []*domain.Secret) ([]*domain.Secret, error) {
	req := &domain.BatchUpdateRequest{Items: make([]domain.BatchUpdateItem, 0, len(secrets))}
	for _, s := range secrets {
		req.Items = append(req.Items, domain.BatchUpdateItem{
			ID:         s.ID,
			Rev:        s.Rev,
			Ciphertext: s.Ciphertext,
			Edited:     s.Edited,
		})
	}

	var updated []*domain.Secret
	if err := c.do(ctx, "PUT", "/secrets/batch", req, &updated); err != nil {
		return nil, rejectedRows(err)
	}
	return updated, nil
}

// rejectedRows turns a 409 naming its rows into a *vault.BatchWriteError.
func rejectedRows(err error) error {
	var statusErr *response.StatusError
	if !errors.Is(err, ErrConflict) || !errors.As(err, &statusErr) || len(statusErr.Data) == 0 {
		return err
	}

	var payload domain.ConflictPayload
	if jsonErr := json.Unmarshal(statusErr.Data, &payload); jsonErr != nil || len(payload.SecretIDs) == 0 {
		return err
	}
	return &vault.BatchWriteError{FailedIDs: payload.SecretIDs, Err: err}
}

func (c *Client) DeleteSecret(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/secrets/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteSecretGroup(ctx context.Context, groupToken string) error {
	return c.do(ctx, "DELETE", "/secrets/groups/"+url.PathEscape(groupToken), nil, nil)
}

func (c *Client) UpdateAuthCredential(ctx context.Context, oldPassword, newPassword string, wrappedPrivateKey *string) error {
	req := &domain.ChangePasswordRequest{
		OldPassword:         oldPassword,
		NewPassword:         newPassword,
		EncryptedPrivateKey: wrappedPrivateKey,
	}
	return c.do(ctx, "PUT", "/auth/password", req, nil)
}

func (c *Client) UpdateIdentity(ctx context.Context, publicKey, wrappedPrivateKey string) error {
	req := &domain.ChangeKeysRequest{
		PublicKey:           publicKey,
		EncryptedPrivateKey: wrappedPrivateKey,
	}
	return c.do(ctx, "PUT", "/auth/keys", req, nil)
}
