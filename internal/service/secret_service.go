package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/repository"

	"github.com/google/uuid"
)

// teamRowNamespace derives team row ids, so a second row for the same
// recipient and group collides in storage.
var teamRowNamespace = uuid.MustParse("5b0e4c3a-8f7d-4e2b-9a61-3c2d1f0e9b87")

func teamRowID(groupToken, recipientID string) string {
	return uuid.NewSHA1(teamRowNamespace, []byte(groupToken+"/"+recipientID)).String()
}

// SecretService stores ciphertext rows. It checks who may touch a row
// but never interprets the ciphertext.
type SecretService struct {
	secretRepo repository.SecretRepository
	teamRepo   repository.TeamRepository
	notifier   Notifier
}

func NewSecretService(secretRepo repository.SecretRepository, teamRepo repository.TeamRepository, notifier Notifier) *SecretService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &SecretService{
		secretRepo: secretRepo,
		teamRepo:   teamRepo,
		notifier:   notifier,
	}
}

func (s *SecretService) ListMine(ctx context.Context, userID string, scope domain.OwnerScope) ([]*domain.Secret, error) {
	secrets, err := s.secretRepo.ListByOwner(ctx, userID, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	if secrets == nil {
		secrets = []*domain.Secret{}
	}
	return secrets, nil
}

// ListGroup returns every row of a shared secret. Callers must belong
// to the team the group was shared in.
func (s *SecretService) ListGroup(ctx context.Context, userID, groupToken string) ([]*domain.Secret, error) {
	rows, err := s.secretRepo.ListByGroup(ctx, groupToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list group: %w", err)
	}
	if len(rows) == 0 {
		return []*domain.Secret{}, nil
	}

	if err := s.requireMember(ctx, userID, rows[0].TeamID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SecretService) Create(ctx context.Context, userID string, req *domain.CreateSecretRequest) (*domain.Secret, error) {
	now := time.Now()
	secret := &domain.Secret{
		ID:         uuid.New().String(),
		Scope:      req.Scope,
		OwnerID:    userID,
		Ciphertext: req.Ciphertext,
		Name:       req.Name,
		URL:        req.URL,
		Login:      req.Login,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if req.Scope == domain.ScopeTeam {
		team, err := s.getTeam(ctx, req.TeamID)
		if err != nil {
			return nil, err
		}
		if !team.IsMember(userID) {
			return nil, ErrForbidden
		}
		if !team.IsMember(req.RecipientUserID) {
			return nil, fmt.Errorf("%w: recipient %s is not a member of team %s", ErrForbidden, req.RecipientUserID, team.ID)
		}

		secret.ID = teamRowID(req.GroupToken, req.RecipientUserID)
		secret.OwnerID = req.RecipientUserID
		secret.TeamID = req.TeamID
		secret.GroupToken = req.GroupToken
		secret.RecipientUserID = req.RecipientUserID
	}

	if err := secret.Validate(); err != nil {
		return nil, err
	}

	if err := s.secretRepo.Create(ctx, secret); err != nil {
		if errors.Is(err, repository.ErrSecretExists) && secret.IsTeam() {
			return nil, fmt.Errorf("%w: %s in group %s", ErrDuplicateRow, secret.RecipientUserID, secret.GroupToken)
		}
		return nil, fmt.Errorf("failed to create secret: %w", err)
	}

	if secret.IsTeam() && secret.RecipientUserID != userID {
		s.notifier.NotifyUser(secret.RecipientUserID, &domain.Event{
			Type: domain.EventSecretShared,
			Payload: &domain.SecretSharedPayload{
				SecretID:   secret.ID,
				TeamID:     secret.TeamID,
				GroupToken: secret.GroupToken,
				SharedBy:   userID,
			},
		})
	}

	return secret, nil
}

func (s *SecretService) Update(ctx context.Context, userID, id string, req *domain.UpdateSecretRequest) (*domain.Secret, error) {
	secret, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeWrite(ctx, userID, secret); err != nil {
		return nil, err
	}

	if req.Rev != "" {
		secret.Rev = req.Rev
	}
	if req.Ciphertext != nil {
		secret.Ciphertext = *req.Ciphertext
	}
	if req.Name != nil {
		secret.Name = *req.Name
	}
	if req.URL != nil {
		secret.URL = *req.URL
	}
	if req.Login != nil {
		secret.Login = *req.Login
	}
	secret.Edited = true
	secret.UpdatedAt = time.Now()

	if err := s.secretRepo.Update(ctx, secret); err != nil {
		if errors.Is(err, repository.ErrSecretConflict) {
			return nil, &ConflictError{SecretIDs: []string{id}, Err: err}
		}
		return nil, err
	}

	s.notifyRotated(userID, []*domain.Secret{secret})
	return secret, nil
}

// BatchUpdate replaces the ciphertext of several rows. Every row is
// authorized before anything is written. When storage rejects some rows
// the written ones are returned together with a *ConflictError naming
// the rejected ones.
func (s *SecretService) BatchUpdate(ctx context.Context, userID string, req *domain.BatchUpdateRequest) ([]*domain.Secret, error) {
	secrets := make([]*domain.Secret, 0, len(req.Items))
	now := time.Now()

	for _, item := range req.Items {
		secret, err := s.find(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if err := s.authorizeWrite(ctx, userID, secret); err != nil {
			return nil, fmt.Errorf("secret %s: %w", item.ID, err)
		}

		if item.Rev != "" {
			secret.Rev = item.Rev
		}
		secret.Ciphertext = item.Ciphertext
		if item.Name != nil {
			secret.Name = *item.Name
		}
		if item.URL != nil {
			secret.URL = *item.URL
		}
		if item.Login != nil {
			secret.Login = *item.Login
		}
		secret.Edited = secret.Edited || item.Edited
		secret.UpdatedAt = now
		secrets = append(secrets, secret)
	}

	if err := s.secretRepo.BulkUpdate(ctx, secrets); err != nil {
		var bulkErr *repository.BulkUpdateError
		if !errors.As(err, &bulkErr) {
			return nil, err
		}

		rejected := make(map[string]bool, len(bulkErr.Failed))
		for _, id := range bulkErr.Failed {
			rejected[id] = true
		}
		applied := make([]*domain.Secret, 0, len(secrets)-len(rejected))
		for _, secret := range secrets {
			if !rejected[secret.ID] {
				applied = append(applied, secret)
			}
		}

		s.notifyRotated(userID, applied)
		return applied, &ConflictError{SecretIDs: bulkErr.Failed, Err: err}
	}

	s.notifyRotated(userID, secrets)
	return secrets, nil
}

// Delete removes a personal row. Team rows are copies of one shared
// secret and go through DeleteGroup so every recipient is told.
func (s *SecretService) Delete(ctx context.Context, userID, id string) error {
	secret, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if secret.IsTeam() {
		return ErrSharedRow
	}
	if secret.OwnerID != userID {
		return ErrForbidden
	}
	return s.secretRepo.Delete(ctx, secret)
}

// DeleteGroup removes every row of a shared secret and tells the other
// recipients.
func (s *SecretService) DeleteGroup(ctx context.Context, userID, groupToken string) error {
	rows, err := s.secretRepo.ListByGroup(ctx, groupToken)
	if err != nil {
		return fmt.Errorf("failed to list group: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	teamID := rows[0].TeamID
	if err := s.requireMember(ctx, userID, teamID); err != nil {
		return err
	}

	var errs []error
	for _, row := range rows {
		if err := s.secretRepo.Delete(ctx, row); err != nil {
			errs = append(errs, err)
			continue
		}
		if row.OwnerID != userID {
			s.notifier.NotifyUser(row.OwnerID, &domain.Event{
				Type:    domain.EventGroupDeleted,
				Payload: &domain.GroupDeletedPayload{GroupToken: groupToken, TeamID: teamID},
			})
		}
	}
	return errors.Join(errs...)
}

// DeleteMemberRows removes the rows a team shared with userID.
func (s *SecretService) DeleteMemberRows(ctx context.Context, teamID, userID string) error {
	rows, err := s.secretRepo.ListByOwner(ctx, userID, domain.TeamScope(teamID))
	if err != nil {
		return fmt.Errorf("failed to list member secrets: %w", err)
	}

	var errs []error
	for _, row := range rows {
		if err := s.secretRepo.Delete(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *SecretService) find(ctx context.Context, id string) (*domain.Secret, error) {
	secret, err := s.secretRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, err
	}
	return secret, nil
}

// authorizeWrite allows the row holder and, for team rows, any member
// of the row's team.
func (s *SecretService) authorizeWrite(ctx context.Context, userID string, secret *domain.Secret) error {
	if secret.OwnerID == userID {
		return nil
	}
	if !secret.IsTeam() {
		return ErrForbidden
	}
	return s.requireMember(ctx, userID, secret.TeamID)
}

func (s *SecretService) requireMember(ctx context.Context, userID, teamID string) error {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !team.IsMember(userID) {
		return ErrForbidden
	}
	return nil
}

func (s *SecretService) getTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	team, err := s.teamRepo.Get(ctx, teamID)
	if err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (s *SecretService) notifyRotated(userID string, secrets []*domain.Secret) {
	byOwner := make(map[string][]string)
	for _, secret := range secrets {
		if secret.OwnerID != userID {
			byOwner[secret.OwnerID] = append(byOwner[secret.OwnerID], secret.ID)
		}
	}

	for ownerID, ids := range byOwner {
		sort.Strings(ids)
		s.notifier.NotifyUser(ownerID, &domain.Event{
			Type:    domain.EventSecretsRotated,
			Payload: &domain.SecretsRotatedPayload{SecretIDs: ids, UpdatedBy: userID},
		})
	}
}
