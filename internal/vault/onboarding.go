package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/session"
)

type OnboardingResult struct {
	Created []*domain.Secret

	// Skipped holds group tokens the member already had a row for.
	Skipped []string
}

// OnboardMember shares every team secret the caller can read with a
// newly admitted member. Unlike the rotations it stops at the first
// failure, since a half-onboarded member would see an inconsistent
// subset of the team's secrets. Re-running it after a failure resumes
// where it stopped.
func (v *Vault) OnboardMember(ctx context.Context, teamID, newMemberID string) (*OnboardingResult, error) {
	acct, err := v.Account()
	if err != nil {
		return nil, err
	}

	privateKey, err := v.keys.PrivateKey()
	if err != nil {
		return nil, err
	}
	defer wipeKey(privateKey)

	memberKey, err := v.publicKeyOf(ctx, newMemberID)
	if err != nil {
		return nil, err
	}

	secrets, err := v.store.FetchSecretsByOwner(ctx, domain.TeamScope(teamID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch secrets of team %s: %w", teamID, err)
	}

	result := &OnboardingResult{}
	for _, secret := range secrets {
		if secret.RecipientUserID != acct.UserID {
			continue
		}

		fail := func(err error) (*OnboardingResult, error) {
			return result, &OnboardingError{
				TeamID:     teamID,
				MemberID:   newMemberID,
				SecretID:   secret.ID,
				SecretName: secret.Name,
				Err:        err,
			}
		}

		shared, err := v.memberHasRow(ctx, secret.GroupToken, newMemberID)
		if err != nil {
			return fail(err)
		}
		if shared {
			result.Skipped = append(result.Skipped, secret.GroupToken)
			continue
		}

		ciphertext, err := resealTeam(secret.Ciphertext, privateKey, memberKey)
		if err != nil {
			return fail(err)
		}

		row, err := v.store.CreateSecret(ctx, &domain.Secret{
			Scope:           domain.ScopeTeam,
			TeamID:          teamID,
			GroupToken:      secret.GroupToken,
			RecipientUserID: newMemberID,
			Ciphertext:      ciphertext,
			Name:            secret.Name,
			URL:             secret.URL,
			Login:           secret.Login,
		})
		if errors.Is(err, ErrConflict) {
			// another admin onboarded this row concurrently
			result.Skipped = append(result.Skipped, secret.GroupToken)
			continue
		}
		if err != nil {
			return fail(err)
		}
		result.Created = append(result.Created, row)
	}

	v.log.Infof("onboarded user %s into team %s: %d created, %d already shared",
		newMemberID, teamID, len(result.Created), len(result.Skipped))
	return result, nil
}

func (v *Vault) memberHasRow(ctx context.Context, groupToken, userID string) (bool, error) {
	rows, err := v.store.FetchSecretsByGroup(ctx, groupToken)
	if err != nil {
		return false, fmt.Errorf("failed to fetch group %s: %w", groupToken, err)
	}
	for _, row := range rows {
		if row.RecipientUserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// AcceptMember admits a pending applicant to the team and then onboards
// them. The acceptance is not undone if onboarding fails; calling
// OnboardMember again completes it.
func (v *Vault) AcceptMember(ctx context.Context, teamID, userID string, role domain.Role) (*OnboardingResult, error) {
	if !v.keys.Has(session.KindPrivate) {
		return nil, ErrReauthenticationRequired
	}

	if err := v.teams.AcceptApplication(ctx, teamID, userID, role); err != nil {
		return nil, fmt.Errorf("failed to accept user %s into team %s: %w", userID, teamID, err)
	}

	return v.OnboardMember(ctx, teamID, userID)
}
