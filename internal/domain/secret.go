package domain

import (
	"errors"
	"time"
)

type Scope string

const (
	ScopePersonal Scope = "personal"
	ScopeTeam     Scope = "team"
)

var ErrInvalidSecretScope = errors.New("secret scope fields are inconsistent")

// Secret is one stored ciphertext row. A shared secret is a set of rows
// with the same GroupToken, one per recipient. OwnerID is always the
// user holding the row; RecipientUserID is set only on team rows.
type Secret struct {
	ID              string    `json:"id"`
	Rev             string    `json:"rev,omitempty"`
	Scope           Scope     `json:"scope"`
	OwnerID         string    `json:"owner_id"`
	TeamID          string    `json:"team_id,omitempty"`
	GroupToken      string    `json:"group_token,omitempty"`
	RecipientUserID string    `json:"recipient_user_id,omitempty"`
	Ciphertext      string    `json:"ciphertext"`
	Name            string    `json:"name"`
	URL             string    `json:"url,omitempty"`
	Login           string    `json:"login"`
	Edited          bool      `json:"edited"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (s *Secret) IsTeam() bool {
	return s.Scope == ScopeTeam
}

// Validate checks the row shape: personal rows carry no team fields,
// team rows carry all of them.
func (s *Secret) Validate() error {
	switch s.Scope {
	case ScopePersonal:
		if s.TeamID != "" || s.GroupToken != "" || s.RecipientUserID != "" {
			return ErrInvalidSecretScope
		}
	case ScopeTeam:
		if s.TeamID == "" || s.GroupToken == "" || s.RecipientUserID == "" {
			return ErrInvalidSecretScope
		}
	default:
		return ErrInvalidSecretScope
	}
	return nil
}

// OwnerScope selects which of the caller's rows to fetch. A team scope
// with an empty TeamID matches the caller's rows of every team.
type OwnerScope struct {
	Kind   Scope
	TeamID string
}

func PersonalScope() OwnerScope {
	return OwnerScope{Kind: ScopePersonal}
}

func TeamScope(teamID string) OwnerScope {
	return OwnerScope{Kind: ScopeTeam, TeamID: teamID}
}

func AllTeamsScope() OwnerScope {
	return OwnerScope{Kind: ScopeTeam}
}

func (o OwnerScope) Matches(s *Secret) bool {
	if s.Scope != o.Kind {
		return false
	}
	return o.TeamID == "" || s.TeamID == o.TeamID
}

type CreateSecretRequest struct {
	Scope           Scope  `json:"scope" validate:"required,oneof=personal team"`
	TeamID          string `json:"team_id" validate:"required_if=Scope team"`
	GroupToken      string `json:"group_token" validate:"required_if=Scope team"`
	RecipientUserID string `json:"recipient_user_id" validate:"required_if=Scope team"`
	Ciphertext      string `json:"ciphertext" validate:"required,base64"`
	Name            string `json:"name" validate:"required,max=200"`
	URL             string `json:"url" validate:"omitempty,url"`
	Login           string `json:"login" validate:"required"`
}

type UpdateSecretRequest struct {
	Rev        string  `json:"rev"`
	Ciphertext *string `json:"ciphertext" validate:"omitempty,base64"`
	Name       *string `json:"name" validate:"omitempty,max=200"`
	URL        *string `json:"url" validate:"omitempty,url"`
	Login      *string `json:"login"`
}

type BatchUpdateItem struct {
	ID         string  `json:"id" validate:"required"`
	Rev        string  `json:"rev"`
	Ciphertext string  `json:"ciphertext" validate:"required,base64"`
	Name       *string `json:"name,omitempty"`
	URL        *string `json:"url,omitempty"`
	Login      *string `json:"login,omitempty"`
	Edited     bool    `json:"edited"`
}

type BatchUpdateRequest struct {
	Items []BatchUpdateItem `json:"items" validate:"required,min=1,dive"`
}

// ConflictPayload accompanies a 409 and names the rows that were not
// written.
type ConflictPayload struct {
	SecretIDs []string `json:"secret_ids"`
}
