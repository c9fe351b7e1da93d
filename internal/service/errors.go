package service

import (
	"errors"
	"strings"

	"github.com/patrykmil/passy/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrSecretNotFound     = errors.New("secret not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNotTeamAdmin       = errors.New("only team admins can do this")
	ErrAlreadyMember      = errors.New("user is already a team member")
	ErrNoApplication      = errors.New("user has not applied to this team")
	ErrLastAdmin          = errors.New("team must keep at least one admin")
	ErrNotMember          = errors.New("user is not a team member")
	ErrDuplicateRow       = errors.New("recipient already holds a row of this secret")
	ErrSharedRow          = errors.New("shared rows can only be deleted with their group")
)

// ConflictError reports rows whose stored revision moved on since the
// client read them. In a batch only the listed rows were rejected.
type ConflictError struct {
	SecretIDs []string
	Err       error
}

func (e *ConflictError) Error() string {
	return "conflict detected on secret(s) " + strings.Join(e.SecretIDs, ", ")
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Notifier delivers events to a user's live connections.
type Notifier interface {
	NotifyUser(userID string, event *domain.Event)
}

type nopNotifier struct{}

func (nopNotifier) NotifyUser(string, *domain.Event) {}
