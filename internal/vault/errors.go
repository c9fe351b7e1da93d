package vault

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/patrykmil/passy/internal/session"
	"github.com/patrykmil/passy/pkg/envelope"
)

var (
	ErrReauthenticationRequired = session.ErrReauthenticationRequired
	ErrDecryptionFailure        = envelope.ErrDecryptionFailure

	// ErrCollaboratorUnavailable marks network and storage failures. The
	// vault never retries them.
	ErrCollaboratorUnavailable = errors.New("storage service unavailable")

	// ErrConflict is returned by the store when a write lost against a
	// concurrent one or would duplicate an existing row.
	ErrConflict = errors.New("conflicting write")

	ErrNotAuthenticated      = errors.New("no authenticated user")
	ErrPartialRotation       = errors.New("rotation did not re-encrypt every secret")
	ErrSharedSecretsOrphaned = errors.New("identity rotated without re-encrypting shared secrets: old private key was not available")
	ErrMissingPublicKey      = errors.New("user has no public key")
	ErrNoTeamMembers         = errors.New("team has no members")
	ErrNotTeamSecret         = errors.New("secret is not a team secret")
	ErrNotPersonalSecret     = errors.New("secret is not a personal secret")
)

type SecretFailure struct {
	SecretID   string
	SecretName string
	Err        error
}

// PartialRotationError lists the secrets a rotation could not
// re-encrypt. Cause is set when a collaborator call failed after the
// key change had already been committed.
type PartialRotationError struct {
	Protocol string
	Failures []SecretFailure
	Cause    error
}

func (e *PartialRotationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d secret(s) not re-encrypted", e.Protocol, len(e.Failures))
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %s (%s): %v", f.SecretID, f.SecretName, f.Err)
	}
	return b.String()
}

func (e *PartialRotationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrPartialRotation, e.Cause}
	}
	return []error{ErrPartialRotation}
}

// FailedIDs returns the ids of the affected secrets in stable order.
func (e *PartialRotationError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.SecretID)
	}
	sort.Strings(ids)
	return ids
}

// OnboardingError names the secret that stopped a member onboarding.
type OnboardingError struct {
	TeamID     string
	MemberID   string
	SecretID   string
	SecretName string
	Err        error
}

func (e *OnboardingError) Error() string {
	return fmt.Sprintf("failed to share secret %q (%s) with user %s in team %s: %v",
		e.SecretName, e.SecretID, e.MemberID, e.TeamID, e.Err)
}

func (e *OnboardingError) Unwrap() error {
	return e.Err
}

type MemberFailure struct {
	UserID string
	Err    error
}

// FanoutError reports the members a new shared secret could not be
// encrypted for. The rows already created were deleted unless
// RollbackErr is set, in which case rows of GroupToken may remain and
// DeleteSecretGroup should be retried.
type FanoutError struct {
	GroupToken  string
	Failures    []MemberFailure
	RollbackErr error
}

func (e *FanoutError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.UserID, f.Err))
	}
	msg := fmt.Sprintf("failed to encrypt shared secret for %d member(s): %s", len(e.Failures), strings.Join(parts, "; "))
	if e.RollbackErr != nil {
		msg += fmt.Sprintf("; rollback of group %s failed: %v", e.GroupToken, e.RollbackErr)
	}
	return msg
}

func (e *FanoutError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	if e.RollbackErr != nil {
		errs = append(errs, e.RollbackErr)
	}
	return errs
}

// BatchWriteError is returned by SecretStore.BatchUpdateSecrets when the
// store applied part of a batch. FailedIDs names the rows it rejected;
// every other row of the batch was written.
type BatchWriteError struct {
	FailedIDs []string
	Err       error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("%d row(s) rejected (%s): %v", len(e.FailedIDs), strings.Join(e.FailedIDs, ", "), e.Err)
}

func (e *BatchWriteError) Unwrap() error {
	return e.Err
}

func (e *BatchWriteError) failed(id string) bool {
	for _, f := range e.FailedIDs {
		if f == id {
			return true
		}
	}
	return false
}
