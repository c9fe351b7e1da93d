package vault

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/session"
	"github.com/patrykmil/passy/pkg/envelope"
)

// SecretInput is the cleartext form of a secret as entered by the user.
type SecretInput struct {
	Name     string `validate:"required,max=200"`
	URL      string `validate:"omitempty,url"`
	Login    string `validate:"required"`
	Password string `validate:"required"`
}

// Revealed is a secret row with its password decrypted. Rows that
// cannot be decrypted are returned with Readable false and Err set
// instead of failing the whole listing.
type Revealed struct {
	Secret   *domain.Secret
	Password string
	Readable bool
	Err      error
}

// NewGroupToken mints the opaque id correlating the rows of one shared
// secret.
func NewGroupToken() string {
	return uuid.NewString()
}

func (v *Vault) CreatePersonalSecret(ctx context.Context, input SecretInput) (*domain.Secret, error) {
	if err := v.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid secret: %w", err)
	}

	key, err := v.keys.SymmetricKey()
	if err != nil {
		return nil, err
	}
	defer wipeKey(key)

	ciphertext, err := envelope.EncryptString(input.Password, key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	return v.store.CreateSecret(ctx, &domain.Secret{
		Scope:      domain.ScopePersonal,
		Ciphertext: ciphertext,
		Name:       input.Name,
		URL:        input.URL,
		Login:      input.Login,
	})
}

// CreateTeamSecret encrypts input separately for every member of the
// team and stores one row per member under a fresh group token. If any
// member fails, the rows already created are deleted and a FanoutError
// lists every failed member. Its RollbackErr is set when that deletion
// failed too.
func (v *Vault) CreateTeamSecret(ctx context.Context, teamID string, input SecretInput) ([]*domain.Secret, error) {
	if err := v.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid secret: %w", err)
	}
	if !v.keys.Has(session.KindSymmetric) {
		return nil, ErrReauthenticationRequired
	}

	members, err := v.teams.FetchMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members of team %s: %w", teamID, err)
	}
	if len(members) == 0 {
		return nil, ErrNoTeamMembers
	}

	groupToken := NewGroupToken()

	var (
		mu       sync.Mutex
		created  []*domain.Secret
		failures []MemberFailure
	)

	var g errgroup.Group
	g.SetLimit(v.limit)

	for _, memberID := range members {
		g.Go(func() error {
			row, err := v.sealForMember(ctx, memberID, input.Password)
			if err == nil {
				row.TeamID = teamID
				row.GroupToken = groupToken
				row.Name = input.Name
				row.URL = input.URL
				row.Login = input.Login
				row, err = v.store.CreateSecret(ctx, row)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, MemberFailure{UserID: memberID, Err: err})
				return nil
			}
			created = append(created, row)
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].UserID < failures[j].UserID })
		fanoutErr := &FanoutError{GroupToken: groupToken, Failures: failures}
		if len(created) > 0 {
			if err := v.store.DeleteSecretGroup(context.WithoutCancel(ctx), groupToken); err != nil {
				v.log.Errorf("failed to roll back group %s: %v", groupToken, err)
				fanoutErr.RollbackErr = err
			}
		}
		return nil, fanoutErr
	}

	sort.Slice(created, func(i, j int) bool { return created[i].RecipientUserID < created[j].RecipientUserID })
	v.log.Debugf("shared group %s with %d member(s) of team %s", groupToken, len(created), teamID)
	return created, nil
}

func (v *Vault) sealForMember(ctx context.Context, memberID, plaintext string) (*domain.Secret, error) {
	publicKey, err := v.publicKeyOf(ctx, memberID)
	if err != nil {
		return nil, err
	}

	ciphertext, err := envelope.SealString(plaintext, publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt for user %s: %w", memberID, err)
	}

	return &domain.Secret{
		Scope:           domain.ScopeTeam,
		RecipientUserID: memberID,
		Ciphertext:      ciphertext,
	}, nil
}

func (v *Vault) publicKeyOf(ctx context.Context, userID string) (*[envelope.KeySize]byte, error) {
	encoded, err := v.users.FetchPublicKey(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public key of user %s: %w", userID, err)
	}
	if encoded == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingPublicKey, userID)
	}

	key, err := envelope.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid public key of user %s: %w", userID, err)
	}
	return key, nil
}

// ListSecrets returns every row the user holds, decrypted where the
// session has the needed key.
func (v *Vault) ListSecrets(ctx context.Context) ([]*Revealed, error) {
	personal, err := v.store.FetchSecretsByOwner(ctx, domain.PersonalScope())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch personal secrets: %w", err)
	}

	team, err := v.store.FetchSecretsByOwner(ctx, domain.AllTeamsScope())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch team secrets: %w", err)
	}

	all := append(personal, team...)
	revealed := make([]*Revealed, 0, len(all))
	for _, s := range all {
		revealed = append(revealed, v.Reveal(s))
	}
	return revealed, nil
}

// Reveal decrypts one row. It never returns an error: a missing key or
// a failed decryption yields an unreadable result.
func (v *Vault) Reveal(secret *domain.Secret) *Revealed {
	r := &Revealed{Secret: secret}

	var (
		plaintext string
		err       error
	)
	if secret.IsTeam() {
		plaintext, err = v.openTeam(secret.Ciphertext)
	} else {
		plaintext, err = v.openPersonal(secret.Ciphertext)
	}

	if err != nil {
		v.log.Debugf("secret %s is unreadable: %v", secret.ID, err)
		r.Err = err
		return r
	}

	r.Password = plaintext
	r.Readable = true
	return r
}

func (v *Vault) openPersonal(ciphertext string) (string, error) {
	key, err := v.keys.SymmetricKey()
	if err != nil {
		return "", err
	}
	defer wipeKey(key)
	return envelope.DecryptString(ciphertext, key)
}

func (v *Vault) openTeam(ciphertext string) (string, error) {
	key, err := v.keys.PrivateKey()
	if err != nil {
		return "", err
	}
	defer wipeKey(key)
	return envelope.OpenString(ciphertext, key)
}

// UpdatePersonalSecret replaces the fields and the encrypted password of
// a personal row.
func (v *Vault) UpdatePersonalSecret(ctx context.Context, secret *domain.Secret, input SecretInput) (*domain.Secret, error) {
	if secret.IsTeam() {
		return nil, ErrNotPersonalSecret
	}
	if err := v.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid secret: %w", err)
	}

	key, err := v.keys.SymmetricKey()
	if err != nil {
		return nil, err
	}
	defer wipeKey(key)

	ciphertext, err := envelope.EncryptString(input.Password, key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	updated := *secret
	updated.Ciphertext = ciphertext
	updated.Name = input.Name
	updated.URL = input.URL
	updated.Login = input.Login
	updated.Edited = true

	return v.store.UpdateSecret(ctx, &updated)
}

// UpdateTeamSecret re-encrypts the new value for every recipient of the
// group and submits all rows in one batch. Nothing is written unless
// every row could be sealed.
func (v *Vault) UpdateTeamSecret(ctx context.Context, groupToken string, input SecretInput) ([]*domain.Secret, error) {
	if err := v.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid secret: %w", err)
	}

	rows, err := v.store.FetchSecretsByGroup(ctx, groupToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group %s: %w", groupToken, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("group %s has no rows", groupToken)
	}

	updates := make([]*domain.Secret, 0, len(rows))
	for _, row := range rows {
		if !row.IsTeam() {
			return nil, ErrNotTeamSecret
		}

		sealed, err := v.sealForMember(ctx, row.RecipientUserID, input.Password)
		if err != nil {
			return nil, err
		}

		updated := *row
		updated.Ciphertext = sealed.Ciphertext
		updated.Name = input.Name
		updated.URL = input.URL
		updated.Login = input.Login
		updated.Edited = true
		updates = append(updates, &updated)
	}

	return v.store.BatchUpdateSecrets(ctx, updates)
}

// DeleteSecret removes a personal row. A team row is one copy of a
// shared secret and only goes away with its group, see
// DeleteSecretGroup.
func (v *Vault) DeleteSecret(ctx context.Context, secret *domain.Secret) error {
	if secret.IsTeam() {
		return ErrNotPersonalSecret
	}
	return v.store.DeleteSecret(ctx, secret.ID)
}

func (v *Vault) DeleteSecretGroup(ctx context.Context, groupToken string) error {
	return v.store.DeleteSecretGroup(ctx, groupToken)
}
