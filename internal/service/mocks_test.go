package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/repository"
)

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	u := *user
	m.users[user.ID] = &u
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		u := *user
		return &u, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			u := *user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, repository.ErrNotFound)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, encryptedPrivateKey *string) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Password = passwordHash
	if encryptedPrivateKey != nil {
		user.EncryptedPrivateKey = *encryptedPrivateKey
	}
	return nil
}

func (m *mockUserRepository) UpdateIdentity(ctx context.Context, id, publicKey, encryptedPrivateKey string) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PublicKey = publicKey
	user.EncryptedPrivateKey = encryptedPrivateKey
	return nil
}

func (m *mockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	return err == nil, nil
}

type mockSecretRepository struct {
	secrets  map[string]*domain.Secret
	revision int
	conflict map[string]bool
}

func newMockSecretRepository() *mockSecretRepository {
	return &mockSecretRepository{
		secrets:  make(map[string]*domain.Secret),
		conflict: make(map[string]bool),
	}
}

func (m *mockSecretRepository) nextRev() string {
	m.revision++
	return fmt.Sprintf("%d-rev", m.revision)
}

func (m *mockSecretRepository) Create(ctx context.Context, secret *domain.Secret) error {
	if _, exists := m.secrets[secret.ID]; exists {
		return fmt.Errorf("secret %s: %w", secret.ID, repository.ErrSecretExists)
	}
	secret.Rev = m.nextRev()
	s := *secret
	m.secrets[secret.ID] = &s
	return nil
}

func (m *mockSecretRepository) FindByID(ctx context.Context, id string) (*domain.Secret, error) {
	if secret, ok := m.secrets[id]; ok {
		s := *secret
		return &s, nil
	}
	return nil, fmt.Errorf("secret %s: %w", id, repository.ErrNotFound)
}

func (m *mockSecretRepository) ListByOwner(ctx context.Context, ownerID string, scope domain.OwnerScope) ([]*domain.Secret, error) {
	return m.list(func(s *domain.Secret) bool { return s.OwnerID == ownerID && scope.Matches(s) }), nil
}

func (m *mockSecretRepository) ListByGroup(ctx context.Context, groupToken string) ([]*domain.Secret, error) {
	return m.list(func(s *domain.Secret) bool { return s.GroupToken == groupToken }), nil
}

func (m *mockSecretRepository) list(match func(*domain.Secret) bool) []*domain.Secret {
	var out []*domain.Secret
	for _, secret := range m.secrets {
		if match(secret) {
			s := *secret
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockSecretRepository) Update(ctx context.Context, secret *domain.Secret) error {
	stored, ok := m.secrets[secret.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if m.conflict[secret.ID] || secret.Rev != stored.Rev {
		return fmt.Errorf("secret %s: %w", secret.ID, repository.ErrSecretConflict)
	}
	secret.Rev = m.nextRev()
	s := *secret
	m.secrets[secret.ID] = &s
	return nil
}

// BulkUpdate applies rows one by one like CouchDB's _bulk_docs.
func (m *mockSecretRepository) BulkUpdate(ctx context.Context, secrets []*domain.Secret) error {
	var failed []string
	for _, secret := range secrets {
		if m.conflict[secret.ID] {
			failed = append(failed, secret.ID)
			continue
		}
		secret.Rev = m.nextRev()
		s := *secret
		m.secrets[secret.ID] = &s
	}
	if len(failed) > 0 {
		return &repository.BulkUpdateError{Failed: failed, Err: repository.ErrSecretConflict}
	}
	return nil
}

func (m *mockSecretRepository) Delete(ctx context.Context, secret *domain.Secret) error {
	delete(m.secrets, secret.ID)
	return nil
}

type mockTeamRepository struct {
	teams map[string]*domain.Team
}

func newMockTeamRepository() *mockTeamRepository {
	return &mockTeamRepository{
		teams: make(map[string]*domain.Team),
	}
}

func (m *mockTeamRepository) Create(ctx context.Context, team *domain.Team) error {
	if _, exists := m.teams[team.ID]; exists {
		return repository.ErrTeamExists
	}
	t := *team
	m.teams[team.ID] = &t
	return nil
}

func (m *mockTeamRepository) Get(ctx context.Context, id string) (*domain.Team, error) {
	if team, ok := m.teams[id]; ok {
		t := *team
		return &t, nil
	}
	return nil, repository.ErrTeamNotFound
}

func (m *mockTeamRepository) GetByCode(ctx context.Context, code string) (*domain.Team, error) {
	for _, team := range m.teams {
		if team.Code == code {
			t := *team
			return &t, nil
		}
	}
	return nil, repository.ErrTeamNotFound
}

func (m *mockTeamRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Team, error) {
	var out []*domain.Team
	for _, team := range m.teams {
		if team.IsMember(userID) {
			t := *team
			out = append(out, &t)
		}
	}
	return out, nil
}

func (m *mockTeamRepository) ListAwaitingAdmin(ctx context.Context, adminID string) ([]*domain.Team, error) {
	var out []*domain.Team
	for _, team := range m.teams {
		if team.IsAdmin(adminID) && len(team.Awaiting) > 0 {
			t := *team
			out = append(out, &t)
		}
	}
	return out, nil
}

func (m *mockTeamRepository) Update(ctx context.Context, team *domain.Team) error {
	if _, ok := m.teams[team.ID]; !ok {
		return repository.ErrTeamNotFound
	}
	t := *team
	m.teams[team.ID] = &t
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]*domain.Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(map[string][]*domain.Event)}
}

func (n *recordingNotifier) NotifyUser(userID string, event *domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[userID] = append(n.events[userID], event)
}
