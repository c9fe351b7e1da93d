package service

import (
	"context"
	"errors"
	"testing"

	"github.com/patrykmil/passy/internal/domain"
)

type secretFixture struct {
	secrets  *mockSecretRepository
	teams    *mockTeamRepository
	notifier *recordingNotifier
	service  *SecretService
}

func newSecretFixture() *secretFixture {
	f := &secretFixture{
		secrets:  newMockSecretRepository(),
		teams:    newMockTeamRepository(),
		notifier: newRecordingNotifier(),
	}
	f.service = NewSecretService(f.secrets, f.teams, f.notifier)
	f.teams.teams["t1"] = &domain.Team{ID: "t1", Name: "ops", Admins: []string{"u1"}, Members: []string{"u2"}}
	return f
}

func teamRow(recipient string) *domain.CreateSecretRequest {
	return &domain.CreateSecretRequest{
		Scope:           domain.ScopeTeam,
		TeamID:          "t1",
		GroupToken:      "g1",
		RecipientUserID: recipient,
		Ciphertext:      "Y2lwaGVy",
		Name:            "db",
		Login:           "root",
	}
}

func TestSecretService_CreatePersonal(t *testing.T) {
	f := newSecretFixture()
	ctx := context.Background()

	secret, err := f.service.Create(ctx, "u1", &domain.CreateSecretRequest{
		Scope: domain.ScopePersonal, Ciphertext: "Y2lwaGVy", Name: "mail", Login: "alice",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if secret.OwnerID != "u1" || secret.Rev == "" {
		t.Errorf("secret = %+v", secret)
	}

	mine, _ := f.service.ListMine(ctx, "u1", domain.PersonalScope())
	if len(mine) != 1 {
		t.Errorf("ListMine() returned %d rows, want 1", len(mine))
	}
	others, _ := f.service.ListMine(ctx, "u2", domain.PersonalScope())
	if len(others) != 0 {
		t.Error("personal secret visible to another user")
	}
}

func TestSecretService_CreateTeam(t *testing.T) {
	tests := []struct {
		name      string
		caller    string
		recipient string
		wantErr   error
	}{
		{name: "admin shares with member", caller: "u1", recipient: "u2"},
		{name: "member shares with admin", caller: "u2", recipient: "u1"},
		{name: "outsider cannot share", caller: "u9", recipient: "u2", wantErr: ErrForbidden},
		{name: "recipient outside team", caller: "u1", recipient: "u9", wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSecretFixture()

			secret, err := f.service.Create(context.Background(), tt.caller, teamRow(tt.recipient))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if secret.OwnerID != tt.recipient {
				t.Errorf("OwnerID = %s, want the recipient %s", secret.OwnerID, tt.recipient)
			}
			events := f.notifier.events[tt.recipient]
			if len(events) != 1 || events[0].Type != domain.EventSecretShared {
				t.Errorf("recipient events = %+v", events)
			}
		})
	}
}

func TestSecretService_ListGroup(t *testing.T) {
	f := newSecretFixture()
	ctx := context.Background()

	for _, recipient := range []string{"u1", "u2"} {
		if _, err := f.service.Create(ctx, "u1", teamRow(recipient)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	rows, err := f.service.ListGroup(ctx, "u2", "g1")
	if err != nil {
		t.Fatalf("ListGroup() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("ListGroup() returned %d rows, want 2", len(rows))
	}

	if _, err := f.service.ListGroup(ctx, "u9", "g1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("ListGroup() by outsider error = %v, want ErrForbidden", err)
	}
}

func TestSecretService_Update(t *testing.T) {
	f := newSecretFixture()
	ctx := context.Background()

	secret, err := f.service.Create(ctx, "u1", &domain.CreateSecretRequest{
		Scope: domain.ScopePersonal, Ciphertext: "Y2lwaGVy", Name: "mail", Login: "alice",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newCipher := "bmV3"
	updated, err := f.service.Update(ctx, "u1", secret.ID, &domain.UpdateSecretRequest{Rev: secret.Rev, Ciphertext: &newCipher})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Ciphertext != newCipher || !updated.Edited {
		t.Errorf("updated = %+v", updated)
	}

	_, err = f.service.Update(ctx, "u1", secret.ID, &domain.UpdateSecretRequest{Rev: secret.Rev, Ciphertext: &newCipher})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Update() with stale rev error = %v, want *ConflictError", err)
	}
	if conflict.SecretIDs[0] != secret.ID {
		t.Errorf("conflict ids = %v", conflict.SecretIDs)
	}

	if _, err := f.service.Update(ctx, "u2", secret.ID, &domain.UpdateSecretRequest{Ciphertext: &newCipher}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Update() by another user error = %v, want ErrForbidden", err)
	}
}

func TestSecretService_BatchUpdate(t *testing.T) {
	f := newSecretFixture()
	ctx := context.Background()

	var ids []string
	for _, recipient := range []string{"u1", "u2"} {
		row, err := f.service.Create(ctx, "u1", teamRow(recipient))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, row.ID)
	}
	f.notifier.events = make(map[string][]*domain.Event)

	req := &domain.BatchUpdateRequest{Items: []domain.BatchUpdateItem{
		{ID: ids[0], Ciphertext: "b25l"},
		{ID: ids[1], Ciphertext: "dHdv", Edited: true},
	}}
	updated, err := f.service.BatchUpdate(ctx, "u1", req)
	if err != nil {
		t.Fatalf("BatchUpdate() error = %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("BatchUpdate() returned %d rows", len(updated))
	}
	if f.secrets.secrets[ids[1]].Ciphertext != "dHdv" || !f.secrets.secrets[ids[1]].Edited {
		t.Error("second row not updated")
	}

	events := f.notifier.events["u2"]
	if len(events) != 1 || events[0].Type != domain.EventSecretsRotated {
		t.Errorf("u2 events = %+v", events)
	}
	if len(f.notifier.events["u1"]) != 0 {
		t.Error("caller should not be notified of its own update")
	}
}

func TestSecretService_BatchUpdate_NothingWrittenOnForbiddenRow(t *testing.T) {
	f := newSecretFixture()
	ctx := context.Background()

	mine, _ := f.service.Create(ctx, "u1", &domain.CreateSecretRequest{
		Scope: domain.ScopePersonal, Ciphertext: "Y2lwaGVy", Name: "mail", Login: "alice",
	})
	theirs, _ := f.service.Create(ctx, "u2", &domain.CreateSecretRequest{
		Scope: domain.ScopePersonal, Ciphertext: "Y2lwaGVy", Name: "bank", Login: "bob",
	})

	_, err := f.service.BatchUpdate(ctx, "u1", &domain.BatchUpdateRequest{Items: []domain.BatchUpdateItem{
		{ID: mine.ID, Ciphertext: "bmV3"},
		{ID: theirs.ID, Ciphertext: "bmV3"},
	}})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("BatchUpdate() error = %v, want ErrForbidden", err)
	}
	if f.secrets.secrets[mine.ID].Ciphertext != "Y2lwaGVy" {
		t.Error("no row may be written when one is forbidden")
	}
}

func TestSecretService_BatchUpdate_Conflict(t *testing.T) {
	f := newSecretFixture()
	ctx := context.Background()

	secret, _ := f.service.Create(ctx, "u1", &domain.CreateSecretRequest{
		Scope: domain.ScopePersonal, Ciphertext: "Y2lwaGVy", Name: "mail", Login: "alice",
	})
	f.secrets.conflict[secret.ID] = true

	_, err := f.service.BatchUpdate(ctx, "u1", &domain.BatchUpdateRequest{Items: []domain.BatchUpdateItem{
		{ID: secret.ID, Ciphertext: "bmV3"},
	}})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("BatchUpdate() error = %v, want *ConflictError", err)
	}
	if len(conflict.SecretIDs) != 1 || conflict.SecretIDs[0] != secret.ID {
		t.Errorf("SecretIDs = %v, want [%s]", conflict.SecretIDs, secret.ID)
	}
}

func TestSecretService_BatchUpdate_PartialConflict(t *testing.T) {
	f := newSecretFixture()
	ctx := context.Background()

	var ids []string
	for _, recipient := range []string{"u1", "u2"} {
		row, err := f.service.Create(ctx, "u1", teamRow(recipient))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, row.ID)
	}
	applied, rejected := ids[1], ids[0]
	f.secrets.conflict[rejected] = true
	f.notifier.events = make(map[string][]*domain.Event)

	updated, err := f.service.BatchUpdate(ctx, "u1", &domain.BatchUpdateRequest{Items: []domain.BatchUpdateItem{
		{ID: ids[0], Ciphertext: "b25l"},
		{ID: ids[1], Ciphertext: "dHdv"},
	}})

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("BatchUpdate() error = %v, want *ConflictError", err)
	}
	if len(conflict.SecretIDs) != 1 || conflict.SecretIDs[0] != rejected {
		t.Errorf("SecretIDs = %v, want only [%s]", conflict.SecretIDs, rejected)
	}
	if len(updated) != 1 || updated[0].ID != applied {
		t.Errorf("updated = %+v, want only %s", updated, applied)
	}
	if f.secrets.secrets[applied].Ciphertext != "dHdv" {
		t.Error("non-conflicting row should be written")
	}

	events := f.notifier.events["u2"]
	if len(events) != 1 || events[0].Type != domain.EventSecretsRotated {
		t.Fatalf("u2 events = %+v", events)
	}
	if p := events[0].Payload.(*domain.SecretsRotatedPayload); len(p.SecretIDs) != 1 || p.SecretIDs[0] != applied {
		t.Errorf("rotated ids = %v, want [%s]", p.SecretIDs, applied)
	}
}

func TestSecretService_CreateTeam_OneRowPerRecipient(t *testing.T) {
	f := newSecretFixture()
	ctx := context.Background()

	first, err := f.service.Create(ctx, "u1", teamRow("u2"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := f.service.Create(ctx, "u1", teamRow("u2")); !errors.Is(err, ErrDuplicateRow) {
		t.Fatalf("second Create() error = %v, want ErrDuplicateRow", err)
	}

	rows, _ := f.service.ListGroup(ctx, "u1", "g1")
	if len(rows) != 1 || rows[0].ID != first.ID {
		t.Errorf("group rows = %+v, want only %s", rows, first.ID)
	}

	other := teamRow("u2")
	other.GroupToken = "g2"
	if _, err := f.service.Create(ctx, "u1", other); err != nil {
		t.Errorf("Create() in another group error = %v", err)
	}
}

func TestSecretService_DeleteGroup(t *testing.T) {
	f := newSecretFixture()
	ctx := context.Background()

	for _, recipient := range []string{"u1", "u2"} {
		if _, err := f.service.Create(ctx, "u1", teamRow(recipient)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	if err := f.service.DeleteGroup(ctx, "u9", "g1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("DeleteGroup() by outsider error = %v, want ErrForbidden", err)
	}

	if err := f.service.DeleteGroup(ctx, "u1", "g1"); err != nil {
		t.Fatalf("DeleteGroup() error = %v", err)
	}
	if len(f.secrets.secrets) != 0 {
		t.Errorf("%d rows left", len(f.secrets.secrets))
	}

	var deleted bool
	for _, e := range f.notifier.events["u2"] {
		if e.Type == domain.EventGroupDeleted {
			deleted = true
		}
	}
	if !deleted {
		t.Error("u2 not notified of group deletion")
	}
}

func TestSecretService_Delete(t *testing.T) {
	f := newSecretFixture()
	ctx := context.Background()

	secret, _ := f.service.Create(ctx, "u1", &domain.CreateSecretRequest{
		Scope: domain.ScopePersonal, Ciphertext: "Y2lwaGVy", Name: "mail", Login: "alice",
	})

	if err := f.service.Delete(ctx, "u2", secret.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete() by another user error = %v, want ErrForbidden", err)
	}
	if err := f.service.Delete(ctx, "u1", secret.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := f.service.Delete(ctx, "u1", secret.ID); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("second Delete() error = %v, want ErrSecretNotFound", err)
	}
}

func TestSecretService_Delete_TeamRow(t *testing.T) {
	tests := []struct {
		name   string
		caller string
	}{
		{name: "other member", caller: "u1"},
		{name: "recipient", caller: "u2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSecretFixture()
			ctx := context.Background()

			row, err := f.service.Create(ctx, "u1", teamRow("u2"))
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			if err := f.service.Delete(ctx, tt.caller, row.ID); !errors.Is(err, ErrSharedRow) {
				t.Errorf("Delete() error = %v, want ErrSharedRow", err)
			}
			if _, ok := f.secrets.secrets[row.ID]; !ok {
				t.Error("team row must survive a single-row delete")
			}
		})
	}
}
