package service

import (
	"context"
	"errors"
	"testing"

	"github.com/patrykmil/passy/internal/domain"
)

type teamFixture struct {
	teams    *mockTeamRepository
	users    *mockUserRepository
	secrets  *mockSecretRepository
	notifier *recordingNotifier
	service  *TeamService
}

func newTeamFixture() *teamFixture {
	f := &teamFixture{
		teams:    newMockTeamRepository(),
		users:    newMockUserRepository(),
		secrets:  newMockSecretRepository(),
		notifier: newRecordingNotifier(),
	}
	secretService := NewSecretService(f.secrets, f.teams, f.notifier)
	f.service = NewTeamService(f.teams, f.users, secretService, f.notifier)
	f.users.users["u3"] = &domain.User{ID: "u3", Username: "carol"}
	return f
}

func TestTeamService_ApplyAndAccept(t *testing.T) {
	f := newTeamFixture()
	ctx := context.Background()

	team, err := f.service.Create(ctx, "u1", &domain.CreateTeamRequest{Name: "ops"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !team.IsAdmin("u1") || len(team.Code) != 12 {
		t.Fatalf("team = %+v", team)
	}

	if _, err := f.service.Apply(ctx, "u3", &domain.ApplyToTeamRequest{Code: team.Code}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, err := f.service.Apply(ctx, "u3", &domain.ApplyToTeamRequest{Code: team.Code}); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}

	apps, err := f.service.Applications(ctx, "u1")
	if err != nil {
		t.Fatalf("Applications() error = %v", err)
	}
	if len(apps) != 1 || apps[0].UserID != "u3" || apps[0].Username != "carol" {
		t.Errorf("Applications() = %+v", apps)
	}

	if _, err := f.service.Accept(ctx, "u3", team.ID, "u3", domain.RoleMember); !errors.Is(err, ErrNotTeamAdmin) {
		t.Errorf("Accept() by applicant error = %v, want ErrNotTeamAdmin", err)
	}

	accepted, err := f.service.Accept(ctx, "u1", team.ID, "u3", "")
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if !accepted.IsMember("u3") || accepted.IsAwaiting("u3") {
		t.Errorf("team after accept = %+v", accepted)
	}

	events := f.notifier.events["u3"]
	if len(events) != 1 || events[0].Type != domain.EventTeamAccepted {
		t.Errorf("u3 events = %+v", events)
	}

	members, err := f.service.Members(ctx, "u3", team.ID)
	if err != nil {
		t.Fatalf("Members() error = %v", err)
	}
	if len(members.Members) != 2 || members.Members[0] != "u1" {
		t.Errorf("Members() = %v", members.Members)
	}

	if _, err := f.service.Apply(ctx, "u3", &domain.ApplyToTeamRequest{Code: team.Code}); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("Apply() by member error = %v, want ErrAlreadyMember", err)
	}
}

func TestTeamService_Decline(t *testing.T) {
	f := newTeamFixture()
	ctx := context.Background()
	f.teams.teams["t1"] = &domain.Team{ID: "t1", Admins: []string{"u1"}, Awaiting: []string{"u3"}}

	if err := f.service.Decline(ctx, "u1", "t1", "u3"); err != nil {
		t.Fatalf("Decline() error = %v", err)
	}
	if f.teams.teams["t1"].IsAwaiting("u3") {
		t.Error("application still pending")
	}
	if _, err := f.service.Accept(ctx, "u1", "t1", "u3", domain.RoleMember); !errors.Is(err, ErrNoApplication) {
		t.Errorf("Accept() after decline error = %v, want ErrNoApplication", err)
	}
}

func TestTeamService_Members_Forbidden(t *testing.T) {
	f := newTeamFixture()
	f.teams.teams["t1"] = &domain.Team{ID: "t1", Admins: []string{"u1"}}

	if _, err := f.service.Members(context.Background(), "u9", "t1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Members() error = %v, want ErrForbidden", err)
	}
	if _, err := f.service.Members(context.Background(), "u1", "missing"); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("Members() error = %v, want ErrTeamNotFound", err)
	}
}

func TestTeamService_RemoveMember(t *testing.T) {
	f := newTeamFixture()
	ctx := context.Background()
	f.teams.teams["t1"] = &domain.Team{ID: "t1", Admins: []string{"u1"}, Members: []string{"u2"}}

	f.secrets.secrets["s1"] = &domain.Secret{ID: "s1", Scope: domain.ScopeTeam, TeamID: "t1", GroupToken: "g1", OwnerID: "u2", RecipientUserID: "u2"}
	f.secrets.secrets["s2"] = &domain.Secret{ID: "s2", Scope: domain.ScopeTeam, TeamID: "t1", GroupToken: "g1", OwnerID: "u1", RecipientUserID: "u1"}
	f.secrets.secrets["s3"] = &domain.Secret{ID: "s3", Scope: domain.ScopePersonal, OwnerID: "u2"}

	if err := f.service.RemoveMember(ctx, "u1", "t1", "u1"); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("RemoveMember() of last admin error = %v, want ErrLastAdmin", err)
	}

	if err := f.service.RemoveMember(ctx, "u1", "t1", "u2"); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if f.teams.teams["t1"].IsMember("u2") {
		t.Error("u2 still a member")
	}
	if _, ok := f.secrets.secrets["s1"]; ok {
		t.Error("removed member's team row not deleted")
	}
	if _, ok := f.secrets.secrets["s2"]; !ok {
		t.Error("admin's row must remain")
	}
	if _, ok := f.secrets.secrets["s3"]; !ok {
		t.Error("personal secret must remain")
	}
}

func TestTeamService_Leave(t *testing.T) {
	tests := []struct {
		name    string
		team    *domain.Team
		caller  string
		wantErr error
	}{
		{
			name:   "member leaves",
			team:   &domain.Team{ID: "t1", Admins: []string{"u1"}, Members: []string{"u2"}},
			caller: "u2",
		},
		{
			name:   "one of two admins leaves",
			team:   &domain.Team{ID: "t1", Admins: []string{"u1", "u2"}},
			caller: "u2",
		},
		{
			name:    "last admin stays",
			team:    &domain.Team{ID: "t1", Admins: []string{"u1"}, Members: []string{"u2"}},
			caller:  "u1",
			wantErr: ErrLastAdmin,
		},
		{
			name:    "outsider",
			team:    &domain.Team{ID: "t1", Admins: []string{"u1"}},
			caller:  "u9",
			wantErr: ErrNotMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTeamFixture()
			ctx := context.Background()
			f.teams.teams["t1"] = tt.team
			f.secrets.secrets["mine"] = &domain.Secret{ID: "mine", Scope: domain.ScopeTeam, TeamID: "t1", GroupToken: "g1", OwnerID: tt.caller, RecipientUserID: tt.caller}
			f.secrets.secrets["admin"] = &domain.Secret{ID: "admin", Scope: domain.ScopeTeam, TeamID: "t1", GroupToken: "g1", OwnerID: "u1", RecipientUserID: "u1"}

			err := f.service.Leave(ctx, tt.caller, "t1")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Leave() error = %v, want %v", err, tt.wantErr)
				}
				if _, ok := f.secrets.secrets["mine"]; !ok {
					t.Error("rows must stay when leaving fails")
				}
				return
			}
			if err != nil {
				t.Fatalf("Leave() error = %v", err)
			}
			if f.teams.teams["t1"].IsMember(tt.caller) {
				t.Error("caller still a member")
			}
			if _, ok := f.secrets.secrets["mine"]; ok {
				t.Error("caller's team row not deleted")
			}
			if _, ok := f.secrets.secrets["admin"]; !ok {
				t.Error("rows of other members must remain")
			}
			events := f.notifier.events["u1"]
			if len(events) != 1 || events[0].Type != domain.EventMemberLeft {
				t.Errorf("admin events = %+v", events)
			}
		})
	}
}
