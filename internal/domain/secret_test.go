package domain

import (
	"errors"
	"testing"
)

func TestSecret_Validate(t *testing.T) {
	tests := []struct {
		name    string
		secret  Secret
		wantErr bool
	}{
		{
			name:   "personal",
			secret: Secret{Scope: ScopePersonal, OwnerID: "u1"},
		},
		{
			name:    "personal with group token",
			secret:  Secret{Scope: ScopePersonal, GroupToken: "g1"},
			wantErr: true,
		},
		{
			name:    "personal with recipient",
			secret:  Secret{Scope: ScopePersonal, RecipientUserID: "u2"},
			wantErr: true,
		},
		{
			name:   "team",
			secret: Secret{Scope: ScopeTeam, TeamID: "t1", GroupToken: "g1", RecipientUserID: "u1"},
		},
		{
			name:    "team without group token",
			secret:  Secret{Scope: ScopeTeam, TeamID: "t1", RecipientUserID: "u1"},
			wantErr: true,
		},
		{
			name:    "unknown scope",
			secret:  Secret{Scope: "shared"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.secret.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidSecretScope) {
				t.Errorf("Validate() error = %v, want ErrInvalidSecretScope", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestOwnerScope_Matches(t *testing.T) {
	personal := &Secret{Scope: ScopePersonal}
	teamOne := &Secret{Scope: ScopeTeam, TeamID: "t1"}
	teamTwo := &Secret{Scope: ScopeTeam, TeamID: "t2"}

	if !PersonalScope().Matches(personal) || PersonalScope().Matches(teamOne) {
		t.Error("PersonalScope() matched the wrong rows")
	}
	if !TeamScope("t1").Matches(teamOne) || TeamScope("t1").Matches(teamTwo) {
		t.Error("TeamScope() matched the wrong rows")
	}
	if !AllTeamsScope().Matches(teamOne) || !AllTeamsScope().Matches(teamTwo) || AllTeamsScope().Matches(personal) {
		t.Error("AllTeamsScope() matched the wrong rows")
	}
}

func TestTeam_AllMemberIDs(t *testing.T) {
	team := &Team{Admins: []string{"1"}, Members: []string{"2", "1", "3", ""}}

	got := team.AllMemberIDs()
	want := []string{"1", "2", "3"}
	if len(got) != len(want) {
		t.Fatalf("AllMemberIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllMemberIDs()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if !team.IsMember("1") || !team.IsAdmin("1") || team.IsAdmin("2") {
		t.Error("membership helpers disagree with team lists")
	}
}
