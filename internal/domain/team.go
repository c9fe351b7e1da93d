package domain

import "time"

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Members   []string  `json:"members"`
	Admins    []string  `json:"admins"`
	Awaiting  []string  `json:"awaiting"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllMemberIDs returns members and admins without duplicates. Every one
// of them receives a row of each shared secret.
func (t *Team) AllMemberIDs() []string {
	seen := make(map[string]bool, len(t.Members)+len(t.Admins))
	ids := make([]string, 0, len(t.Members)+len(t.Admins))
	for _, id := range append(append([]string{}, t.Admins...), t.Members...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func (t *Team) IsAdmin(userID string) bool {
	return contains(t.Admins, userID)
}

func (t *Team) IsMember(userID string) bool {
	return contains(t.Members, userID) || contains(t.Admins, userID)
}

func (t *Team) IsAwaiting(userID string) bool {
	return contains(t.Awaiting, userID)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type CreateTeamRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type ApplyToTeamRequest struct {
	Code string `json:"code" validate:"required"`
}

type ApplicationActionRequest struct {
	Role Role `json:"role" validate:"omitempty,oneof=member admin"`
}

type TeamApplication struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type TeamMembersResponse struct {
	TeamID  string   `json:"team_id"`
	Members []string `json:"members"`
}
