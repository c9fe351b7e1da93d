package domain

type EventType string

const (
	EventSecretShared   EventType = "secret_shared"
	EventSecretsRotated EventType = "secrets_rotated"
	EventGroupDeleted   EventType = "group_deleted"
	EventTeamAccepted   EventType = "team_accepted"
	EventTeamRemoved    EventType = "team_removed"
	EventMemberLeft     EventType = "member_left"
)

// Event is pushed to a user's open connections. Payloads carry ids only,
// never ciphertext.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type SecretSharedPayload struct {
	SecretID   string `json:"secret_id"`
	TeamID     string `json:"team_id"`
	GroupToken string `json:"group_token"`
	SharedBy   string `json:"shared_by"`
}

type SecretsRotatedPayload struct {
	SecretIDs []string `json:"secret_ids"`
	UpdatedBy string   `json:"updated_by"`
}

type GroupDeletedPayload struct {
	GroupToken string `json:"group_token"`
	TeamID     string `json:"team_id"`
}

type TeamMembershipPayload struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	Role     Role   `json:"role,omitempty"`
}

type MemberLeftPayload struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}
