package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/repository"

	"github.com/google/uuid"
)

// TeamService manages membership. Sharing existing secrets with a new
// member happens on an admin's client, since only members can decrypt.
type TeamService struct {
	teamRepo repository.TeamRepository
	userRepo repository.UserRepository
	secrets  *SecretService
	notifier Notifier
}

func NewTeamService(teamRepo repository.TeamRepository, userRepo repository.UserRepository, secrets *SecretService, notifier Notifier) *TeamService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &TeamService{
		teamRepo: teamRepo,
		userRepo: userRepo,
		secrets:  secrets,
		notifier: notifier,
	}
}

func newTeamCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func (s *TeamService) Create(ctx context.Context, userID string, req *domain.CreateTeamRequest) (*domain.Team, error) {
	now := time.Now()
	team := &domain.Team{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Code:      newTeamCode(),
		Members:   []string{},
		Admins:    []string{userID},
		Awaiting:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (s *TeamService) ListMine(ctx context.Context, userID string) ([]*domain.Team, error) {
	teams, err := s.teamRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []*domain.Team{}
	}
	return teams, nil
}

// Members lists everyone a shared secret of the team must be sealed to.
func (s *TeamService) Members(ctx context.Context, userID, teamID string) (*domain.TeamMembersResponse, error) {
	team, err := s.get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsMember(userID) {
		return nil, ErrForbidden
	}

	return &domain.TeamMembersResponse{
		TeamID:  team.ID,
		Members: team.AllMemberIDs(),
	}, nil
}

func (s *TeamService) Apply(ctx context.Context, userID string, req *domain.ApplyToTeamRequest) (*domain.Team, error) {
	team, err := s.teamRepo.GetByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	if team.IsMember(userID) {
		return nil, ErrAlreadyMember
	}
	if team.IsAwaiting(userID) {
		return team, nil
	}

	team.Awaiting = append(team.Awaiting, userID)
	team.UpdatedAt = time.Now()
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to apply to team: %w", err)
	}
	return team, nil
}

func (s *TeamService) Applications(ctx context.Context, adminID string) ([]*domain.TeamApplication, error) {
	teams, err := s.teamRepo.ListAwaitingAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	apps := []*domain.TeamApplication{}
	for _, team := range teams {
		for _, userID := range team.Awaiting {
			app := &domain.TeamApplication{TeamID: team.ID, TeamName: team.Name, UserID: userID}
			if user, err := s.userRepo.FindByID(ctx, userID); err == nil {
				app.Username = user.Username
			}
			apps = append(apps, app)
		}
	}
	return apps, nil
}

// Accept moves an applicant into the team with the given role.
func (s *TeamService) Accept(ctx context.Context, adminID, teamID, userID string, role domain.Role) (*domain.Team, error) {
	team, err := s.adminTeam(ctx, adminID, teamID)
	if err != nil {
		return nil, err
	}
	if team.IsMember(userID) {
		return nil, ErrAlreadyMember
	}
	if !team.IsAwaiting(userID) {
		return nil, ErrNoApplication
	}

	if role == "" {
		role = domain.RoleMember
	}

	team.Awaiting = without(team.Awaiting, userID)
	if role == domain.RoleAdmin {
		team.Admins = append(team.Admins, userID)
	} else {
		team.Members = append(team.Members, userID)
	}
	team.UpdatedAt = time.Now()

	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to accept application: %w", err)
	}

	s.notifier.NotifyUser(userID, &domain.Event{
		Type:    domain.EventTeamAccepted,
		Payload: &domain.TeamMembershipPayload{TeamID: team.ID, TeamName: team.Name, Role: role},
	})
	return team, nil
}

func (s *TeamService) Decline(ctx context.Context, adminID, teamID, userID string) error {
	team, err := s.adminTeam(ctx, adminID, teamID)
	if err != nil {
		return err
	}
	if !team.IsAwaiting(userID) {
		return ErrNoApplication
	}

	team.Awaiting = without(team.Awaiting, userID)
	team.UpdatedAt = time.Now()
	return s.teamRepo.Update(ctx, team)
}

// RemoveMember drops userID from the team and deletes the rows the team
// had shared with them.
func (s *TeamService) RemoveMember(ctx context.Context, adminID, teamID, userID string) error {
	team, err := s.adminTeam(ctx, adminID, teamID)
	if err != nil {
		return err
	}
	if !team.IsMember(userID) {
		return ErrUserNotFound
	}
	if err := s.dropMember(ctx, team, userID); err != nil {
		return err
	}

	s.notifier.NotifyUser(userID, &domain.Event{
		Type:    domain.EventTeamRemoved,
		Payload: &domain.TeamMembershipPayload{TeamID: team.ID, TeamName: team.Name},
	})
	return nil
}

// Leave takes the caller out of the team and tells the remaining admins.
func (s *TeamService) Leave(ctx context.Context, userID, teamID string) error {
	team, err := s.get(ctx, teamID)
	if err != nil {
		return err
	}
	if !team.IsMember(userID) {
		return ErrNotMember
	}
	if err := s.dropMember(ctx, team, userID); err != nil {
		return err
	}

	for _, adminID := range team.Admins {
		s.notifier.NotifyUser(adminID, &domain.Event{
			Type:    domain.EventMemberLeft,
			Payload: &domain.MemberLeftPayload{TeamID: team.ID, UserID: userID},
		})
	}
	return nil
}

// dropMember removes userID from team and deletes the rows the team had
// shared with them. The last admin cannot be dropped.
func (s *TeamService) dropMember(ctx context.Context, team *domain.Team, userID string) error {
	if team.IsAdmin(userID) && len(team.Admins) == 1 {
		return ErrLastAdmin
	}

	team.Members = without(team.Members, userID)
	team.Admins = without(team.Admins, userID)
	team.UpdatedAt = time.Now()

	if err := s.teamRepo.Update(ctx, team); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if err := s.secrets.DeleteMemberRows(ctx, team.ID, userID); err != nil {
		return fmt.Errorf("member removed but secrets remain: %w", err)
	}
	return nil
}

func (s *TeamService) adminTeam(ctx context.Context, adminID, teamID string) (*domain.Team, error) {
	team, err := s.get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsAdmin(adminID) {
		return nil, ErrNotTeamAdmin
	}
	return team, nil
}

func (s *TeamService) get(ctx context.Context, teamID string) (*domain.Team, error) {
	team, err := s.teamRepo.Get(ctx, teamID)
	if err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
