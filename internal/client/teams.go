package client

import (
	"context"
	"net/url"

	"github.com/patrykmil/passy/internal/domain"
)

func (c *Client) FetchPublicKey(ctx context.Context, userID string) (string, error) {
	var user domain.PublicUser
	if err := c.do(ctx, "GET", "/users/"+url.PathEscape(userID), nil, &user); err != nil {
		return "", err
	}
	return user.PublicKey, nil
}

func (c *Client) FetchMembers(ctx context.Context, teamID string) ([]string, error) {
	var resp domain.TeamMembersResponse
	if err := c.do(ctx, "GET", "/teams/"+url.PathEscape(teamID)+"/members", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

func (c *Client) AcceptApplication(ctx context.Context, teamID, userID string, role domain.Role) error {
	path := "/teams/" + url.PathEscape(teamID) + "/applications/" + url.PathEscape(userID) + "/accept"
	return c.do(ctx, "POST", path, &domain.ApplicationActionRequest{Role: role}, nil)
}

func (c *Client) DeclineApplication(ctx context.Context, teamID, userID string) error {
	path := "/teams/" + url.PathEscape(teamID) + "/applications/" + url.PathEscape(userID) + "/decline"
	return c.do(ctx, "POST", path, nil, nil)
}

// RemoveMember drops userID from the team. The server deletes the rows
// the team had shared with them.
func (c *Client) RemoveMember(ctx context.Context, teamID, userID string) error {
	return c.do(ctx, "DELETE", "/teams/"+url.PathEscape(teamID)+"/members/"+url.PathEscape(userID), nil, nil)
}

func (c *Client) LeaveTeam(ctx context.Context, teamID string) error {
	return c.do(ctx, "DELETE", "/teams/"+url.PathEscape(teamID)+"/membership", nil, nil)
}

func (c *Client) ListTeams(ctx context.Context) ([]*domain.Team, error) {
	var teams []*domain.Team
	if err := c.do(ctx, "GET", "/teams", nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (c *Client) CreateTeam(ctx context.Context, name string) (*domain.Team, error) {
	var team domain.Team
	if err := c.do(ctx, "POST", "/teams", &domain.CreateTeamRequest{Name: name}, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *Client) ApplyToTeam(ctx context.Context, code string) error {
	return c.do(ctx, "POST", "/teams/apply", &domain.ApplyToTeamRequest{Code: code}, nil)
}

func (c *Client) Applications(ctx context.Context) ([]*domain.TeamApplication, error) {
	var apps []*domain.TeamApplication
	if err := c.do(ctx, "GET", "/teams/applications", nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}
