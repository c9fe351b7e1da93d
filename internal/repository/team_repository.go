package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrykmil/passy/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

var (
	ErrTeamNotFound = errors.New("team not found")
	ErrTeamExists   = errors.New("team already exists")
)

const teamDocType = "team"

type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	Get(ctx context.Context, id string) (*domain.Team, error)
	GetByCode(ctx context.Context, code string) (*domain.Team, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Team, error)
	ListAwaitingAdmin(ctx context.Context, adminID string) ([]*domain.Team, error)
	Update(ctx context.Context, team *domain.Team) error
}

type CouchDBTeamRepository struct {
	db *kivik.DB
}

type teamDoc struct {
	ID        string   `json:"_id"`
	Rev       string   `json:"_rev,omitempty"`
	DocType   string   `json:"doc_type"`
	Name      string   `json:"name"`
	Code      string   `json:"code"`
	Members   []string `json:"members"`
	Admins    []string `json:"admins"`
	Awaiting  []string `json:"awaiting"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func NewTeamRepository(client *kivik.Client, dbName string) *CouchDBTeamRepository {
	return &CouchDBTeamRepository{
		db: client.DB(dbName),
	}
}

func teamDocID(id string) string {
	return fmt.Sprintf("team:%s", id)
}

func teamToDoc(team *domain.Team, rev string) teamDoc {
	return teamDoc{
		ID:        teamDocID(team.ID),
		Rev:       rev,
		DocType:   teamDocType,
		Name:      team.Name,
		Code:      team.Code,
		Members:   nonNil(team.Members),
		Admins:    nonNil(team.Admins),
		Awaiting:  nonNil(team.Awaiting),
		CreatedAt: team.CreatedAt.Format(time.RFC3339),
		UpdatedAt: team.UpdatedAt.Format(time.RFC3339),
	}
}

func (r *CouchDBTeamRepository) Create(ctx context.Context, team *domain.Team) error {
	doc := teamToDoc(team, "")

	_, err := r.db.Put(ctx, doc.ID, doc)
	if err != nil {
		if isConflict(err) {
			return ErrTeamExists
		}
		return fmt.Errorf("failed to create team: %w", err)
	}

	return nil
}

func (r *CouchDBTeamRepository) Get(ctx context.Context, id string) (*domain.Team, error) {
	var doc teamDoc
	if err := r.db.Get(ctx, teamDocID(id)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return docToTeam(&doc)
}

func (r *CouchDBTeamRepository) GetByCode(ctx context.Context, code string) (*domain.Team, error) {
	teams, err := r.find(ctx, map[string]interface{}{
		"doc_type": teamDocType,
		"code":     code,
	}, 1)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, ErrTeamNotFound
	}
	return teams[0], nil
}

func (r *CouchDBTeamRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Team, error) {
	return r.find(ctx, map[string]interface{}{
		"doc_type": teamDocType,
		"$or": []interface{}{
			map[string]interface{}{"members": map[string]interface{}{"$elemMatch": map[string]interface{}{"$eq": userID}}},
			map[string]interface{}{"admins": map[string]interface{}{"$elemMatch": map[string]interface{}{"$eq": userID}}},
		},
	}, 0)
}

// ListAwaitingAdmin returns the teams administered by adminID that have
// pending applications.
func (r *CouchDBTeamRepository) ListAwaitingAdmin(ctx context.Context, adminID string) ([]*domain.Team, error) {
	return r.find(ctx, map[string]interface{}{
		"doc_type": teamDocType,
		"admins":   map[string]interface{}{"$elemMatch": map[string]interface{}{"$eq": adminID}},
		"awaiting": map[string]interface{}{"$not": map[string]interface{}{"$size": 0}},
	}, 0)
}

func (r *CouchDBTeamRepository) find(ctx context.Context, selector map[string]interface{}, limit int) ([]*domain.Team, error) {
	query := map[string]interface{}{
		"selector": selector,
	}
	if limit > 0 {
		query["limit"] = limit
	}

	rows := r.db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []*domain.Team
	for rows.Next() {
		var doc teamDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}

		team, err := docToTeam(&doc)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}

	return teams, nil
}

func (r *CouchDBTeamRepository) Update(ctx context.Context, team *domain.Team) error {
	var existingDoc teamDoc
	if err := r.db.Get(ctx, teamDocID(team.ID)).ScanDoc(&existingDoc); err != nil {
		if isNotFound(err) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to get team for update: %w", err)
	}

	doc := teamToDoc(team, existingDoc.Rev)
	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}

	return nil
}

func docToTeam(doc *teamDoc) (*domain.Team, error) {
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	updatedAt, err := parseTime(doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &domain.Team{
		ID:        strings.TrimPrefix(doc.ID, "team:"),
		Name:      doc.Name,
		Code:      doc.Code,
		Members:   doc.Members,
		Admins:    doc.Admins,
		Awaiting:  doc.Awaiting,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
