package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/patrykmil/passy/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

const secretDocType = "secret"

type SecretRepository interface {
	Create(ctx context.Context, secret *domain.Secret) error
	FindByID(ctx context.Context, id string) (*domain.Secret, error)
	ListByOwner(ctx context.Context, ownerID string, scope domain.OwnerScope) ([]*domain.Secret, error)
	ListByGroup(ctx context.Context, groupToken string) ([]*domain.Secret, error)
	Update(ctx context.Context, secret *domain.Secret) error
	BulkUpdate(ctx context.Context, secrets []*domain.Secret) error
	Delete(ctx context.Context, secret *domain.Secret) error
}

// secretDocument is the stored form of a secret. Rev mirrors the
// CouchDB revision so stale writes are rejected.
type secretDocument struct {
	DocID   string `json:"_id,omitempty"`
	DocRev  string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Secret
}

func newSecretDocument(s *domain.Secret) *secretDocument {
	doc := &secretDocument{
		DocID:   secretDocID(s.ID),
		DocRev:  s.Rev,
		DocType: secretDocType,
		Secret:  *s,
	}
	doc.Secret.Rev = ""
	return doc
}

func (d *secretDocument) toDomain() *domain.Secret {
	s := d.Secret
	s.Rev = d.DocRev
	return &s
}

type secretRepository struct {
	client *kivik.Client
	dbName string
}

func NewSecretRepository(client *kivik.Client, dbName string) SecretRepository {
	return &secretRepository{
		client: client,
		dbName: dbName,
	}
}

const secretDocPrefix = "secret:"

func secretDocID(id string) string {
	return secretDocPrefix + id
}

func (r *secretRepository) Create(ctx context.Context, secret *domain.Secret) error {
	db := r.client.DB(r.dbName)

	doc := newSecretDocument(secret)
	doc.DocRev = ""

	rev, err := db.Put(ctx, doc.DocID, doc)
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("secret %s: %w", secret.ID, ErrSecretExists)
		}
		return fmt.Errorf("failed to create secret: %w", err)
	}

	secret.Rev = rev
	return nil
}

func (r *secretRepository) FindByID(ctx context.Context, id string) (*domain.Secret, error) {
	db := r.client.DB(r.dbName)

	var doc secretDocument
	if err := db.Get(ctx, secretDocID(id)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("secret %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find secret: %w", err)
	}

	return doc.toDomain(), nil
}

func (r *secretRepository) ListByOwner(ctx context.Context, ownerID string, scope domain.OwnerScope) ([]*domain.Secret, error) {
	selector := map[string]interface{}{
		"doc_type": secretDocType,
		"owner_id": ownerID,
		"scope":    scope.Kind,
	}
	if scope.TeamID != "" {
		selector["team_id"] = scope.TeamID
	}
	return r.find(ctx, selector)
}

func (r *secretRepository) ListByGroup(ctx context.Context, groupToken string) ([]*domain.Secret, error) {
	return r.find(ctx, map[string]interface{}{
		"doc_type":    secretDocType,
		"group_token": groupToken,
	})
}

func (r *secretRepository) find(ctx context.Context, selector map[string]interface{}) ([]*domain.Secret, error) {
	db := r.client.DB(r.dbName)

	rows := db.Find(ctx, map[string]interface{}{
		"selector": selector,
	})
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	defer rows.Close()

	var secrets []*domain.Secret
	for rows.Next() {
		var doc secretDocument
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan secret: %w", err)
		}
		secrets = append(secrets, doc.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}

	sort.Slice(secrets, func(i, j int) bool { return secrets[i].ID < secrets[j].ID })
	return secrets, nil
}

func (r *secretRepository) Update(ctx context.Context, secret *domain.Secret) error {
	db := r.client.DB(r.dbName)

	doc := newSecretDocument(secret)
	if doc.DocRev == "" {
		rev, err := db.GetRev(ctx, doc.DocID)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("secret %s: %w", secret.ID, ErrNotFound)
			}
			return fmt.Errorf("failed to fetch secret revision: %w", err)
		}
		doc.DocRev = rev
	}

	rev, err := db.Put(ctx, doc.DocID, doc)
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("secret %s: %w", secret.ID, ErrSecretConflict)
		}
		return fmt.Errorf("failed to update secret: %w", err)
	}

	secret.Rev = rev
	return nil
}

// BulkUpdate writes all secrets in one request. CouchDB applies bulk
// writes per document, so the rows that failed are returned in a
// *BulkUpdateError while the rest keep their new revisions.
func (r *secretRepository) BulkUpdate(ctx context.Context, secrets []*domain.Secret) error {
	db := r.client.DB(r.dbName)

	docs := make([]interface{}, 0, len(secrets))
	for _, s := range secrets {
		doc := newSecretDocument(s)
		if doc.DocRev == "" {
			rev, err := db.GetRev(ctx, doc.DocID)
			if err != nil {
				return fmt.Errorf("failed to fetch revision of secret %s: %w", s.ID, err)
			}
			doc.DocRev = rev
		}
		docs = append(docs, doc)
	}

	results, err := db.BulkDocs(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to update secrets: %w", err)
	}

	byDocID := make(map[string]*domain.Secret, len(secrets))
	for _, s := range secrets {
		byDocID[secretDocID(s.ID)] = s
	}

	var (
		failed []string
		errs   []error
	)
	for _, res := range results {
		if res.Error != nil {
			id := strings.TrimPrefix(res.ID, secretDocPrefix)
			failed = append(failed, id)
			if isConflict(res.Error) {
				errs = append(errs, fmt.Errorf("%s: %w", id, ErrSecretConflict))
			} else {
				errs = append(errs, fmt.Errorf("%s: %w", id, res.Error))
			}
			continue
		}
		if s, ok := byDocID[res.ID]; ok {
			s.Rev = res.Rev
		}
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		return &BulkUpdateError{Failed: failed, Err: errors.Join(errs...)}
	}
	return nil
}

func (r *secretRepository) Delete(ctx context.Context, secret *domain.Secret) error {
	db := r.client.DB(r.dbName)

	rev := secret.Rev
	if rev == "" {
		current, err := db.GetRev(ctx, secretDocID(secret.ID))
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return fmt.Errorf("failed to fetch secret revision: %w", err)
		}
		rev = current
	}

	if _, err := db.Delete(ctx, secretDocID(secret.ID), rev); err != nil {
		if isConflict(err) {
			return fmt.Errorf("secret %s: %w", secret.ID, ErrSecretConflict)
		}
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	return nil
}
