package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrykmil/passy/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, encryptedPrivateKey *string) error
	UpdateIdentity(ctx context.Context, id, publicKey, encryptedPrivateKey string) error
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type userRepository struct {
	client *kivik.Client
	dbName string
}

func NewUserRepository(client *kivik.Client, dbName string) UserRepository {
	return &userRepository{
		client: client,
		dbName: dbName,
	}
}

func userDocID(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	db := r.client.DB(r.dbName)

	_, err := db.Put(ctx, userDocID(user.ID), user)
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("user %s already exists", user.ID)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	db := r.client.DB(r.dbName)

	var user domain.User
	if err := db.Get(ctx, userDocID(id)).ScanDoc(&user); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"username":   username,
			"public_key": map[string]interface{}{"$exists": true},
		},
		"limit": 1,
	}

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query user by username: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}

	var user domain.User
	if err := rows.ScanDoc(&user); err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string, encryptedPrivateKey *string) error {
	return r.patch(ctx, id, func(doc map[string]interface{}) {
		doc["password"] = passwordHash
		if encryptedPrivateKey != nil {
			doc["encrypted_private_key"] = *encryptedPrivateKey
		}
	})
}

func (r *userRepository) UpdateIdentity(ctx context.Context, id, publicKey, encryptedPrivateKey string) error {
	return r.patch(ctx, id, func(doc map[string]interface{}) {
		doc["public_key"] = publicKey
		doc["encrypted_private_key"] = encryptedPrivateKey
	})
}

// patch reads the stored document, so the write carries its _rev.
func (r *userRepository) patch(ctx context.Context, id string, apply func(map[string]interface{})) error {
	db := r.client.DB(r.dbName)

	var existingDoc map[string]interface{}
	if err := db.Get(ctx, userDocID(id)).ScanDoc(&existingDoc); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to fetch existing user for update: %w", err)
	}

	apply(existingDoc)
	existingDoc["updated_at"] = time.Now()

	if _, err := db.Put(ctx, userDocID(id), existingDoc); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
