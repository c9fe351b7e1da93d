package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var ErrNoMetadata = errors.New("no session metadata")

// Metadata is the durable, non-secret part of a session. It must never
// carry key material.
type Metadata struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token,omitempty"`
	IsAuthenticated bool      `json:"is_authenticated"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MetadataStore persists Metadata as a 0600 JSON file.
type MetadataStore struct {
	path string
}

func NewMetadataStore(path string) *MetadataStore {
	return &MetadataStore{path: path}
}

func (s *MetadataStore) Save(meta *Metadata) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	meta.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session metadata: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session metadata: %w", err)
	}

	return nil
}

func (s *MetadataStore) Load() (*Metadata, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoMetadata
		}
		return nil, fmt.Errorf("failed to read session metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode session metadata: %w", err)
	}

	return &meta, nil
}

func (s *MetadataStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session metadata: %w", err)
	}
	return nil
}
