package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/service"
	"github.com/patrykmil/passy/pkg/hash"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"conflict", &service.ConflictError{SecretIDs: []string{"a"}, Err: errors.New("rev")}, http.StatusConflict},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden wrapped", fmt.Errorf("secret x: %w", service.ErrForbidden), http.StatusForbidden},
		{"not admin", service.ErrNotTeamAdmin, http.StatusForbidden},
		{"secret missing", service.ErrSecretNotFound, http.StatusNotFound},
		{"team missing", service.ErrTeamNotFound, http.StatusNotFound},
		{"shared row delete", service.ErrSharedRow, http.StatusForbidden},
		{"not a member", service.ErrNotMember, http.StatusNotFound},
		{"username taken", service.ErrUsernameTaken, http.StatusConflict},
		{"duplicate team row", fmt.Errorf("%w: u2 in group g1", service.ErrDuplicateRow), http.StatusConflict},
		{"last admin", service.ErrLastAdmin, http.StatusBadRequest},
		{"short password", hash.ErrPasswordTooShort, http.StatusBadRequest},
		{"bad scope", domain.ErrInvalidSecretScope, http.StatusBadRequest},
		{"unknown", errors.New("couch exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
