package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/service"
	"github.com/patrykmil/passy/pkg/hash"
	"github.com/patrykmil/passy/pkg/response"

	"github.com/go-playground/validator/v10"
)

// writeError maps service errors onto status codes. Anything unknown is
// a 500 and its text is not echoed.
func writeError(w http.ResponseWriter, err error) {
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		response.ErrorWithData(w, http.StatusConflict, conflict.Error(), &domain.ConflictPayload{SecretIDs: conflict.SecretIDs})
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotTeamAdmin),
		errors.Is(err, service.ErrSharedRow):
		response.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrSecretNotFound),
		errors.Is(err, service.ErrTeamNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNoApplication),
		errors.Is(err, service.ErrNotMember):
		response.NotFound(w, err.Error())
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, service.ErrDuplicateRow):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrLastAdmin),
		errors.Is(err, hash.ErrPasswordTooShort),
		errors.Is(err, domain.ErrInvalidSecretScope):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}

// decode reads a JSON body into req and validates it.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}

	if err := v.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return false
	}
	return true
}
