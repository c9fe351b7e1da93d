package handler

import (
	"net/http"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/middleware"
	"github.com/patrykmil/passy/internal/service"
	"github.com/patrykmil/passy/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type SecretHandler struct {
	secretService *service.SecretService
	validator     *validator.Validate
}

func NewSecretHandler(secretService *service.SecretService) *SecretHandler {
	return &SecretHandler{
		secretService: secretService,
		validator:     validator.New(),
	}
}

// List returns the caller's rows. ?scope=team selects team rows,
// optionally narrowed with ?team_id=.
func (h *SecretHandler) List(w http.ResponseWriter, r *http.Request) {
	scope := domain.PersonalScope()
	switch domain.Scope(r.URL.Query().Get("scope")) {
	case "", domain.ScopePersonal:
	case domain.ScopeTeam:
		scope = domain.TeamScope(r.URL.Query().Get("team_id"))
	default:
		response.BadRequest(w, "scope must be personal or team")
		return
	}

	secrets, err := h.secretService.ListMine(r.Context(), middleware.GetUserID(r), scope)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, secrets)
}

func (h *SecretHandler) ListGroup(w http.ResponseWriter, r *http.Request) {
	rows, err := h.secretService.ListGroup(r.Context(), middleware.GetUserID(r), mux.Vars(r)["token"])
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, rows)
}

func (h *SecretHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSecretRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	secret, err := h.secretService.Create(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, secret)
}

func (h *SecretHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSecretRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	secret, err := h.secretService.Update(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, secret)
}

func (h *SecretHandler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchUpdateRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	secrets, err := h.secretService.BatchUpdate(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, secrets)
}

func (h *SecretHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.secretService.Delete(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}

	response.Message(w, "Secret deleted")
}

func (h *SecretHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.secretService.DeleteGroup(r.Context(), middleware.GetUserID(r), mux.Vars(r)["token"]); err != nil {
		writeError(w, err)
		return
	}

	response.Message(w, "Group deleted")
}
