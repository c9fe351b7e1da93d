package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/middleware"
	"github.com/patrykmil/passy/internal/service"
	"github.com/patrykmil/passy/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type TeamHandler struct {
	teamService *service.TeamService
	validator   *validator.Validate
}

func NewTeamHandler(teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		validator:   validator.New(),
	}
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTeamRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	team, err := h.teamService.Create(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, team)
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamService.ListMine(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, teams)
}

func (h *TeamHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.teamService.Members(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, members)
}

func (h *TeamHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplyToTeamRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	team, err := h.teamService.Apply(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"team_id": team.ID, "team_name": team.Name})
}

func (h *TeamHandler) Applications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.teamService.Applications(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, apps)
}

// Accept admits an applicant. The body is optional and only carries the
// role.
func (h *TeamHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplicationActionRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	vars := mux.Vars(r)
	team, err := h.teamService.Accept(r.Context(), middleware.GetUserID(r), vars["id"], vars["userID"], req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, team)
}

func (h *TeamHandler) Decline(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.teamService.Decline(r.Context(), middleware.GetUserID(r), vars["id"], vars["userID"]); err != nil {
		writeError(w, err)
		return
	}

	response.Message(w, "Application declined")
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.teamService.RemoveMember(r.Context(), middleware.GetUserID(r), vars["id"], vars["userID"]); err != nil {
		writeError(w, err)
		return
	}

	response.Message(w, "Member removed")
}

func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.teamService.Leave(r.Context(), middleware.GetUserID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}

	response.Message(w, "Left team")
}

func decodeOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
