package handler

import (
	"net/http"

	"github.com/patrykmil/passy/internal/middleware"
	"github.com/patrykmil/passy/internal/service"
	"github.com/patrykmil/passy/pkg/response"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetByID(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, user)
}

func (h *UserHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetPublic(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, user)
}
