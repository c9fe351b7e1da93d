package handler

import (
	"net/http"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/logging"
	"github.com/patrykmil/passy/internal/middleware"
	"github.com/patrykmil/passy/internal/service"
	"github.com/patrykmil/passy/pkg/response"

	"github.com/go-playground/validator/v10"
)

type AuthHandler struct {
	authService *service.AuthService
	validator   *validator.Validate
	log         *logging.Logger
}

func NewAuthHandler(authService *service.AuthService, log *logging.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator.New(),
		log:         log,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		h.log.Debugf("registration of %s failed: %v", req.Username, err)
		writeError(w, err)
		return
	}

	response.Created(w, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	loginResp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, loginResp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	tokenResp, err := h.authService.RefreshToken(r.Context(), &req)
	if err != nil {
		response.Unauthorized(w, err.Error())
		return
	}

	response.Success(w, tokenResp)
}

// Logout is stateless: tokens expire on their own and the client drops
// its keys.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	response.Message(w, "Logged out successfully")
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), middleware.GetUserID(r), &req); err != nil {
		writeError(w, err)
		return
	}

	response.Message(w, "Password changed")
}

func (h *AuthHandler) ChangeKeys(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangeKeysRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	if err := h.authService.ChangeKeys(r.Context(), middleware.GetUserID(r), &req); err != nil {
		writeError(w, err)
		return
	}

	response.Message(w, "Keys changed")
}
