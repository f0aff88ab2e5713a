package handler

import (
	"errors"
	"net/http"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/auth"
	"github.com/sakif/chatkeeper/internal/service"
)

// AuthHandler exposes operator registration and login.
type AuthHandler struct {
	auths *service.AuthService
}

func NewAuthHandler(auths *service.AuthService) *AuthHandler {
	return &AuthHandler{auths: auths}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	op, err := h.auths.Register(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, op)
}

type loginResponse struct {
	OperatorID string `json:"operator_id"`
	Login      string `json:"login"`
	Token      string `json:"token"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auths.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		// Bad credentials come back Forbidden; the login endpoint speaks 401.
		if errors.Is(err, apperror.ErrForbidden) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "invalid login or password",
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		OperatorID: result.Operator.ID,
		Login:      result.Operator.Login,
		Token:      result.Token,
	})
}

// Me returns the operator identified by the request's token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.OperatorIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "authentication required",
		})
		return
	}

	op, err := h.auths.Operator(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, op)
}
