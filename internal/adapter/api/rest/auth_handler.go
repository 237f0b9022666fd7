package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/domain/validation"
	"go-todo-app/internal/core/ports"
	"go-todo-app/internal/core/service"
)

// AuthHandler serves the /users routes.
type AuthHandler struct {
	service ports.AuthService
	logger  *slog.Logger
}

func NewAuthHandler(service ports.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// SignUp handles POST /users
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.service.SignUp(r.Context(), auth.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrValidation):
			respondValidation(w, h.logger, err)
		case errors.Is(err, ports.ErrDuplicateEmail):
			respondError(w, h.logger, http.StatusBadRequest, "email already in use")
		default:
			h.logger.Error("signup failed",
				slog.String("request_id", requestIDFrom(r.Context())),
				slog.String("error", err.Error()),
			)
			respondError(w, h.logger, http.StatusBadRequest, "signup failed")
		}
		return
	}

	w.Header().Set(AuthHeader, token)
	respondJSON(w, h.logger, http.StatusCreated, user)
}

// Login handles POST /users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.service.Login(r.Context(), auth.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Error("login failed",
				slog.String("request_id", requestIDFrom(r.Context())),
				slog.String("error", err.Error()),
			)
		}
		respondError(w, h.logger, http.StatusBadRequest, "invalid credentials")
		return
	}

	w.Header().Set(AuthHeader, token)
	respondJSON(w, h.logger, http.StatusOK, user)
}

// Me handles GET /users/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, user)
}

// Logout handles DELETE /users/me/token and revokes only the token used
// for this request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	token, hasToken := TokenFromContext(r.Context())
	if !ok || !hasToken {
		respondError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.service.RemoveToken(r.Context(), user, token); err != nil {
		h.logger.Error("logout failed",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("error", err.Error()),
		)
		respondError(w, h.logger, http.StatusBadRequest, "logout failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}
