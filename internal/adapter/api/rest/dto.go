package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-todo-app/internal/core/domain/todos"
	"go-todo-app/internal/core/domain/validation"
)

const maxBodyBytes = 1 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createTodoRequest struct {
	Text string `json:"text"`
}

type todoResponse struct {
	Todo todos.Todo `json:"todo"`
}

type todoListResponse struct {
	Todos []todos.Todo `json:"todos"`
}

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, code int, msg string) {
	respondJSON(w, logger, code, errorResponse{Error: msg})
}

func respondValidation(w http.ResponseWriter, logger *slog.Logger, err error) {
	resp := errorResponse{Error: validation.ErrValidation.Error()}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		resp.Fields = verrs
	}
	respondJSON(w, logger, http.StatusBadRequest, resp)
}
