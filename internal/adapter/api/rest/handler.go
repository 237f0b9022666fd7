package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"go-todo-app/internal/core/domain/todos"
	"go-todo-app/internal/core/domain/validation"
	"go-todo-app/internal/core/ports"
)

// TodoHandler serves the owner-scoped /todos routes. Every route sits
// behind AuthMiddleware.
type TodoHandler struct {
	service ports.TodoService
	logger  *slog.Logger
}

func NewTodoHandler(service ports.TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{service: service, logger: logger}
}

// Create handles POST /todos
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createTodoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	todo, err := h.service.Create(r.Context(), user.ID, req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, todo)
}

// List handles GET /todos
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, todoListResponse{Todos: items})
}

// Get handles GET /todos/{id}
func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	todo, err := h.service.Get(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, todoResponse{Todo: todo})
}

// Delete handles DELETE /todos/{id}
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	todo, err := h.service.Delete(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, todoResponse{Todo: todo})
}

// Update handles PATCH /todos/{id}
// Payload: {"text": "...", "completed": true}
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	var patch todos.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	todo, err := h.service.Update(r.Context(), r.PathValue("id"), user.ID, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, todoResponse{Todo: todo})
}

// fail maps service errors onto the todo routes' status codes. Missing,
// foreign and malformed ids all produce the same bodiless 404.
func (h *TodoHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, validation.ErrValidation):
		respondValidation(w, h.logger, err)
	default:
		h.logger.Error("todo request failed",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("error", err.Error()),
		)
		respondError(w, h.logger, http.StatusBadRequest, "request failed")
	}
}
