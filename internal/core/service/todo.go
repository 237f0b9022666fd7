package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"go-todo-app/internal/core/domain/todos"
	"go-todo-app/internal/core/ports"
)

var tracer = otel.Tracer("internal/core/service")

type TodoService struct {
	repo   ports.TodoRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewTodoService(repo ports.TodoRepository, logger *slog.Logger) *TodoService {
	return &TodoService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *TodoService) Create(ctx context.Context, ownerID, text string) (todos.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.Create", trace.WithAttributes(
		attribute.String("user.id", ownerID),
	))
	defer span.End()

	todo, err := todos.New(text, ownerID)
	if err != nil {
		return todos.Todo{}, err
	}

	created, err := s.repo.Create(ctx, todo)
	if err != nil {
		span.RecordError(err)
		return todos.Todo{}, fmt.Errorf("failed to save todo: %w", err)
	}

	s.logger.InfoContext(ctx, "todo created", "id", created.ID, "user_id", ownerID)
	return created, nil
}

// List collects the owner's todos. The response is a single JSON document,
// so the repository stream is drained here rather than in the handler.
func (s *TodoService) List(ctx context.Context, ownerID string) ([]todos.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.List", trace.WithAttributes(
		attribute.String("user.id", ownerID),
	))
	defer span.End()

	seq, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}

	list := make([]todos.Todo, 0)
	for todo, err := range seq {
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to read todos: %w", err)
		}
		list = append(list, todo)
	}
	span.SetAttributes(attribute.Int("todos.count", len(list)))
	return list, nil
}

func (s *TodoService) Get(ctx context.Context, id, ownerID string) (todos.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.Get", trace.WithAttributes(
		attribute.String("todo.id", id),
		attribute.String("user.id", ownerID),
	))
	defer span.End()

	return s.repo.FindOne(ctx, id, ownerID)
}

func (s *TodoService) Delete(ctx context.Context, id, ownerID string) (todos.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.Delete", trace.WithAttributes(
		attribute.String("todo.id", id),
		attribute.String("user.id", ownerID),
	))
	defer span.End()

	removed, err := s.repo.DeleteOne(ctx, id, ownerID)
	if err != nil {
		return todos.Todo{}, err
	}

	s.logger.InfoContext(ctx, "todo deleted", "id", id, "user_id", ownerID)
	return removed, nil
}

func (s *TodoService) Update(ctx context.Context, id, ownerID string, patch todos.Patch) (todos.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.Update", trace.WithAttributes(
		attribute.String("todo.id", id),
		attribute.String("user.id", ownerID),
	))
	defer span.End()

	update, err := patch.Resolve(s.now())
	if err != nil {
		return todos.Todo{}, err
	}

	return s.repo.UpdateOne(ctx, id, ownerID, update)
}
