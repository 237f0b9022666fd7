package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-todo-app/internal/core/domain/todos"
	"go-todo-app/internal/core/ports"
)

var _ ports.TodoRepository = (*TodoRepository)(nil)

// TodoRepository implements ports.TodoRepository using PostgreSQL.
type TodoRepository struct {
	db *pgxpool.Pool
}

// NewTodoRepository creates a new postgres todo repository.
func NewTodoRepository(db *pgxpool.Pool) *TodoRepository {
	return &TodoRepository{db: db}
}

const todoColumns = `id, text, completed, completed_at, user_id`

func (r *TodoRepository) Create(ctx context.Context, todo todos.Todo) (todos.Todo, error) {
	if _, err := uuid.Parse(todo.CreatorID); err != nil {
		return todos.Todo{}, fmt.Errorf("invalid creator id %q: %w", todo.CreatorID, err)
	}
	todo.ID = uuid.NewString()

	query := `
		INSERT INTO todos (id, text, completed, completed_at, user_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, todo.ID, todo.Text, todo.Completed, todo.CompletedAt, todo.CreatorID)
	if err != nil {
		return todos.Todo{}, fmt.Errorf("failed to insert todo: %w", err)
	}
	return todo, nil
}

// FindByOwner returns an iterator over the owner's todos in insertion order.
func (r *TodoRepository) FindByOwner(ctx context.Context, ownerID string) (iter.Seq2[todos.Todo, error], error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return func(yield func(todos.Todo, error) bool) {}, nil
	}

	query := `SELECT ` + todoColumns + ` FROM todos WHERE user_id = $1 ORDER BY seq`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}

	return func(yield func(todos.Todo, error) bool) {
		defer rows.Close()

		for rows.Next() {
			todo, err := scanTodo(rows)
			if err != nil {
				yield(todos.Todo{}, fmt.Errorf("failed to scan row: %w", err))
				return
			}
			if !yield(todo, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(todos.Todo{}, fmt.Errorf("rows iteration error: %w", err))
		}
	}, nil
}

func (r *TodoRepository) FindOne(ctx context.Context, id, ownerID string) (todos.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1 AND user_id = $2`
	return r.queryOwned(ctx, id, ownerID, query)
}

func (r *TodoRepository) DeleteOne(ctx context.Context, id, ownerID string) (todos.Todo, error) {
	query := `DELETE FROM todos WHERE id = $1 AND user_id = $2 RETURNING ` + todoColumns
	return r.queryOwned(ctx, id, ownerID, query)
}

func (r *TodoRepository) UpdateOne(ctx context.Context, id, ownerID string, update todos.Update) (todos.Todo, error) {
	query := `
		UPDATE todos
		SET text = COALESCE($3, text), completed = $4, completed_at = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + todoColumns
	return r.queryOwned(ctx, id, ownerID, query, update.Text, update.Completed, update.CompletedAt)
}

// queryOwned runs a single-row statement whose first two parameters are the
// todo id and owner id.
func (r *TodoRepository) queryOwned(ctx context.Context, id, ownerID, query string, args ...any) (todos.Todo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return todos.Todo{}, ports.ErrNotFound
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		return todos.Todo{}, ports.ErrNotFound
	}

	todo, err := scanTodo(r.db.QueryRow(ctx, query, append([]any{id, ownerID}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return todos.Todo{}, ports.ErrNotFound
		}
		return todos.Todo{}, fmt.Errorf("failed to query todo: %w", err)
	}
	return todo, nil
}

func scanTodo(row pgx.Row) (todos.Todo, error) {
	var t todos.Todo
	err := row.Scan(&t.ID, &t.Text, &t.Completed, &t.CompletedAt, &t.CreatorID)
	return t, err
}
