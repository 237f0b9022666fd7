package ports

import (
	"context"
	"errors"
	"iter"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/domain/todos"
)

var (
	// ErrNotFound is returned when a record does not exist, is not owned by
	// the caller, or the id is not well formed for the backing store.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when registering an email already in use.
	ErrDuplicateEmail = errors.New("email already in use")
)

// UserRepository defines storage for users and their session tokens.
type UserRepository interface {
	// Create inserts a user and returns it with its storage-assigned id.
	Create(ctx context.Context, user auth.User) (auth.User, error)

	// FindByEmail retrieves a user by exact email match.
	FindByEmail(ctx context.Context, email string) (auth.User, error)

	// FindByToken retrieves the user with the given id only if it still
	// holds token with the given access level.
	FindByToken(ctx context.Context, id, access, token string) (auth.User, error)

	// PushToken appends a token to the user's list in one atomic update.
	PushToken(ctx context.Context, id string, token auth.Token) error

	// PullToken removes every entry with the given token value. Removing a
	// token that is not present is not an error.
	PullToken(ctx context.Context, id, token string) error
}

// TodoRepository defines the owner-scoped todo storage. Every method takes
// the owner id and treats records of other owners as missing.
type TodoRepository interface {
	// Create inserts a todo and returns it with its storage-assigned id.
	Create(ctx context.Context, todo todos.Todo) (todos.Todo, error)

	// FindByOwner returns an iterator over the owner's todos in creation order.
	FindByOwner(ctx context.Context, ownerID string) (iter.Seq2[todos.Todo, error], error)

	// FindOne retrieves one of the owner's todos.
	FindOne(ctx context.Context, id, ownerID string) (todos.Todo, error)

	// DeleteOne removes one of the owner's todos and returns what was removed.
	DeleteOne(ctx context.Context, id, ownerID string) (todos.Todo, error)

	// UpdateOne applies update to one of the owner's todos and returns the
	// updated record.
	UpdateOne(ctx context.Context, id, ownerID string, update todos.Update) (todos.Todo, error)
}
