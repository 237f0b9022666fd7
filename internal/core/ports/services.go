package ports

import (
	"context"
	"time"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/domain/todos"
)

// AuthService defines the credential and token lifecycle.
type AuthService interface {
	// SignUp validates and registers a user, then issues its first token.
	SignUp(ctx context.Context, creds auth.Credentials) (auth.User, string, error)

	// Login checks credentials and issues an additional token.
	Login(ctx context.Context, creds auth.Credentials) (auth.User, string, error)

	// FindByCredentials returns the user matching email and password.
	FindByCredentials(ctx context.Context, email, password string) (auth.User, error)

	// GenerateAuthToken signs a new token for user and stores it.
	GenerateAuthToken(ctx context.Context, user auth.User) (string, error)

	// VerifyToken resolves a raw token to the user currently holding it.
	VerifyToken(ctx context.Context, token string) (auth.User, error)

	// RemoveToken revokes token for user.
	RemoveToken(ctx context.Context, user auth.User, token string) error
}

// TodoService defines the owner-scoped todo operations.
type TodoService interface {
	Create(ctx context.Context, ownerID, text string) (todos.Todo, error)
	List(ctx context.Context, ownerID string) ([]todos.Todo, error)
	Get(ctx context.Context, id, ownerID string) (todos.Todo, error)
	Delete(ctx context.Context, id, ownerID string) (todos.Todo, error)
	Update(ctx context.Context, id, ownerID string, patch todos.Patch) (todos.Todo, error)
}

// RateLimitResult is the outcome of one limiter check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimiter throttles requests per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
