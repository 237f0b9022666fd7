package postgres

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tc_postgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/domain/todos"
	"go-todo-app/internal/core/ports"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()
	pgContainer, err := tc_postgres.Run(ctx,
		"postgres:16-alpine",
		tc_postgres.WithDatabase("testdb"),
		tc_postgres.WithUsername("user"),
		tc_postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	dbPool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := RunMigrations(ctx, dbPool, logger); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanup := func() {
		dbPool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres: %v", err)
		}
	}

	return dbPool, cleanup
}

func TestPostgresRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dbPool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(dbPool)
	todoRepo := NewTodoRepository(dbPool)
	ctx := context.Background()

	t.Run("migrations are idempotent", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		require.NoError(t, RunMigrations(ctx, dbPool, logger))
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := users.Create(ctx, auth.User{Email: "dup@example.com", PasswordHash: "h"})
		require.NoError(t, err)

		_, err = users.Create(ctx, auth.User{Email: "dup@example.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, ports.ErrDuplicateEmail)
	})

	t.Run("token lifecycle", func(t *testing.T) {
		user, err := users.Create(ctx, auth.User{Email: "tokens@example.com", PasswordHash: "hash"})
		require.NoError(t, err)
		_, err = uuid.Parse(user.ID)
		require.NoError(t, err)

		require.NoError(t, users.PushToken(ctx, user.ID, auth.Token{Access: auth.AccessAuth, Token: "t1"}))
		require.NoError(t, users.PushToken(ctx, user.ID, auth.Token{Access: auth.AccessAuth, Token: "t2"}))

		found, err := users.FindByToken(ctx, user.ID, auth.AccessAuth, "t1")
		require.NoError(t, err)
		assert.Equal(t, "hash", found.PasswordHash)
		assert.Equal(t, []auth.Token{
			{Access: auth.AccessAuth, Token: "t1"},
			{Access: auth.AccessAuth, Token: "t2"},
		}, found.Tokens)

		_, err = users.FindByToken(ctx, user.ID, "other", "t1")
		assert.ErrorIs(t, err, ports.ErrNotFound)

		require.NoError(t, users.PullToken(ctx, user.ID, "t1"))
		require.NoError(t, users.PullToken(ctx, user.ID, "t1"))

		_, err = users.FindByToken(ctx, user.ID, auth.AccessAuth, "t1")
		assert.ErrorIs(t, err, ports.ErrNotFound)
		_, err = users.FindByToken(ctx, user.ID, auth.AccessAuth, "t2")
		assert.NoError(t, err)

		byEmail, err := users.FindByEmail(ctx, "tokens@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
		assert.Len(t, byEmail.Tokens, 1)
	})

	t.Run("push to unknown user", func(t *testing.T) {
		err := users.PushToken(ctx, uuid.NewString(), auth.Token{Access: auth.AccessAuth, Token: "x"})
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("concurrent token pushes", func(t *testing.T) {
		user, err := users.Create(ctx, auth.User{Email: "many@example.com", PasswordHash: "hash"})
		require.NoError(t, err)

		const n = 20
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				if err := users.PushToken(ctx, user.ID, auth.Token{Access: auth.AccessAuth, Token: uuid.NewString()}); err != nil {
					t.Errorf("push failed: %v", err)
				}
			}()
		}
		wg.Wait()

		found, err := users.findByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Len(t, found.Tokens, n)
	})

	t.Run("malformed ids", func(t *testing.T) {
		_, err := users.findByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, ports.ErrNotFound)
		_, err = todoRepo.FindOne(ctx, "not-a-uuid", uuid.NewString())
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("owner scoped todos", func(t *testing.T) {
		alice, err := users.Create(ctx, auth.User{Email: "alice@example.com", PasswordHash: "h"})
		require.NoError(t, err)
		bob, err := users.Create(ctx, auth.User{Email: "bob@example.com", PasswordHash: "h"})
		require.NoError(t, err)

		first, err := todoRepo.Create(ctx, todos.Todo{Text: "first", CreatorID: alice.ID})
		require.NoError(t, err)
		_, err = todoRepo.Create(ctx, todos.Todo{Text: "second", CreatorID: alice.ID})
		require.NoError(t, err)
		_, err = todoRepo.Create(ctx, todos.Todo{Text: "bob's", CreatorID: bob.ID})
		require.NoError(t, err)

		seq, err := todoRepo.FindByOwner(ctx, alice.ID)
		require.NoError(t, err)
		var texts []string
		for todo, err := range seq {
			require.NoError(t, err)
			texts = append(texts, todo.Text)
		}
		assert.Equal(t, []string{"first", "second"}, texts)

		_, err = todoRepo.FindOne(ctx, first.ID, bob.ID)
		assert.ErrorIs(t, err, ports.ErrNotFound)
		_, err = todoRepo.DeleteOne(ctx, first.ID, bob.ID)
		assert.ErrorIs(t, err, ports.ErrNotFound)

		at := int64(1700000000000)
		text := "first, edited"
		updated, err := todoRepo.UpdateOne(ctx, first.ID, alice.ID, todos.Update{Text: &text, Completed: true, CompletedAt: &at})
		require.NoError(t, err)
		assert.Equal(t, "first, edited", updated.Text)
		assert.True(t, updated.Completed)
		require.NotNil(t, updated.CompletedAt)
		assert.Equal(t, at, *updated.CompletedAt)

		reset, err := todoRepo.UpdateOne(ctx, first.ID, alice.ID, todos.Update{})
		require.NoError(t, err)
		assert.Equal(t, "first, edited", reset.Text)
		assert.False(t, reset.Completed)
		assert.Nil(t, reset.CompletedAt)

		deleted, err := todoRepo.DeleteOne(ctx, first.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, deleted.ID)
		_, err = todoRepo.FindOne(ctx, first.ID, alice.ID)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})
}
