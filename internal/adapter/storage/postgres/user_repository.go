package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/ports"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var _ ports.UserRepository = (*UserRepository)(nil)

// UserRepository keeps users in `users` and their tokens as rows of
// `user_tokens`, so token changes never rewrite the password column.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user auth.User) (auth.User, error) {
	user.ID = uuid.NewString()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, query, user.ID, user.Email, user.PasswordHash); err != nil {
		if pgErrCode(err) == uniqueViolation {
			return auth.User{}, ports.ErrDuplicateEmail
		}
		return auth.User{}, fmt.Errorf("failed to save user: %w", err)
	}

	for _, t := range user.Tokens {
		if _, err := tx.Exec(ctx, `INSERT INTO user_tokens (user_id, access, token) VALUES ($1, $2, $3)`, user.ID, t.Access, t.Token); err != nil {
			return auth.User{}, fmt.Errorf("failed to save token: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return auth.User{}, fmt.Errorf("failed to commit user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) findByID(ctx context.Context, id string) (auth.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return auth.User{}, ports.ErrNotFound
	}
	return r.findOne(ctx, `SELECT id, email, password_hash FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (auth.User, error) {
	return r.findOne(ctx, `SELECT id, email, password_hash FROM users WHERE email = $1`, email)
}

func (r *UserRepository) FindByToken(ctx context.Context, id, access, token string) (auth.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return auth.User{}, ports.ErrNotFound
	}
	query := `
		SELECT u.id, u.email, u.password_hash
		FROM users u
		WHERE u.id = $1
		  AND EXISTS (
			SELECT 1 FROM user_tokens t
			WHERE t.user_id = u.id AND t.access = $2 AND t.token = $3
		  )
	`
	return r.findOne(ctx, query, id, access, token)
}

func (r *UserRepository) PushToken(ctx context.Context, id string, token auth.Token) error {
	if _, err := uuid.Parse(id); err != nil {
		return ports.ErrNotFound
	}
	query := `INSERT INTO user_tokens (user_id, access, token) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, id, token.Access, token.Token); err != nil {
		if pgErrCode(err) == foreignKeyViolation {
			return ports.ErrNotFound
		}
		return fmt.Errorf("failed to push token: %w", err)
	}
	return nil
}

func (r *UserRepository) PullToken(ctx context.Context, id, token string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM user_tokens WHERE user_id = $1 AND token = $2`, id, token); err != nil {
		return fmt.Errorf("failed to pull token: %w", err)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (auth.User, error) {
	var user auth.User
	err := r.db.QueryRow(ctx, query, args...).Scan(&user.ID, &user.Email, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.User{}, ports.ErrNotFound
		}
		return auth.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT access, token FROM user_tokens WHERE user_id = $1 ORDER BY id`, user.ID)
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to load tokens: %w", err)
	}
	user.Tokens, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (auth.Token, error) {
		var t auth.Token
		err := row.Scan(&t.Access, &t.Token)
		return t, err
	})
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to scan tokens: %w", err)
	}
	return user, nil
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
