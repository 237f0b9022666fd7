package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/domain/validation"
	"go-todo-app/internal/core/ports"
)

var (
	// ErrInvalidCredentials is returned by login for an unknown email and for
	// a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated is returned when a token is malformed, badly signed,
	// or no longer held by its user.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// dummyHash is compared against when the email is unknown so both login
// failure paths run a bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)

type AuthService struct {
	repo   ports.UserRepository
	tokens *TokenSigner
}

func NewAuthService(repo ports.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		repo:   repo,
		tokens: NewTokenSigner(jwtSecret),
	}
}

func (s *AuthService) SignUp(ctx context.Context, creds auth.Credentials) (auth.User, string, error) {
	ctx, span := tracer.Start(ctx, "AuthService.SignUp")
	defer span.End()

	creds = creds.Normalize()
	if err := auth.ValidateCredentials(creds); err != nil {
		return auth.User{}, "", err
	}

	hashed, err := hashPassword(creds.Password)
	if err != nil {
		span.RecordError(err)
		return auth.User{}, "", err
	}

	user, err := s.repo.Create(ctx, auth.User{
		Email:        creds.Email,
		PasswordHash: hashed,
	})
	if err != nil {
		span.RecordError(err)
		return auth.User{}, "", err
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	token, err := s.GenerateAuthToken(ctx, user)
	if err != nil {
		return auth.User{}, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, creds auth.Credentials) (auth.User, string, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.FindByCredentials(ctx, creds.Email, creds.Password)
	if err != nil {
		return auth.User{}, "", err
	}

	token, err := s.GenerateAuthToken(ctx, user)
	if err != nil {
		return auth.User{}, "", err
	}
	return user, token, nil
}

// FindByCredentials never reveals whether the email or the password was wrong.
func (s *AuthService) FindByCredentials(ctx context.Context, email, password string) (auth.User, error) {
	creds := auth.Credentials{Email: email, Password: password}.Normalize()

	user, err := s.repo.FindByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(creds.Password))
			return auth.User{}, ErrInvalidCredentials
		}
		return auth.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return auth.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) GenerateAuthToken(ctx context.Context, user auth.User) (string, error) {
	ctx, span := tracer.Start(ctx, "AuthService.GenerateAuthToken", trace.WithAttributes(
		attribute.String("user.id", user.ID),
	))
	defer span.End()

	token, err := s.tokens.Sign(user.ID, auth.AccessAuth)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	if err := s.repo.PushToken(ctx, user.ID, auth.Token{Access: auth.AccessAuth, Token: token}); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

func (s *AuthService) VerifyToken(ctx context.Context, token string) (auth.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.VerifyToken")
	defer span.End()

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return auth.User{}, ErrUnauthenticated
	}
	span.SetAttributes(attribute.String("user.id", claims.UserID))

	user, err := s.repo.FindByToken(ctx, claims.UserID, auth.AccessAuth, token)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return auth.User{}, ErrUnauthenticated
		}
		span.RecordError(err)
		return auth.User{}, fmt.Errorf("failed to resolve token: %w", err)
	}
	return user, nil
}

func (s *AuthService) RemoveToken(ctx context.Context, user auth.User, token string) error {
	ctx, span := tracer.Start(ctx, "AuthService.RemoveToken", trace.WithAttributes(
		attribute.String("user.id", user.ID),
	))
	defer span.End()

	if err := s.repo.PullToken(ctx, user.ID, token); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", validation.Errors{{Field: "password", Message: "must be at most 72 bytes"}}
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
