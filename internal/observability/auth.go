package observability

import (
	"context"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/ports"
)

const (
	EventSignup       = "signup"
	EventSignupFailed = "signup_failed"
	EventLogin        = "login"
	EventLoginFailed  = "login_failed"
	EventVerifyFailed = "verify_failed"
	EventTokenRevoked = "token_revoked"
	EventTokenIssued  = "token_issued"
	EventRevokeFailed = "revoke_failed"
)

// InstrumentedAuthService is a decorator that counts authentication events.
type InstrumentedAuthService struct {
	inner ports.AuthService
}

var _ ports.AuthService = (*InstrumentedAuthService)(nil)

func NewInstrumentedAuthService(inner ports.AuthService) *InstrumentedAuthService {
	return &InstrumentedAuthService{inner: inner}
}

func (s *InstrumentedAuthService) SignUp(ctx context.Context, creds auth.Credentials) (auth.User, string, error) {
	user, token, err := s.inner.SignUp(ctx, creds)
	record(err, EventSignup, EventSignupFailed)
	countIssued(err)
	return user, token, err
}

func (s *InstrumentedAuthService) Login(ctx context.Context, creds auth.Credentials) (auth.User, string, error) {
	user, token, err := s.inner.Login(ctx, creds)
	record(err, EventLogin, EventLoginFailed)
	countIssued(err)
	return user, token, err
}

func (s *InstrumentedAuthService) FindByCredentials(ctx context.Context, email, password string) (auth.User, error) {
	return s.inner.FindByCredentials(ctx, email, password)
}

func (s *InstrumentedAuthService) GenerateAuthToken(ctx context.Context, user auth.User) (string, error) {
	token, err := s.inner.GenerateAuthToken(ctx, user)
	countIssued(err)
	return token, err
}

func (s *InstrumentedAuthService) VerifyToken(ctx context.Context, token string) (auth.User, error) {
	user, err := s.inner.VerifyToken(ctx, token)
	if err != nil {
		authEvents.WithLabelValues(EventVerifyFailed).Inc()
	}
	return user, err
}

func (s *InstrumentedAuthService) RemoveToken(ctx context.Context, user auth.User, token string) error {
	err := s.inner.RemoveToken(ctx, user, token)
	record(err, EventTokenRevoked, EventRevokeFailed)
	return err
}

func record(err error, ok, failed string) {
	if err != nil {
		authEvents.WithLabelValues(failed).Inc()
		return
	}
	authEvents.WithLabelValues(ok).Inc()
}

// countIssued counts a token for every successful signup, login or direct
// issue, since the inner service issues tokens without going through the
// decorator.
func countIssued(err error) {
	if err == nil {
		authEvents.WithLabelValues(EventTokenIssued).Inc()
	}
}
