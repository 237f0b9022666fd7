package auth

import (
	"slices"
	"strings"

	"go-todo-app/internal/core/domain/validation"
)

// AccessAuth is the only access level accepted by the token middleware.
const AccessAuth = "auth"

// MinPasswordLength is the shortest plaintext password accepted at registration.
const MinPasswordLength = 6

// Token is one issued session token held by a user.
type Token struct {
	Access string `json:"access"`
	Token  string `json:"token"`
}

// User is an account. Only the id and email are ever serialized to clients.
type User struct {
	ID           string  `json:"_id"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"-"`
	Tokens       []Token `json:"-"`
}

// HasToken reports whether token is currently held with the given access level.
func (u User) HasToken(access, token string) bool {
	return slices.ContainsFunc(u.Tokens, func(t Token) bool {
		return t.Access == access && t.Token == token
	})
}

// WithoutToken returns a copy of the token list with every entry equal to
// token removed.
func (u User) WithoutToken(token string) []Token {
	return slices.DeleteFunc(slices.Clone(u.Tokens), func(t Token) bool {
		return t.Token == token
	})
}

// Credentials is the email/password pair sent on registration and login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Normalize trims the email. Passwords are taken verbatim.
func (c Credentials) Normalize() Credentials {
	c.Email = strings.TrimSpace(c.Email)
	return c
}

// ValidateCredentials checks the registration constraints and returns
// validation.Errors describing every rejected field.
func ValidateCredentials(c Credentials) error {
	return validation.Struct(c.Normalize())
}
