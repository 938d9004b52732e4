package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/iskra-katalog/katalog/internal/shared"
)

// ErrNoPassword is returned when neither a password nor a hash is configured.
var ErrNoPassword = errors.New("auth: APP_PASSWORD or APP_PASSWORD_HASH must be set")

// Service wraps authentication business rules.
type Service struct {
	username string
	password []byte
	hash     []byte
}

// NewService validates creds and constructs a Service.
func NewService(creds Credentials) (*Service, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" {
		username = "admin"
	}
	if creds.PasswordHash == "" && creds.Password == "" {
		return nil, ErrNoPassword
	}
	if creds.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(creds.PasswordHash)); err != nil {
			return nil, fmt.Errorf("auth: invalid password hash: %w", err)
		}
	}
	return &Service{
		username: username,
		password: []byte(creds.Password),
		hash:     []byte(creds.PasswordHash),
	}, nil
}

// Username returns the configured operator name.
func (s *Service) Username() string {
	return s.username
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Operator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.username)) == 1

	var passOK bool
	if len(s.hash) > 0 {
		passOK = bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), s.password) == 1
	}
	if !userOK || !passOK {
		return nil, shared.ErrInvalidCredentials
	}
	return &Operator{Username: s.username}, nil
}
