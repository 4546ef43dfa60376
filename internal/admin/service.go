package admin

import (
	"context"
	"errors"
	"time"

	"rollbook/internal/auth"
)

// ErrInvalidCredentials is returned for unknown usernames and wrong passwords
// alike, so a caller cannot probe which usernames exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service handles admin registration and password login.
type Service struct {
	repo   Repository
	issuer string
	key    string
	ttl    time.Duration
}

// NewService creates a service backed by a repository. The signing key and
// token TTL are injected so nothing here depends on process-global state.
func NewService(repo Repository, issuer, key string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{repo: repo, issuer: issuer, key: key, ttl: ttl}
}

// Setup creates or overwrites an admin account with a freshly hashed password.
func (s *Service) Setup(ctx context.Context, username, password string) error {
	digest, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.repo.Upsert(ctx, username, digest)
}

// Login verifies credentials and mints a session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	adm, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if adm == nil || !auth.CheckPassword(password, adm.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	token, _, err := auth.Issue(adm.ID, s.issuer, s.key, s.ttl)
	return token, err
}
