package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/research-camera/internal/domain/kv"
	domain "github.com/bryanwahyu/research-camera/internal/domain/users"
	"github.com/bryanwahyu/research-camera/internal/logger"
)

// DefaultLatency mimics a network round trip on login and signup.
const DefaultLatency = 600 * time.Millisecond

// Service is a local, single-profile account store. It is not a security
// boundary: anyone with access to the store can read the session.
type Service struct {
	Store   kv.Store
	Hasher  domain.PasswordHasher
	Latency time.Duration
	Log     *logger.Logger
}

func NewService(store kv.Store, hasher domain.PasswordHasher, latency time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{Store: store, Hasher: hasher, Latency: latency, Log: log}
}

// Login checks the credentials and makes the user the active session.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	if err := s.wait(ctx); err != nil {
		return domain.User{}, err
	}

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	creds, err := s.loadUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, c := range creds {
		if domain.NormalizeEmail(c.Email) != email {
			continue
		}
		ok, err := s.Hasher.Verify(password, c.PasswordHash)
		if err != nil {
			s.Log.Warn().Err(err).Str("user_id", c.ID).Msg("stored password hash unreadable")
			return domain.User{}, domain.ErrInvalidCredentials
		}
		if !ok {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		if err := s.setSession(ctx, c.User); err != nil {
			return domain.User{}, err
		}
		return c.User, nil
	}
	return domain.User{}, domain.ErrInvalidCredentials
}

// Signup creates the account, stores only the password hash and logs the
// new user in.
func (s *Service) Signup(ctx context.Context, email, password, name string) (domain.User, error) {
	if err := s.wait(ctx); err != nil {
		return domain.User{}, err
	}

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	creds, err := s.loadUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, c := range creds {
		if domain.NormalizeEmail(c.Email) == email {
			return domain.User{}, domain.ErrDuplicateUser
		}
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := domain.User{ID: uuid.NewString(), Email: email, Name: strings.TrimSpace(name)}
	creds = append(creds, domain.Credential{User: u, PasswordHash: hash})

	raw, err := json.Marshal(creds)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.Store.Set(ctx, kv.KeyUsers, raw); err != nil {
		return domain.User{}, fmt.Errorf("save users: %w", err)
	}
	if err := s.setSession(ctx, u); err != nil {
		return domain.User{}, err
	}
	s.Log.Info().Str("user_id", u.ID).Msg("user signed up")
	return u, nil
}

// Logout ends the session. Logging out twice is fine.
func (s *Service) Logout(ctx context.Context) error {
	err := s.Store.Delete(ctx, kv.KeySession)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// CurrentUser returns the session user or nil. Unreadable session data is
// treated as logged out.
func (s *Service) CurrentUser(ctx context.Context) *domain.User {
	raw, err := s.Store.Get(ctx, kv.KeySession)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.Log.Warn().Err(err).Msg("read session")
		}
		return nil
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil || u.ID == "" {
		s.Log.Warn().Msg("session record malformed, treating as logged out")
		return nil
	}
	return &u
}

func (s *Service) setSession(ctx context.Context, u domain.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.Store.Set(ctx, kv.KeySession, raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// loadUsers reads the users table. Malformed data reads as empty.
func (s *Service) loadUsers(ctx context.Context) ([]domain.Credential, error) {
	raw, err := s.Store.Get(ctx, kv.KeyUsers)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	var creds []domain.Credential
	if err := json.Unmarshal(raw, &creds); err != nil {
		s.Log.Error().Err(err).Msg("error parsing users from storage")
		return nil, nil
	}
	return creds, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
