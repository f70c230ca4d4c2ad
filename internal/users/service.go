package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"collateral-backend/internal/shared/auth"
	"collateral-backend/internal/shared/telemetry"
)

const minPasswordLength = 6

var (
	ErrInvalidInput       = errors.New("invalid user input")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TokenSigner issues access tokens.
type TokenSigner interface {
	Sign(userID, role string) (string, error)
}

type Service struct {
	Repo   Repo
	Tokens TokenSigner
	Now    func() time.Time
}

func NewService(repo Repo, tokens TokenSigner) *Service {
	return &Service{Repo: repo, Tokens: tokens}
}

type RegisterInput struct {
	Username string
	LastName string
	Password string
}

// Session is a user together with a freshly issued token.
type Session struct {
	Token string
	User  User
}

// UpdateInput changes profile fields. Role is honored only on admin updates.
type UpdateInput struct {
	Username *string
	LastName *string
	Role     *string
}

// Register creates a user with the regular role and signs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	username := strings.TrimSpace(in.Username)
	lastName := strings.TrimSpace(in.LastName)
	if username == "" || lastName == "" {
		return Session{}, fmt.Errorf("%w: username and lastName are required", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	user, err := s.create(ctx, username, lastName, RoleUser, in.Password)
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

// EnsureAdmin creates the admin account if the username is free.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.Repo.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: admin password too short", ErrInvalidInput)
	}
	_, err = s.create(ctx, username, "admin", RoleAdmin, password)
	if errors.Is(err, ErrUsernameTaken) {
		return nil
	}
	return err
}

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.Repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		telemetry.Warn("auth.login_failed", map[string]any{"user_id": user.ID})
		return Session{}, ErrInvalidCredentials
	}
	return s.session(user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.Repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (User, error) {
	var patch Patch
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		if v == "" {
			return User{}, fmt.Errorf("%w: username cannot be empty", ErrInvalidInput)
		}
		patch.Username = &v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return User{}, fmt.Errorf("%w: lastName cannot be empty", ErrInvalidInput)
		}
		patch.LastName = &v
	}
	if in.Role != nil {
		v := strings.ToLower(strings.TrimSpace(*in.Role))
		if !validRole(v) {
			return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *in.Role)
		}
		patch.Role = &v
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.Update(ctx, userID, patch)
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrNotFound
	}
	if err := s.Repo.Delete(ctx, userID); err != nil {
		return err
	}
	telemetry.Info("user.deleted", map[string]any{"user_id": userID})
	return nil
}

func (s *Service) create(ctx context.Context, username, lastName, role, password string) (User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		LastName:     lastName,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	user.UpdatedAt = user.CreatedAt
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	telemetry.Info("user.registered", map[string]any{"user_id": user.ID, "role": role})
	return user, nil
}

func (s *Service) session(user User) (Session, error) {
	token, err := s.Tokens.Sign(user.ID, user.Role)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: token, User: user}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
