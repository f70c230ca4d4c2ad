package users

import (
	"context"
	"errors"
)

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "user not found" }

var ErrUsernameTaken = errors.New("username already exists")

// Patch holds optional column replacements.
type Patch struct {
	Username *string
	LastName *string
	Role     *string
}

type Repo interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, userID string, patch Patch) (User, error)
	Delete(ctx context.Context, userID string) error
}

func applyPatch(u User, p Patch) User {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	return u
}
