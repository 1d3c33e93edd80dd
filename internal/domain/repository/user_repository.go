package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
)

// Scope narrows a user listing.
type Scope string

const (
	ScopeAll       Scope = ""
	ScopeActive    Scope = "active"
	ScopeAdmins    Scope = "admins"
	ScopeNonAdmins Scope = "non_admins"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeAll, ScopeActive, ScopeAdmins, ScopeNonAdmins:
		return true
	}
	return false
}

// UserRepository defines the persistence operations for users.
// Create and Update return *UniquenessError on email or slug collisions.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetBySlug(ctx context.Context, slug string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByResetPasswordToken(ctx context.Context, digest string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, scope Scope, limit, offset int) ([]*entity.User, error)
	Search(ctx context.Context, q Query) ([]*entity.User, error)
	SlugExists(ctx context.Context, slug string, exceptID int64) (bool, error)
}
