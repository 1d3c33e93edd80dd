// Package memory provides process-local repositories. They back the
// PERSISTENCE=memory mode and the tests of the layers above storage.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*entity.User

	dependents []userDependent
}

// userDependent holds rows that reference users(id).
type userDependent interface {
	dropUser(userID int64)
}

func NewUserRepository() *UserRepository {
	return &UserRepository{rows: make(map[int64]*entity.User)}
}

// cloneUser copies the persisted columns; per-instance state such as the memoised token is not carried over.
func cloneUser(u *entity.User) *entity.User {
	c := entity.NewUser()
	c.ID = u.ID
	c.Email = u.Email
	c.FirstName = u.FirstName
	c.LastName = u.LastName
	if u.Roles != nil {
		c.Roles = make(entity.Roles, len(u.Roles))
		for k, v := range u.Roles {
			c.Roles[k] = v
		}
	}
	c.Birthday = u.Birthday
	c.CustomCSS = u.CustomCSS
	c.TeamID = u.TeamID
	c.EncryptedPassword = u.EncryptedPassword
	c.ResetPasswordToken = u.ResetPasswordToken
	c.ResetPasswordSentAt = u.ResetPasswordSentAt
	c.RememberCreatedAt = u.RememberCreatedAt
	c.CreatedAt = u.CreatedAt
	c.UpdatedAt = u.UpdatedAt
	c.Active = u.Active
	c.Slug = u.Slug
	return c
}

// checkUnique must be called with mu held.
func (r *UserRepository) checkUnique(u *entity.User) error {
	for id, row := range r.rows {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(row.Email, u.Email) {
			return &repository.UniquenessError{Field: "email", Value: u.Email}
		}
		if u.Slug != "" && row.Slug == u.Slug {
			return &repository.UniquenessError{Field: "slug", Value: u.Slug}
		}
		if u.ResetPasswordToken != nil && row.ResetPasswordToken != nil && *row.ResetPasswordToken == *u.ResetPasswordToken {
			return &repository.UniquenessError{Field: "reset_password_token", Value: *u.ResetPasswordToken}
		}
	}
	return nil
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUnique(u); err != nil {
		return err
	}
	r.nextID++
	now := time.Now()
	u.ID = r.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	r.rows[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepository) find(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.sortedIDs() {
		if row := r.rows[id]; match(row) {
			return cloneUser(row), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id })
}

func (r *UserRepository) GetBySlug(_ context.Context, slug string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Slug == slug })
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) GetByResetPasswordToken(_ context.Context, digest string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool {
		return u.ResetPasswordToken != nil && *u.ResetPasswordToken == digest
	})
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[u.ID]; !ok {
		return repository.ErrNotFound
	}
	if err := r.checkUnique(u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now()
	r.rows[u.ID] = cloneUser(u)
	return nil
}

// Cascade registers stores whose rows reference users, so Delete applies
// their ON DELETE rules the way the database does.
func (r *UserRepository) Cascade(deps ...userDependent) *UserRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dependents = append(r.dependents, deps...)
	return r
}

func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	if _, ok := r.rows[id]; !ok {
		r.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	deps := r.dependents
	r.mu.Unlock()

	for _, d := range deps {
		d.dropUser(id)
	}
	return nil
}

func inScope(u *entity.User, scope repository.Scope) bool {
	switch scope {
	case repository.ScopeActive:
		return u.Active
	case repository.ScopeAdmins:
		return adminFlag(u.Roles)
	case repository.ScopeNonAdmins:
		return !adminFlag(u.Roles)
	}
	return true
}

// adminFlag mirrors (roles->>'admin')::boolean IS TRUE. ->> renders a JSON
// number as its literal, and the cast only accepts 1 among numbers.
func adminFlag(r entity.Roles) bool {
	switch v := r["admin"].(type) {
	case bool:
		return v
	case string:
		return repository.Truthy(v)
	case float64:
		return v == 1
	case int:
		return v == 1
	case int64:
		return v == 1
	case json.Number:
		return v.String() == "1"
	}
	return false
}

func (r *UserRepository) List(_ context.Context, scope repository.Scope, limit, offset int) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*entity.User, 0)
	for _, id := range r.sortedIDs() {
		if u := r.rows[id]; inScope(u, scope) {
			matched = append(matched, cloneUser(u))
		}
	}
	return page(matched, limit, offset), nil
}

func (r *UserRepository) Search(_ context.Context, q repository.Query) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*entity.User, 0)
	for _, id := range r.sortedIDs() {
		if u := r.rows[id]; matchesAll(u, q.Conditions) {
			matched = append(matched, cloneUser(u))
		}
	}
	sortUsers(matched, q.Sorts)
	return page(matched, q.Limit, q.Offset), nil
}

func (r *UserRepository) SlugExists(_ context.Context, slug string, exceptID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, u := range r.rows {
		if id != exceptID && u.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) sortedIDs() []int64 {
	ids := make([]int64, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func page(users []*entity.User, limit, offset int) []*entity.User {
	if offset > len(users) {
		return []*entity.User{}
	}
	users = users[offset:]
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users
}

var _ repository.UserRepository = (*UserRepository)(nil)
