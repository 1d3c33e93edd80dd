package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

type projectKey struct{ userID, projectID int64 }

// AssociationRepository keeps the user-side associations in memory. Seed*
// methods stand in for the owning resources, which this service does not manage.
type AssociationRepository struct {
	mu          sync.RWMutex
	nextID      int64
	posts       []entity.Post
	comments    []entity.Comment
	fish        []entity.Fish
	people      []entity.Person
	projects    map[int64]entity.Project
	teams       map[int64]entity.Team
	memberships []entity.TeamMembership
	joins       map[projectKey]struct{}
}

func NewAssociationRepository() *AssociationRepository {
	return &AssociationRepository{
		projects: make(map[int64]entity.Project),
		teams:    make(map[int64]entity.Team),
		joins:    make(map[projectKey]struct{}),
	}
}

func (r *AssociationRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *AssociationRepository) SeedPost(p entity.Post) entity.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	r.posts = append(r.posts, p)
	return p
}

func (r *AssociationRepository) SeedComment(c entity.Comment) entity.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.id()
	r.comments = append(r.comments, c)
	return c
}

func (r *AssociationRepository) SeedFish(f entity.Fish) entity.Fish {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.ID = r.id()
	r.fish = append(r.fish, f)
	return f
}

func (r *AssociationRepository) SeedPerson(p entity.Person) entity.Person {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	r.people = append(r.people, p)
	return p
}

func (r *AssociationRepository) SeedProject(p entity.Project) entity.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	r.projects[p.ID] = p
	return p
}

func (r *AssociationRepository) SeedTeam(t entity.Team) entity.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.id()
	r.teams[t.ID] = t
	return t
}

func ownedBy(ref *int64, userID int64) bool { return ref != nil && *ref == userID }

func first[T any](items []T, keep func(T) bool) (*T, error) {
	for _, it := range items {
		if keep(it) {
			v := it
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func (r *AssociationRepository) Post(_ context.Context, userID int64) (*entity.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return first(r.posts, func(p entity.Post) bool { return ownedBy(p.UserID, userID) })
}

func (r *AssociationRepository) Comment(_ context.Context, userID int64) (*entity.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return first(r.comments, func(c entity.Comment) bool { return ownedBy(c.UserID, userID) })
}

func (r *AssociationRepository) Fish(_ context.Context, userID int64) (*entity.Fish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return first(r.fish, func(f entity.Fish) bool { return ownedBy(f.UserID, userID) })
}

func (r *AssociationRepository) Posts(_ context.Context, userID int64) ([]entity.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter(r.posts, func(p entity.Post) bool { return ownedBy(p.UserID, userID) }), nil
}

func (r *AssociationRepository) People(_ context.Context, userID int64) ([]entity.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter(r.people, func(p entity.Person) bool { return ownedBy(p.UserID, userID) }), nil
}

func (r *AssociationRepository) Spouses(_ context.Context, userID int64) ([]entity.Spouse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter(r.people, func(p entity.Person) bool { return ownedBy(p.UserID, userID) && p.Type == "Spouse" }), nil
}

func (r *AssociationRepository) Comments(_ context.Context, userID int64) ([]entity.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter(r.comments, func(c entity.Comment) bool { return ownedBy(c.UserID, userID) }), nil
}

func (r *AssociationRepository) Projects(_ context.Context, userID int64) ([]entity.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Project, 0)
	for id := int64(1); id <= r.nextID; id++ {
		p, ok := r.projects[id]
		if !ok {
			continue
		}
		if _, joined := r.joins[projectKey{userID, id}]; joined {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *AssociationRepository) Teams(_ context.Context, userID int64) ([]entity.MemberTeam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.MemberTeam, 0)
	for _, m := range r.memberships {
		if m.UserID == userID {
			out = append(out, entity.MemberTeam{Team: r.teams[m.TeamID], Level: m.Level})
		}
	}
	return out, nil
}

func (r *AssociationRepository) AddProject(_ context.Context, userID, projectID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[projectID]; !ok {
		return repository.ErrNotFound
	}
	r.joins[projectKey{userID, projectID}] = struct{}{}
	return nil
}

func (r *AssociationRepository) RemoveProject(_ context.Context, userID, projectID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := projectKey{userID, projectID}
	if _, ok := r.joins[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.joins, key)
	return nil
}

func (r *AssociationRepository) JoinTeam(_ context.Context, m *entity.TeamMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[m.TeamID]; !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	for i := range r.memberships {
		existing := &r.memberships[i]
		if existing.TeamID == m.TeamID && existing.UserID == m.UserID {
			existing.Level = m.Level
			existing.UpdatedAt = now
			*m = *existing
			return nil
		}
	}
	m.ID = r.id()
	m.CreatedAt = now
	m.UpdatedAt = now
	r.memberships = append(r.memberships, *m)
	return nil
}

func (r *AssociationRepository) LeaveTeam(_ context.Context, userID, teamID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.memberships {
		if m.TeamID == teamID && m.UserID == userID {
			r.memberships = append(r.memberships[:i], r.memberships[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// dropUser applies the users(id) foreign keys: membership and project join rows
// cascade, owned posts, comments, fish and people are kept with user_id NULL.
func (r *AssociationRepository) dropUser(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.joins {
		if k.userID == userID {
			delete(r.joins, k)
		}
	}
	kept := r.memberships[:0]
	for _, m := range r.memberships {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	r.memberships = kept

	orphan := func(ref **int64) {
		if ownedBy(*ref, userID) {
			*ref = nil
		}
	}
	for i := range r.posts {
		orphan(&r.posts[i].UserID)
	}
	for i := range r.comments {
		orphan(&r.comments[i].UserID)
	}
	for i := range r.fish {
		orphan(&r.fish[i].UserID)
	}
	for i := range r.people {
		orphan(&r.people[i].UserID)
	}
}

var _ repository.AssociationRepository = (*AssociationRepository)(nil)
