package application

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

// Association names accepted by Association.
const (
	AssocPost     = "post"
	AssocComment  = "comment"
	AssocFish     = "fish"
	AssocPosts    = "posts"
	AssocPeople   = "people"
	AssocSpouses  = "spouses"
	AssocComments = "comments"
	AssocProjects = "projects"
	AssocTeams    = "teams"
	AssocAccounts = "accounts"
)

// Association loads one named association of the user with id. Has-one
// associations resolve to nil when absent; accounts are simulated.
func (s *Service) Association(ctx context.Context, id int64, name string) (any, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name == AssocAccounts {
		return u.Accounts(), nil
	}
	if s.Associations == nil {
		return nil, ErrUnknownAssociation
	}

	a := s.Associations
	switch name {
	case AssocPost:
		return hasOne(a.Post(ctx, u.ID))
	case AssocComment:
		return hasOne(a.Comment(ctx, u.ID))
	case AssocFish:
		return hasOne(a.Fish(ctx, u.ID))
	case AssocPosts:
		return a.Posts(ctx, u.ID)
	case AssocPeople:
		return a.People(ctx, u.ID)
	case AssocSpouses:
		return a.Spouses(ctx, u.ID)
	case AssocComments:
		return a.Comments(ctx, u.ID)
	case AssocProjects:
		return a.Projects(ctx, u.ID)
	case AssocTeams:
		return a.Teams(ctx, u.ID)
	}
	return nil, ErrUnknownAssociation
}

func hasOne[T any](v *T, err error) (any, error) {
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) AddProject(ctx context.Context, userID, projectID int64) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	if s.Associations == nil {
		return ErrNotFound
	}
	return notFound(s.Associations.AddProject(ctx, userID, projectID))
}

func (s *Service) RemoveProject(ctx context.Context, userID, projectID int64) error {
	if s.Associations == nil {
		return ErrNotFound
	}
	return notFound(s.Associations.RemoveProject(ctx, userID, projectID))
}

// JoinTeam adds or updates the user's membership; level defaults to beginner.
func (s *Service) JoinTeam(ctx context.Context, userID, teamID int64, level string) (*entity.TeamMembership, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	// without an association store no team exists
	if s.Associations == nil {
		return nil, ErrNotFound
	}
	if level == "" {
		level = entity.LevelBeginner
	}
	m := &entity.TeamMembership{TeamID: teamID, UserID: userID, Level: level}
	if err := notFound(s.Associations.JoinTeam(ctx, m)); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) LeaveTeam(ctx context.Context, userID, teamID int64) error {
	if s.Associations == nil {
		return ErrNotFound
	}
	return notFound(s.Associations.LeaveTeam(ctx, userID, teamID))
}

func notFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
