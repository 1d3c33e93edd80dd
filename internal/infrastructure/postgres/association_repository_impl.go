package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

type AssociationRepository struct {
	pool *pgxpool.Pool
}

func NewAssociationRepository(pool *pgxpool.Pool) *AssociationRepository {
	return &AssociationRepository{pool: pool}
}

const (
	postColumns    = `id, COALESCE(name, ''), COALESCE(body, ''), user_id, published_at, created_at, updated_at`
	commentColumns = `id, COALESCE(body, ''), user_id, COALESCE(commentable_type, ''), commentable_id, created_at, updated_at`
	personColumns  = `id, COALESCE(name, ''), COALESCE(type, ''), user_id, person_id, created_at, updated_at`
)

func scanPost(row pgx.Row) (entity.Post, error) {
	var p entity.Post
	err := row.Scan(&p.ID, &p.Name, &p.Body, &p.UserID, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanComment(row pgx.Row) (entity.Comment, error) {
	var c entity.Comment
	err := row.Scan(&c.ID, &c.Body, &c.UserID, &c.CommentableType, &c.CommentableID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanPerson(row pgx.Row) (entity.Person, error) {
	var p entity.Person
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.UserID, &p.PersonID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collect[T any](rows pgx.Rows, err error, scan func(pgx.Row) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) { return scan(row) })
}

func (r *AssociationRepository) Post(ctx context.Context, userID int64) (*entity.Post, error) {
	p, err := scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE user_id = $1 ORDER BY id LIMIT 1`, userID))
	if err != nil {
		return nil, translate(err, nil)
	}
	return &p, nil
}

func (r *AssociationRepository) Comment(ctx context.Context, userID int64) (*entity.Comment, error) {
	c, err := scanComment(r.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE user_id = $1 ORDER BY id LIMIT 1`, userID))
	if err != nil {
		return nil, translate(err, nil)
	}
	return &c, nil
}

func (r *AssociationRepository) Fish(ctx context.Context, userID int64) (*entity.Fish, error) {
	var f entity.Fish
	err := r.pool.QueryRow(ctx, `
		SELECT id, COALESCE(name, ''), user_id, created_at, updated_at
		FROM fish WHERE user_id = $1 ORDER BY id LIMIT 1
	`, userID).Scan(&f.ID, &f.Name, &f.UserID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, translate(err, nil)
	}
	return &f, nil
}

func (r *AssociationRepository) Posts(ctx context.Context, userID int64) ([]entity.Post, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE user_id = $1 ORDER BY id`, userID)
	return collect(rows, err, scanPost)
}

func (r *AssociationRepository) People(ctx context.Context, userID int64) ([]entity.Person, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+personColumns+` FROM people WHERE user_id = $1 ORDER BY id`, userID)
	return collect(rows, err, scanPerson)
}

func (r *AssociationRepository) Spouses(ctx context.Context, userID int64) ([]entity.Spouse, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+personColumns+` FROM people WHERE user_id = $1 AND type = 'Spouse' ORDER BY id`, userID)
	return collect(rows, err, scanPerson)
}

func (r *AssociationRepository) Comments(ctx context.Context, userID int64) ([]entity.Comment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+commentColumns+` FROM comments WHERE user_id = $1 ORDER BY id`, userID)
	return collect(rows, err, scanComment)
}

func (r *AssociationRepository) Projects(ctx context.Context, userID int64) ([]entity.Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, COALESCE(p.name, ''), COALESCE(p.status, ''), COALESCE(p.stage, ''), p.created_at, p.updated_at
		FROM projects p
		JOIN projects_users pu ON pu.project_id = p.id
		WHERE pu.user_id = $1
		ORDER BY p.id
	`, userID)
	return collect(rows, err, func(row pgx.Row) (entity.Project, error) {
		var p entity.Project
		err := row.Scan(&p.ID, &p.Name, &p.Status, &p.Stage, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	})
}

func (r *AssociationRepository) Teams(ctx context.Context, userID int64) ([]entity.MemberTeam, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, COALESCE(t.name, ''), COALESCE(t.description, ''), t.created_at, t.updated_at, COALESCE(tm.level, '')
		FROM teams t
		JOIN team_memberships tm ON tm.team_id = t.id
		WHERE tm.user_id = $1
		ORDER BY t.id
	`, userID)
	return collect(rows, err, func(row pgx.Row) (entity.MemberTeam, error) {
		var t entity.MemberTeam
		err := row.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt, &t.Level)
		return t, err
	})
}

func (r *AssociationRepository) AddProject(ctx context.Context, userID, projectID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO projects_users (project_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (project_id, user_id) DO NOTHING
	`, projectID, userID)
	return translate(err, nil)
}

func (r *AssociationRepository) RemoveProject(ctx context.Context, userID, projectID int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM projects_users WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AssociationRepository) JoinTeam(ctx context.Context, m *entity.TeamMembership) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO team_memberships (team_id, user_id, level)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO UPDATE SET level = EXCLUDED.level, updated_at = now()
		RETURNING id, created_at, updated_at
	`, m.TeamID, m.UserID, m.Level)
	return translate(row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt), nil)
}

func (r *AssociationRepository) LeaveTeam(ctx context.Context, userID, teamID int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM team_memberships WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.AssociationRepository = (*AssociationRepository)(nil)
