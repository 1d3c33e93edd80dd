package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

const userColumns = `id, email, COALESCE(first_name, ''), COALESCE(last_name, ''), roles, birthday,
	custom_css, team_id, encrypted_password, reset_password_token, reset_password_sent_at,
	remember_created_at, created_at, updated_at, COALESCE(active, true), COALESCE(slug, '')`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := entity.NewUser()
	var roles []byte
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &roles, &u.Birthday,
		&u.CustomCSS, &u.TeamID, &u.EncryptedPassword, &u.ResetPasswordToken, &u.ResetPasswordSentAt,
		&u.RememberCreatedAt, &u.CreatedAt, &u.UpdatedAt, &u.Active, &u.Slug); err != nil {
		return nil, err
	}
	if len(roles) > 0 && string(roles) != "null" {
		if err := json.Unmarshal(roles, &u.Roles); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func encodeRoles(r entity.Roles) (any, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func uniqueValues(u *entity.User) map[string]string {
	return map[string]string{"email": u.Email, "slug": u.Slug}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	roles, err := encodeRoles(u.Roles)
	if err != nil {
		return err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, first_name, last_name, roles, birthday, custom_css, team_id,
			encrypted_password, reset_password_token, reset_password_sent_at, remember_created_at,
			active, slug)
		VALUES ($1, $2, $3, $4::json, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`, u.Email, u.FirstName, u.LastName, roles, u.Birthday, u.CustomCSS, u.TeamID,
		u.EncryptedPassword, u.ResetPasswordToken, u.ResetPasswordSentAt, u.RememberCreatedAt,
		u.Active, u.Slug)

	return translate(row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt), uniqueValues(u))
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, arg)
	u, err := scanUser(row)
	if err != nil {
		return nil, translate(err, nil)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *UserRepository) GetBySlug(ctx context.Context, slug string) (*entity.User, error) {
	return r.getOne(ctx, "slug = $1", slug)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, "lower(email) = lower($1)", email)
}

func (r *UserRepository) GetByResetPasswordToken(ctx context.Context, digest string) (*entity.User, error) {
	return r.getOne(ctx, "reset_password_token = $1", digest)
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	roles, err := encodeRoles(u.Roles)
	if err != nil {
		return err
	}
	u.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, roles = $4::json, birthday = $5,
			custom_css = $6, team_id = $7, encrypted_password = $8, reset_password_token = $9,
			reset_password_sent_at = $10, remember_created_at = $11, active = $12, slug = $13,
			updated_at = $14
		WHERE id = $15
	`, u.Email, u.FirstName, u.LastName, roles, u.Birthday, u.CustomCSS, u.TeamID,
		u.EncryptedPassword, u.ResetPasswordToken, u.ResetPasswordSentAt, u.RememberCreatedAt,
		u.Active, u.Slug, u.UpdatedAt, u.ID)
	if err != nil {
		return translate(err, uniqueValues(u))
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var scopeClauses = map[repository.Scope]string{
	repository.ScopeAll:       "TRUE",
	repository.ScopeActive:    "active = true",
	repository.ScopeAdmins:    "(roles->>'admin')::boolean IS TRUE",
	repository.ScopeNonAdmins: "(roles->>'admin')::boolean IS DISTINCT FROM TRUE",
}

func (r *UserRepository) List(ctx context.Context, scope repository.Scope, limit, offset int) ([]*entity.User, error) {
	where, ok := scopeClauses[scope]
	if !ok {
		where = scopeClauses[repository.ScopeAll]
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE `+where+`
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *UserRepository) Search(ctx context.Context, q repository.Query) ([]*entity.User, error) {
	where, order, args := buildSearch(q)
	args = append(args, q.Limit, q.Offset)
	var sb strings.Builder
	sb.WriteString(`SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY ` + order)
	sb.WriteString(` LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args)))
	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]*entity.User, error) {
	defer rows.Close()
	out := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) SlugExists(ctx context.Context, slug string, exceptID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE slug = $1 AND id <> $2)`, slug, exceptID).Scan(&exists)
	return exists, err
}

var _ repository.UserRepository = (*UserRepository)(nil)
