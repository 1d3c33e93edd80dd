package application

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"expvar"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
	"github.com/oksasatya/go-ddd-fixture-users/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidResetToken  = errors.New("reset password token is invalid")
	ErrNotFound           = errors.New("record not found")
	ErrUnknownAssociation = errors.New("unknown association")
	ErrSearchDisabled     = errors.New("search is not configured")
)

var (
	usersCreated = expvar.NewInt("users_created")
	usersUpdated = expvar.NewInt("users_updated")
	usersDeleted = expvar.NewInt("users_deleted")
)

// BlobStore stores attachment bytes by key.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// UserIndex is the full-text mirror of the users table.
type UserIndex interface {
	Index(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, q string, size int) ([]search.Hit, error)
}

// JobPublisher enqueues background jobs such as outgoing mail.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Options carries the collaborators of Service. Repos, Auth and Slugs are
// required; the rest are optional and skipped when nil.
type Options struct {
	Users        repo.UserRepository
	Associations repo.AssociationRepository
	Attachments  repo.AttachmentRepository
	Auth         AuthPolicy
	Slugs        SlugPolicy
	JWT          *helpers.JWTManager
	Blobs        BlobStore
	Index        UserIndex
	Redis        *redis.Client
	Mail         JobPublisher
	Logger       *logrus.Logger

	ResetPasswordURL string
	RememberFor      time.Duration
	SessionTTL       time.Duration
}

type Service struct {
	Users        repo.UserRepository
	Associations repo.AssociationRepository
	Attachments  repo.AttachmentRepository
	Auth         AuthPolicy
	Slugs        SlugPolicy
	JWT          *helpers.JWTManager
	Blobs        BlobStore
	Index        UserIndex
	Redis        *redis.Client
	Mail         JobPublisher
	Logger       *logrus.Logger

	ResetPasswordURL string
	RememberFor      time.Duration
	SessionTTL       time.Duration

	now func() time.Time
}

func NewService(o Options) *Service {
	s := &Service{
		Users:            o.Users,
		Associations:     o.Associations,
		Attachments:      o.Attachments,
		Auth:             o.Auth,
		Slugs:            o.Slugs,
		JWT:              o.JWT,
		Blobs:            o.Blobs,
		Index:            o.Index,
		Redis:            o.Redis,
		Mail:             o.Mail,
		Logger:           o.Logger,
		ResetPasswordURL: o.ResetPasswordURL,
		RememberFor:      o.RememberFor,
		SessionTTL:       o.SessionTTL,
		now:              time.Now,
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = 24 * time.Hour
	}
	return s
}

type CreateUserInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
	FirstName            string
	LastName             string
	Roles                entity.Roles
	Birthday             *time.Time
	CustomCSS            *string
	TeamID               *int64
	Active               *bool
}

// UpdateUserInput applies only the non-nil fields. ClearRoles, ClearBirthday,
// ClearCustomCSS and ClearTeamID null the column.
type UpdateUserInput struct {
	Email                *string
	Password             *string
	PasswordConfirmation *string
	FirstName            *string
	LastName             *string
	Roles                entity.Roles
	ClearRoles           bool
	Birthday             *time.Time
	ClearBirthday        bool
	CustomCSS            *string
	ClearCustomCSS       bool
	TeamID               *int64
	ClearTeamID          bool
	Active               *bool
}

// credentials carries the virtual password attributes through validation.
type credentials struct {
	Password             string `json:"password" validate:"required,pwd"`
	PasswordConfirmation string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
}

func merge(errs ...error) error {
	out := &validation.Error{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ve *validation.Error
		if !errors.As(err, &ve) {
			return err
		}
		out.Fields = append(out.Fields, ve.Fields...)
	}
	if len(out.Fields) == 0 {
		return nil
	}
	return out
}

// validate runs record and credential checks plus email uniqueness. pw is nil when the password is unchanged.
func (s *Service) validate(ctx context.Context, u *entity.User, pw *credentials) error {
	errs := []error{u.Validate()}
	if pw != nil {
		errs = append(errs, validation.Struct(pw))
	}
	if strings.TrimSpace(u.Email) != "" {
		other, err := s.Users.GetByEmail(ctx, u.Email)
		switch {
		case err == nil && other.ID != u.ID:
			taken := &validation.Error{}
			taken.Add("email", "unique", "has already been taken")
			errs = append(errs, taken)
		case err != nil && !errors.Is(err, repo.ErrNotFound):
			return err
		}
	}
	return merge(errs...)
}

func (s *Service) assignSlug(ctx context.Context, u *entity.User) error {
	sl, err := s.Slugs.Slug(ctx, u.Name(), func(ctx context.Context, candidate string) (bool, error) {
		return s.Users.SlugExists(ctx, candidate, u.ID)
	})
	if err != nil {
		return err
	}
	u.Slug = sl
	return nil
}

// Create validates, hashes the password, derives the slug and inserts the user.
// Nothing is written when validation fails.
func (s *Service) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	u := entity.NewUser()
	u.Email = strings.TrimSpace(in.Email)
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.Roles = in.Roles
	u.Birthday = in.Birthday
	u.CustomCSS = in.CustomCSS
	u.TeamID = in.TeamID
	if in.Active != nil {
		u.Active = *in.Active
	}

	pw := &credentials{Password: in.Password, PasswordConfirmation: in.PasswordConfirmation}
	if err := s.validate(ctx, u, pw); err != nil {
		return nil, err
	}

	hash, err := s.Auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u.EncryptedPassword = hash

	if err := s.assignSlug(ctx, u); err != nil {
		return nil, err
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	usersCreated.Add(1)

	s.indexUser(ctx, u)
	return u, nil
}

// Update applies in to the user with id. The slug is re-derived when the display name changes.
func (s *Service) Update(ctx context.Context, id int64, in UpdateUserInput) (*entity.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousName, wasAdmin := u.Name(), u.IsAdmin()

	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.ClearRoles {
		u.Roles = nil
	} else if in.Roles != nil {
		u.Roles = in.Roles
	}
	if in.ClearBirthday {
		u.Birthday = nil
	} else if in.Birthday != nil {
		u.Birthday = in.Birthday
	}
	if in.ClearCustomCSS {
		u.CustomCSS = nil
	} else if in.CustomCSS != nil {
		u.CustomCSS = in.CustomCSS
	}
	if in.ClearTeamID {
		u.TeamID = nil
	} else if in.TeamID != nil {
		u.TeamID = in.TeamID
	}
	if in.Active != nil {
		u.Active = *in.Active
	}

	var pw *credentials
	if in.Password != nil {
		pw = &credentials{Password: *in.Password}
		if in.PasswordConfirmation != nil {
			pw.PasswordConfirmation = *in.PasswordConfirmation
		}
	}
	if err := s.validate(ctx, u, pw); err != nil {
		return nil, err
	}

	if pw != nil {
		hash, err := s.Auth.HashPassword(pw.Password)
		if err != nil {
			return nil, err
		}
		u.EncryptedPassword = hash
	}
	if u.Slug == "" || u.Name() != previousName {
		if err := s.assignSlug(ctx, u); err != nil {
			return nil, err
		}
	}

	if err := s.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	usersUpdated.Add(1)

	// a new password or admin status invalidates live sessions
	if pw != nil || u.IsAdmin() != wasAdmin {
		s.dropSession(ctx, u.ID)
	}
	s.indexUser(ctx, u)
	return u, nil
}

// Delete removes the user, purges the attached CV and drops search and session state.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	usersDeleted.Add(1)

	if s.Attachments != nil {
		if a, err := s.Attachments.Detach(ctx, entity.RecordTypeUser, id, entity.AttachmentCV); err == nil {
			s.purge(ctx, a)
		} else if !errors.Is(err, repo.ErrNotFound) {
			s.warn(err, id, "detach cv on delete failed")
		}
	}
	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			s.warn(err, id, "es delete failed")
		}
	}
	s.dropSession(ctx, id)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// IsAdmin re-reads the user and reports its current admin status.
func (s *Service) IsAdmin(ctx context.Context, id int64) (bool, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return u.IsAdmin(), nil
}

// Find looks a user up by numeric id or by slug.
func (s *Service) Find(ctx context.Context, key string) (*entity.User, error) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		return s.Get(ctx, id)
	}
	u, err := s.Users.GetBySlug(ctx, key)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, scope repo.Scope, limit, offset int) ([]*entity.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	return s.Users.List(ctx, scope, limit, offset)
}

// AdminSearch filters users on ransackable attributes.
func (s *Service) AdminSearch(ctx context.Context, q repo.Query) ([]*entity.User, error) {
	return s.Users.Search(ctx, q)
}

// Search performs a free-text search against the index.
func (s *Service) Search(ctx context.Context, q string, size int) ([]search.Hit, error) {
	if s.Index == nil {
		return nil, ErrSearchDisabled
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	return s.Index.Search(ctx, q, size)
}

// Notify hands text to the user's notification hook.
func (s *Service) Notify(ctx context.Context, id int64, text string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	u.Notify(text)
	return nil
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, u); err != nil {
		s.warn(err, u.ID, "es index failed")
	}
}

func (s *Service) warn(err error, userID int64, msg string) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn(msg)
	}
}

// AttachCV uploads r as the user's CV, replacing and purging any previous one.
func (s *Service) AttachCV(ctx context.Context, id int64, filename, contentType string, r io.Reader) (*entity.Attachment, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.Blobs == nil || s.Attachments == nil {
		return nil, errors.New("attachment storage not configured")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	key := filepath.ToSlash(filepath.Join("users", strconv.FormatInt(id, 10), entity.AttachmentCV, uuid.NewString()+ext))

	sum := md5.New()
	counter := &countingReader{r: io.TeeReader(r, sum)}
	url, err := s.Blobs.Put(ctx, key, contentType, counter)
	if err != nil {
		return nil, err
	}

	a := &entity.Attachment{
		Name:        entity.AttachmentCV,
		RecordType:  entity.RecordTypeUser,
		RecordID:    id,
		Key:         key,
		Filename:    filepath.Base(filename),
		ContentType: contentType,
		ByteSize:    counter.n,
		Checksum:    base64.StdEncoding.EncodeToString(sum.Sum(nil)),
		URL:         url,
	}
	previous, err := s.Attachments.Attach(ctx, a)
	if err != nil {
		if derr := s.Blobs.Delete(ctx, key); derr != nil {
			s.warn(derr, id, "cleanup of orphan blob failed")
		}
		return nil, err
	}
	s.purge(ctx, previous)
	return a, nil
}

func (s *Service) CV(ctx context.Context, id int64) (*entity.Attachment, error) {
	if s.Attachments == nil {
		return nil, ErrNotFound
	}
	a, err := s.Attachments.Get(ctx, entity.RecordTypeUser, id, entity.AttachmentCV)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *Service) DetachCV(ctx context.Context, id int64) error {
	if s.Attachments == nil {
		return ErrNotFound
	}
	a, err := s.Attachments.Detach(ctx, entity.RecordTypeUser, id, entity.AttachmentCV)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.purge(ctx, a)
	return nil
}

func (s *Service) purge(ctx context.Context, a *entity.Attachment) {
	if a == nil || s.Blobs == nil {
		return
	}
	if err := s.Blobs.Delete(ctx, a.Key); err != nil {
		s.warn(err, a.RecordID, "purge blob failed")
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
