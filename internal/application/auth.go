package application

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/mailer"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/validation"
)

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !s.Auth.ValidPassword(u.EncryptedPassword, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues tokens. remember stamps remember_created_at
// and stretches the refresh token to RememberFor.
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}

	refreshTTL := time.Duration(0)
	if remember {
		if u.RememberCreatedAt == nil {
			now := s.now().UTC()
			u.RememberCreatedAt = &now
			if err := s.Users.Update(ctx, u); err != nil {
				return nil, TokenPair{}, err
			}
		}
		refreshTTL = s.RememberFor
	}

	pair, err := s.IssueTokens(ctx, u, refreshTTL)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *Service) IssueTokens(ctx context.Context, u *entity.User, refreshTTL time.Duration) (TokenPair, error) {
	if s.JWT == nil {
		return TokenPair{}, errors.New("jwt not configured")
	}
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, sid, u.IsAdmin())
	if err != nil {
		s.warn(err, u.ID, "generate access token failed")
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, sid, refreshTTL)
	if err != nil {
		s.warn(err, u.ID, "generate refresh token failed")
		return TokenPair{}, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.Name(),
			"slug":       u.Slug,
			"is_admin":   u.IsAdmin(),
			"sid":        sid,
			"created_at": nowRFC3339(),
		}
		ttl := s.SessionTTL
		if refreshTTL > ttl {
			ttl = refreshTTL
		}
		key := helpers.SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, ttl)
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// Refresh rotates the session id and both tokens.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, int64, error) {
	if s.JWT == nil {
		return TokenPair{}, 0, ErrInvalidCredentials
	}
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, 0, ErrInvalidCredentials
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil || u == nil {
		return TokenPair{}, 0, ErrInvalidCredentials
	}
	if s.Redis != nil {
		data, rErr := s.Redis.HGetAll(ctx, helpers.SessionKey(u.ID)).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, 0, ErrInvalidCredentials
		}
	}
	ttl := time.Duration(0)
	if u.RememberCreatedAt != nil {
		ttl = s.RememberFor
	}
	pair, err := s.IssueTokens(ctx, u, ttl)
	if err != nil {
		return TokenPair{}, 0, err
	}
	return pair, u.ID, nil
}

// Logout forgets the remember-me stamp and drops the session.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.RememberCreatedAt != nil {
		u.RememberCreatedAt = nil
		if err := s.Users.Update(ctx, u); err != nil {
			return err
		}
	}
	s.dropSession(ctx, userID)
	return nil
}

func (s *Service) dropSession(ctx context.Context, userID int64) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, helpers.SessionKey(userID)); err != nil {
		s.warn(err, userID, "drop session failed")
	}
}

// RequestPasswordReset stores a fresh reset token digest and enqueues the
// reset mail. Unknown emails succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	raw, digest, err := s.Auth.NewResetToken()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	u.ResetPasswordToken = &digest
	u.ResetPasswordSentAt = &now
	if err := s.Users.Update(ctx, u); err != nil {
		return err
	}

	if s.Mail == nil {
		if s.Logger != nil {
			s.Logger.WithField("user_id", u.ID).Warn("mail publisher not configured; reset mail not sent")
		}
		return nil
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateResetPassword,
		Data: map[string]any{
			"Name":      u.Name(),
			"ResetURL":  s.resetURL(raw),
			"ExpiresAt": now.Add(s.resetWithin()).Format(time.RFC3339),
		},
	}
	return s.Mail.PublishJSON(ctx, job)
}

func (s *Service) resetURL(raw string) string {
	base, err := url.Parse(s.ResetPasswordURL)
	if err != nil || s.ResetPasswordURL == "" {
		return raw
	}
	q := base.Query()
	q.Set("reset_password_token", raw)
	base.RawQuery = q.Encode()
	return base.String()
}

func (s *Service) resetWithin() time.Duration {
	if p, ok := s.Auth.(*BcryptAuthPolicy); ok {
		return p.ResetWithin
	}
	return 0
}

// ResetPassword sets a new password for the holder of a valid, unexpired reset token.
func (s *Service) ResetPassword(ctx context.Context, rawToken, password, confirmation string) (*entity.User, error) {
	if rawToken == "" {
		return nil, ErrInvalidResetToken
	}
	u, err := s.Users.GetByResetPasswordToken(ctx, s.Auth.ResetTokenDigest(rawToken))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}
	if !s.Auth.ResetPeriodValid(u.ResetPasswordSentAt, s.now()) {
		expired := &validation.Error{}
		expired.Add("reset_password_token", "expired", "has expired, please request a new one")
		return nil, expired
	}
	if err := validation.Struct(&credentials{Password: password, PasswordConfirmation: confirmation}); err != nil {
		return nil, err
	}

	hash, err := s.Auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u.EncryptedPassword = hash
	u.ResetPasswordToken = nil
	u.ResetPasswordSentAt = nil
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.dropSession(ctx, u.ID)
	return u, nil
}
