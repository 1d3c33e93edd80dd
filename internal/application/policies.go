package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
)

// AuthPolicy owns password storage and reset tokens.
type AuthPolicy interface {
	HashPassword(plain string) (string, error)
	ValidPassword(encrypted, plain string) bool
	// NewResetToken returns the raw token to mail and the digest to store.
	NewResetToken() (raw, digest string, err error)
	ResetTokenDigest(raw string) string
	ResetPeriodValid(sentAt *time.Time, now time.Time) bool
}

// SlugPolicy derives a unique slug from a display name.
type SlugPolicy interface {
	// Slug returns a slug for name; taken reports collisions with other records.
	Slug(ctx context.Context, name string, taken func(ctx context.Context, candidate string) (bool, error)) (string, error)
}

// BcryptAuthPolicy hashes passwords with bcrypt and stores HMAC digests of reset tokens.
type BcryptAuthPolicy struct {
	Secret      []byte
	ResetWithin time.Duration
	// Cost is the bcrypt work factor; zero means bcrypt.DefaultCost.
	Cost int
}

func NewBcryptAuthPolicy(secret string, resetWithin time.Duration) *BcryptAuthPolicy {
	return &BcryptAuthPolicy{Secret: []byte(secret), ResetWithin: resetWithin}
}

func (p *BcryptAuthPolicy) HashPassword(plain string) (string, error) {
	return helpers.EncryptPassword(plain, p.Cost)
}

func (p *BcryptAuthPolicy) ValidPassword(encrypted, plain string) bool {
	return helpers.PasswordMatches(encrypted, plain)
}

func (p *BcryptAuthPolicy) NewResetToken() (string, string, error) {
	raw, err := helpers.RandomURLToken(20)
	if err != nil {
		return "", "", err
	}
	return raw, p.ResetTokenDigest(raw), nil
}

func (p *BcryptAuthPolicy) ResetTokenDigest(raw string) string {
	return helpers.TokenDigest(p.Secret, raw)
}

func (p *BcryptAuthPolicy) ResetPeriodValid(sentAt *time.Time, now time.Time) bool {
	if sentAt == nil {
		return false
	}
	return now.Before(sentAt.Add(p.ResetWithin))
}

// reserved path segments that would shadow routes
var reservedSlugs = map[string]bool{
	"new": true, "edit": true, "index": true, "session": true, "login": true, "logout": true,
	"users": true, "admin": true, "stylesheets": true, "assets": true, "javascripts": true, "images": true,
}

// FriendlySlugPolicy parameterizes the name and appends a UUID when the
// result is reserved or already taken.
type FriendlySlugPolicy struct{}

func (FriendlySlugPolicy) Slug(ctx context.Context, name string, taken func(context.Context, string) (bool, error)) (string, error) {
	base := slug.Make(name)
	if base == "" {
		// nothing survives parameterization
		return uuid.NewString(), nil
	}
	if !reservedSlugs[base] {
		used, err := taken(ctx, base)
		if err != nil {
			return "", err
		}
		if !used {
			return base, nil
		}
	}
	return base + "-" + uuid.NewString(), nil
}
