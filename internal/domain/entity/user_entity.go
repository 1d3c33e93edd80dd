package entity

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/go-ddd-fixture-users/pkg/validation"
)

// User is the aggregate root of the fixture domain.
//
// EncryptedPassword, ResetPasswordToken, ResetPasswordSentAt and
// RememberCreatedAt belong to the auth policy; Slug belongs to the slug
// policy. Both are applied by the application service on save.
//
// A User must not be copied after first use.
type User struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email" validate:"required,email"`
	FirstName           string     `json:"first_name" validate:"notblank"`
	LastName            string     `json:"last_name" validate:"notblank"`
	Roles               Roles      `json:"roles"`
	Birthday            *time.Time `json:"birthday"`
	CustomCSS           *string    `json:"custom_css"`
	TeamID              *int64     `json:"team_id"`
	EncryptedPassword   string     `json:"-"`
	ResetPasswordToken  *string    `json:"-"`
	ResetPasswordSentAt *time.Time `json:"-"`
	RememberCreatedAt   *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Active              bool       `json:"active"`
	Slug                string     `json:"slug"`

	// not backed by a column; see Permissions
	permissions map[string]bool

	tokenOnce sync.Once
	someToken string
}

// NewUser returns a user carrying the column defaults.
func NewUser() *User {
	return &User{Active: true}
}

// Account is a lightweight, non-persisted account record.
type Account struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

const (
	gravatarHost = "www.gravatar.com"
	avatarSize   = 100
)

var ransackableAttributes = []string{
	"active",
	"birthday",
	"created_at",
	"custom_css",
	"email",
	"encrypted_password",
	"first_name",
	"id",
	"last_name",
	"remember_created_at",
	"reset_password_sent_at",
	"reset_password_token",
	"roles",
	"slug",
	"team_id",
	"updated_at",
}

// RansackableAttributes lists the columns an admin search may filter or sort on.
// authObject is accepted for API compatibility and ignored.
func RansackableAttributes(authObject any) []string {
	_ = authObject
	out := make([]string, len(ransackableAttributes))
	copy(out, ransackableAttributes)
	return out
}

// IsRansackable reports whether attr is in RansackableAttributes.
func IsRansackable(attr string) bool {
	for _, a := range ransackableAttributes {
		if a == attr {
			return true
		}
	}
	return false
}

// IsAdmin reports whether roles["admin"] is set to a present value.
func (u *User) IsAdmin() bool {
	return u.Roles.Present() && present(u.Roles["admin"])
}

// Name is the display name; the slug is derived from it.
func (u *User) Name() string {
	return u.FirstName + " " + u.LastName
}

// Notify is a hook for outbound notifications. It currently does nothing.
func (u *User) Notify(text string) {
	_ = text
}

// Avatar builds the Gravatar URL for the user's email.
func (u *User) Avatar() string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(u.Email))))
	ref := url.URL{
		Scheme:   "https",
		Host:     gravatarHost,
		Path:     "/avatar/" + hex.EncodeToString(sum[:]),
		RawQuery: "default=&size=" + strconv.Itoa(avatarSize),
	}
	return ref.String()
}

// AvoTitle is the label the admin panel shows for the record.
func (u *User) AvoTitle() string {
	if u.IsAdmin() {
		return "Admin"
	}
	return "Member"
}

// Accounts simulates an accounts association. It never touches storage.
func (u *User) Accounts() []Account {
	return []Account{
		{ID: 1, Name: "Foo"},
		{ID: 2, Name: "Bar"},
	}
}

func (u *User) IsDeveloper() bool { return true }

// SetPermissions stores a value that Permissions does not read.
func (u *User) SetPermissions(p map[string]bool) {
	u.permissions = p
}

// Permissions returns the fixed fixture permission set, regardless of SetPermissions.
func (u *User) Permissions() map[string]bool {
	return map[string]bool{
		"create": true,
		"update": false,
		"read":   true,
		"delete": true,
	}
}

// SomeToken returns 64 random bytes hex-encoded, generated once per instance.
func (u *User) SomeToken() string {
	u.tokenOnce.Do(func() {
		b := make([]byte, 64)
		if _, err := rand.Read(b); err != nil {
			panic("entity: crypto/rand unavailable: " + err.Error())
		}
		u.someToken = hex.EncodeToString(b)
	})
	return u.someToken
}

// Validate checks the attributes required at save time.
func (u *User) Validate() error {
	return validation.Struct(u)
}
