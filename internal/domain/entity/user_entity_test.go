package entity

import (
	"encoding/hex"
	"errors"
	"reflect"
	"testing"

	"github.com/oksasatya/go-ddd-fixture-users/pkg/validation"
)

func TestIsAdmin(t *testing.T) {
	cases := []struct {
		name  string
		roles Roles
		want  bool
	}{
		{"nil roles", nil, false},
		{"empty roles", Roles{}, false},
		{"admin true", Roles{"admin": true}, true},
		{"admin false", Roles{"admin": false}, false},
		{"admin missing", Roles{"manager": true}, false},
		{"admin blank string", Roles{"admin": "  "}, false},
		{"admin string", Roles{"admin": "yes"}, true},
		{"admin zero number", Roles{"admin": float64(0)}, true},
		{"admin empty list", Roles{"admin": []any{}}, false},
		{"admin nil", Roles{"admin": nil}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &User{Roles: tc.roles}
			if got := u.IsAdmin(); got != tc.want {
				t.Fatalf("IsAdmin() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNameAndAvoTitle(t *testing.T) {
	u := &User{FirstName: "Adrian", LastName: "Marin"}
	if got := u.Name(); got != "Adrian Marin" {
		t.Fatalf("Name() = %q", got)
	}
	if got := u.AvoTitle(); got != "Member" {
		t.Fatalf("AvoTitle() = %q, want Member", got)
	}
	u.Roles = Roles{"admin": true}
	if got := u.AvoTitle(); got != "Admin" {
		t.Fatalf("AvoTitle() = %q, want Admin", got)
	}

	// missing parts keep the separating space
	if got := (&User{FirstName: "Solo"}).Name(); got != "Solo " {
		t.Fatalf("Name() = %q", got)
	}
}

func TestAvatarNormalizesEmail(t *testing.T) {
	u := &User{Email: " Foo@Bar.com "}
	want := "https://www.gravatar.com/avatar/f3ada405ce890b6f8204094deb12d8a8?default=&size=100"
	if got := u.Avatar(); got != want {
		t.Fatalf("Avatar() = %q, want %q", got, want)
	}

	empty := &User{}
	if got := empty.Avatar(); got != "https://www.gravatar.com/avatar/d41d8cd98f00b204e9800998ecf8427e?default=&size=100" {
		t.Fatalf("Avatar() for empty email = %q", got)
	}
}

func TestRansackableAttributes(t *testing.T) {
	want := []string{
		"active", "birthday", "created_at", "custom_css", "email",
		"encrypted_password", "first_name", "id", "last_name",
		"remember_created_at", "reset_password_sent_at", "reset_password_token",
		"roles", "slug", "team_id", "updated_at",
	}
	got := RansackableAttributes(nil)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RansackableAttributes() = %v", got)
	}
	if other := RansackableAttributes(&User{ID: 1}); !reflect.DeepEqual(other, want) {
		t.Fatalf("auth object changed the result: %v", other)
	}

	got[0] = "mutated"
	if RansackableAttributes(nil)[0] != "active" {
		t.Fatal("caller mutation leaked into the shared list")
	}
	if IsRansackable("name") || !IsRansackable("slug") {
		t.Fatal("IsRansackable disagrees with the list")
	}
}

func TestAccountsAndFixedAnswers(t *testing.T) {
	u := &User{}
	want := []Account{{ID: 1, Name: "Foo"}, {ID: 2, Name: "Bar"}}
	if got := u.Accounts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Accounts() = %v", got)
	}
	if !u.IsDeveloper() {
		t.Fatal("IsDeveloper() = false")
	}
	u.Notify("hello")
}

func TestPermissionsIgnoreSetter(t *testing.T) {
	want := map[string]bool{"create": true, "update": false, "read": true, "delete": true}
	u := &User{}
	u.SetPermissions(map[string]bool{"update": true})
	if got := u.Permissions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Permissions() = %v", got)
	}

	got := u.Permissions()
	got["update"] = true
	if u.Permissions()["update"] {
		t.Fatal("Permissions() returned a shared map")
	}
}

func TestSomeTokenIsMemoised(t *testing.T) {
	u := &User{}
	tok := u.SomeToken()
	if len(tok) != 128 {
		t.Fatalf("len(SomeToken()) = %d, want 128", len(tok))
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Fatalf("SomeToken() is not hex: %v", err)
	}
	if again := u.SomeToken(); again != tok {
		t.Fatal("SomeToken() changed between calls")
	}
	if other := (&User{}).SomeToken(); other == tok {
		t.Fatal("two instances share a token")
	}
}

func TestValidate(t *testing.T) {
	u := NewUser()
	if !u.Active {
		t.Fatal("NewUser() should default to active")
	}

	err := u.Validate()
	var ve *validation.Error
	if !errors.As(err, &ve) {
		t.Fatalf("Validate() = %v, want *validation.Error", err)
	}
	for _, f := range []string{"email", "first_name", "last_name"} {
		if !ve.Has(f) {
			t.Errorf("missing error for %s: %v", f, ve)
		}
	}

	u.Email = "a@b.co"
	u.FirstName, u.LastName = "  ", "\t"
	if err := u.Validate(); !errors.As(err, &ve) || ve.Details()["first_name"] != "can't be blank" || !ve.Has("last_name") {
		t.Fatalf("Validate() = %v, want blank names rejected", err)
	}

	u.Email = "not-an-email"
	u.FirstName, u.LastName = "A", "B"
	if err := u.Validate(); !errors.As(err, &ve) || ve.Details()["email"] != "is invalid" {
		t.Fatalf("Validate() = %v, want invalid email", err)
	}

	u.Email = "a@b.co"
	if err := u.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}
