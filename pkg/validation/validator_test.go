package validation

import (
	"encoding/json"
	"errors"
	"testing"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
	Confirm  string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
	Level    string `json:"level" validate:"omitempty,oneof=beginner admin"`
	Name     string `json:"name" validate:"notblank"`
}

func TestStructReportsJSONNames(t *testing.T) {
	err := Struct(&signup{Email: "nope", Password: "123", Confirm: "456", Level: "guru", Name: " \t "})
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("Struct() = %v, want *Error", err)
	}

	want := map[string]string{
		"email":                 "is invalid",
		"password":              "must be between 6 and 128 characters",
		"password_confirmation": "doesn't match Password",
		"level":                 "must be one of: beginner, admin",
		"name":                  "can't be blank",
	}
	got := ve.Details()
	for field, msg := range want {
		if got[field] != msg {
			t.Errorf("%s = %q, want %q", field, got[field], msg)
		}
	}
	for i := 1; i < len(ve.Fields); i++ {
		if ve.Fields[i-1].Field > ve.Fields[i].Field {
			t.Fatalf("fields not sorted: %+v", ve.Fields)
		}
	}
}

func TestStructValid(t *testing.T) {
	if err := Struct(&signup{Email: "a@b.co", Password: "secret1", Confirm: "secret1", Name: "Ada"}); err != nil {
		t.Fatalf("Struct() = %v", err)
	}
}

func TestErrorHelpers(t *testing.T) {
	e := &Error{}
	e.Add("email", "unique", "has already been taken")
	e.Add("email", "required", "can't be blank")
	if !e.Has("email") || e.Has("slug") {
		t.Fatal("Has disagrees with Add")
	}
	if got := e.Details()["email"]; got != "has already been taken" {
		t.Fatalf("first message should win, got %q", got)
	}
	if got := e.Error(); got != "validation failed: email has already been taken, email can't be blank" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestToDetails(t *testing.T) {
	if ToDetails(nil) != nil {
		t.Fatal("nil error should have no details")
	}

	var v map[string]int
	syntax := json.Unmarshal([]byte("{"), &v)
	if got := ToDetails(syntax); got["payload"] != "invalid json" {
		t.Fatalf("syntax error -> %v", got)
	}

	ve := &Error{}
	ve.Add("first_name", "required", "can't be blank")
	if got := ToDetails(ve); got["first_name"] != "can't be blank" {
		t.Fatalf("validation error -> %v", got)
	}

	if got := ToDetails(errors.New("other")); got["payload"] != "invalid payload" {
		t.Fatalf("other error -> %v", got)
	}
}
