package postgres

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

func TestBuildSearchEmpty(t *testing.T) {
	where, order, args := buildSearch(repository.Query{})
	if where != "TRUE" || order != "id ASC" || len(args) != 0 {
		t.Fatalf("got %q / %q / %v", where, order, args)
	}
}

func TestBuildSearchPredicates(t *testing.T) {
	cases := []struct {
		cond  repository.Condition
		where string
		args  []any
	}{
		{repository.Condition{Attribute: "email", Predicate: repository.PredEq, Value: "a@b.co"}, "email = $1::text", []any{"a@b.co"}},
		{repository.Condition{Attribute: "id", Predicate: repository.PredNotEq, Value: "3"}, "id IS DISTINCT FROM $1::bigint", []any{"3"}},
		{repository.Condition{Attribute: "first_name", Predicate: repository.PredCont, Value: "50%_off"}, "first_name ILIKE $1", []any{`%50\%\_off%`}},
		{repository.Condition{Attribute: "slug", Predicate: repository.PredStart, Value: "adr"}, "slug ILIKE $1", []any{"adr%"}},
		{repository.Condition{Attribute: "team_id", Predicate: repository.PredEnd, Value: "7"}, "team_id::text ILIKE $1", []any{"%7"}},
		{repository.Condition{Attribute: "birthday", Predicate: repository.PredLt, Value: "2000-01-01"}, "birthday < $1::date", []any{"2000-01-01"}},
		{repository.Condition{Attribute: "created_at", Predicate: repository.PredGteq, Value: "2024-01-01"}, "created_at >= $1::timestamp", []any{"2024-01-01"}},
		{repository.Condition{Attribute: "roles", Predicate: repository.PredEq, Value: `{"admin":true}`}, `roles::text = $1`, []any{`{"admin":true}`}},
		{repository.Condition{Attribute: "custom_css", Predicate: repository.PredNull, Value: "1"}, "custom_css IS NULL", nil},
		{repository.Condition{Attribute: "custom_css", Predicate: repository.PredNull, Value: "0"}, "custom_css IS NOT NULL", nil},
		{repository.Condition{Attribute: "active", Predicate: repository.PredTrue, Value: "1"}, "active IS TRUE", nil},
		{repository.Condition{Attribute: "active", Predicate: repository.PredFalse, Value: "1"}, "active IS NOT TRUE", nil},
		{repository.Condition{Attribute: "active", Predicate: repository.PredTrue, Value: "0"}, "active IS NOT TRUE", nil},
		{repository.Condition{Attribute: "email", Predicate: repository.PredTrue, Value: "1"}, "TRUE", nil},
		{repository.Condition{Attribute: "name", Predicate: repository.PredEq, Value: "x"}, "TRUE", nil},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%s", tc.cond.Attribute, tc.cond.Predicate), func(t *testing.T) {
			where, _, args := buildSearch(repository.Query{Conditions: []repository.Condition{tc.cond}})
			if where != tc.where {
				t.Fatalf("where = %q, want %q", where, tc.where)
			}
			if len(args) != len(tc.args) || (len(args) > 0 && !reflect.DeepEqual(args, tc.args)) {
				t.Fatalf("args = %v, want %v", args, tc.args)
			}
		})
	}
}

func TestBuildSearchCombinesAndOrders(t *testing.T) {
	q := repository.Query{
		Conditions: []repository.Condition{
			{Attribute: "first_name", Predicate: repository.PredCont, Value: "a"},
			{Attribute: "id", Predicate: repository.PredGt, Value: "10"},
		},
		Sorts: []repository.Sort{
			{Attribute: "last_name", Desc: true},
			{Attribute: "roles"},
			{Attribute: "bogus"},
		},
	}
	where, order, args := buildSearch(q)
	if where != "first_name ILIKE $1 AND id > $2::bigint" {
		t.Fatalf("where = %q", where)
	}
	if order != "last_name DESC, roles::text ASC, id ASC" {
		t.Fatalf("order = %q", order)
	}
	if !reflect.DeepEqual(args, []any{"%a%", "10"}) {
		t.Fatalf("args = %v", args)
	}
}

func TestTranslate(t *testing.T) {
	if err := translate(nil, nil); err != nil {
		t.Fatalf("translate(nil) = %v", err)
	}
	if err := translate(pgx.ErrNoRows, nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("no rows -> %v", err)
	}

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "index_users_on_email"}
	err := translate(fmt.Errorf("insert: %w", dup), map[string]string{"email": "a@b.co"})
	var ue *repository.UniquenessError
	if !errors.As(err, &ue) || ue.Field != "email" || ue.Value != "a@b.co" {
		t.Fatalf("unique violation -> %v", err)
	}

	fk := &pgconn.PgError{Code: "23503", ConstraintName: "fk_team_memberships_team_id"}
	if err := translate(fk, nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("fk violation -> %v", err)
	}

	other := errors.New("boom")
	if err := translate(other, nil); err != other {
		t.Fatalf("other -> %v", err)
	}
}

func TestUniqueField(t *testing.T) {
	cases := map[string]string{
		"index_users_on_email":                "email",
		"index_users_on_reset_password_token": "reset_password_token",
		"index_users_on_slug":                 "slug",
		"users_pkey":                          "users_pkey",
	}
	for in, want := range cases {
		if got := uniqueField(in); got != want {
			t.Errorf("uniqueField(%q) = %q, want %q", in, got, want)
		}
	}
}
