package postgres

import (
	"strconv"
	"strings"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

// columnTypes covers every ransackable attribute; values arrive as strings
// and are cast server-side.
var columnTypes = map[string]string{
	"active":                 "boolean",
	"birthday":               "date",
	"created_at":             "timestamp",
	"custom_css":             "text",
	"email":                  "text",
	"encrypted_password":     "text",
	"first_name":             "text",
	"id":                     "bigint",
	"last_name":              "text",
	"remember_created_at":    "timestamp",
	"reset_password_sent_at": "timestamp",
	"reset_password_token":   "text",
	"roles":                  "json",
	"slug":                   "text",
	"team_id":                "bigint",
	"updated_at":             "timestamp",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func itoa(n int) string { return strconv.Itoa(n) }

// buildSearch renders q as a WHERE clause, an ORDER BY list and positional args.
// Attribute names are checked against columnTypes before they reach the SQL text.
func buildSearch(q repository.Query) (string, string, []any) {
	clauses := make([]string, 0, len(q.Conditions))
	args := make([]any, 0, len(q.Conditions))
	next := func(v any) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	for _, c := range q.Conditions {
		typ, ok := columnTypes[c.Attribute]
		if !ok {
			continue
		}
		col := c.Attribute
		textCol := col
		if typ != "text" {
			textCol = col + "::text"
		}
		cmpCol, cast := col, "::"+typ
		if typ == "json" {
			// json has no equality operator
			cmpCol, cast = textCol, ""
		}

		switch c.Predicate {
		case repository.PredEq:
			clauses = append(clauses, cmpCol+" = "+next(c.Value)+cast)
		case repository.PredNotEq:
			clauses = append(clauses, cmpCol+" IS DISTINCT FROM "+next(c.Value)+cast)
		case repository.PredCont:
			clauses = append(clauses, textCol+" ILIKE "+next("%"+likeEscaper.Replace(c.Value)+"%"))
		case repository.PredStart:
			clauses = append(clauses, textCol+" ILIKE "+next(likeEscaper.Replace(c.Value)+"%"))
		case repository.PredEnd:
			clauses = append(clauses, textCol+" ILIKE "+next("%"+likeEscaper.Replace(c.Value)))
		case repository.PredLt:
			clauses = append(clauses, cmpCol+" < "+next(c.Value)+cast)
		case repository.PredLteq:
			clauses = append(clauses, cmpCol+" <= "+next(c.Value)+cast)
		case repository.PredGt:
			clauses = append(clauses, cmpCol+" > "+next(c.Value)+cast)
		case repository.PredGteq:
			clauses = append(clauses, cmpCol+" >= "+next(c.Value)+cast)
		case repository.PredNull:
			if repository.Truthy(c.Value) {
				clauses = append(clauses, col+" IS NULL")
			} else {
				clauses = append(clauses, col+" IS NOT NULL")
			}
		case repository.PredTrue, repository.PredFalse:
			if typ != "boolean" {
				continue
			}
			want := repository.Truthy(c.Value) == (c.Predicate == repository.PredTrue)
			if want {
				clauses = append(clauses, col+" IS TRUE")
			} else {
				clauses = append(clauses, col+" IS NOT TRUE")
			}
		}
	}

	where := "TRUE"
	if len(clauses) > 0 {
		where = strings.Join(clauses, " AND ")
	}

	orders := make([]string, 0, len(q.Sorts)+1)
	for _, s := range q.Sorts {
		if _, ok := columnTypes[s.Attribute]; !ok {
			continue
		}
		col := s.Attribute
		if columnTypes[col] == "json" {
			col += "::text"
		}
		if s.Desc {
			orders = append(orders, col+" DESC")
		} else {
			orders = append(orders, col+" ASC")
		}
	}
	orders = append(orders, "id ASC")
	return where, strings.Join(orders, ", "), args
}
