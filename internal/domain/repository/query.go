package repository

import (
	"sort"
	"strings"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
)

// Predicate is a ransack-style matcher suffix, as in "first_name_cont".
type Predicate string

const (
	PredEq    Predicate = "eq"
	PredNotEq Predicate = "not_eq"
	PredCont  Predicate = "cont"
	PredStart Predicate = "start"
	PredEnd   Predicate = "end"
	PredLt    Predicate = "lt"
	PredLteq  Predicate = "lteq"
	PredGt    Predicate = "gt"
	PredGteq  Predicate = "gteq"
	PredNull  Predicate = "null"
	PredTrue  Predicate = "true"
	PredFalse Predicate = "false"
)

// longest suffix first so "not_eq" wins over "eq" and "lteq" over "eq"
var predicates = []Predicate{
	PredNotEq, PredStart, PredFalse, PredLteq, PredGteq,
	PredCont, PredNull, PredTrue, PredEnd,
	PredEq, PredLt, PredGt,
}

// Condition filters on one ransackable attribute.
type Condition struct {
	Attribute string    `json:"attribute"`
	Predicate Predicate `json:"predicate"`
	Value     string    `json:"value"`
}

// Sort orders by one ransackable attribute.
type Sort struct {
	Attribute string `json:"attribute"`
	Desc      bool   `json:"desc"`
}

// Query is an admin search over users.
type Query struct {
	Conditions []Condition
	Sorts      []Sort
	Limit      int
	Offset     int
}

const (
	defaultQueryLimit = 25
	maxQueryLimit     = 100
)

// ParseQuery turns q[<attr>_<pred>] parameters and an "attr dir" sort string
// into a Query. Keys naming attributes outside entity.RansackableAttributes
// and blank values are dropped.
func ParseQuery(params map[string]string, sortParam string, limit, offset int) Query {
	q := Query{Limit: limit, Offset: offset}
	if q.Limit <= 0 || q.Limit > maxQueryLimit {
		q.Limit = defaultQueryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := strings.TrimSpace(params[key])
		if value == "" {
			continue
		}
		attr, pred, ok := splitKey(key)
		if !ok || !entity.IsRansackable(attr) {
			continue
		}
		q.Conditions = append(q.Conditions, Condition{Attribute: attr, Predicate: pred, Value: value})
	}

	for _, part := range strings.Split(sortParam, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 || !entity.IsRansackable(fields[0]) {
			continue
		}
		s := Sort{Attribute: fields[0]}
		if len(fields) > 1 && strings.EqualFold(fields[1], "desc") {
			s.Desc = true
		}
		q.Sorts = append(q.Sorts, s)
	}
	return q
}

func splitKey(key string) (string, Predicate, bool) {
	for _, p := range predicates {
		suffix := "_" + string(p)
		if strings.HasSuffix(key, suffix) && len(key) > len(suffix) {
			return strings.TrimSuffix(key, suffix), p, true
		}
	}
	return "", "", false
}

// Truthy interprets a predicate value the way form checkboxes send it.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "yes", "on":
		return true
	}
	return false
}
