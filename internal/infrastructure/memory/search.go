package memory

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

type attrKind int

const (
	kindText attrKind = iota
	kindInt
	kindBool
	kindTime
)

// attribute returns the value of a ransackable column as text plus its kind.
// ok is false when the column is NULL.
func attribute(u *entity.User, name string) (string, attrKind, bool) {
	str := func(p *string) (string, attrKind, bool) {
		if p == nil {
			return "", kindText, false
		}
		return *p, kindText, true
	}
	tm := func(t *time.Time) (string, attrKind, bool) {
		if t == nil {
			return "", kindTime, false
		}
		return t.UTC().Format(time.RFC3339Nano), kindTime, true
	}

	switch name {
	case "active":
		return strconv.FormatBool(u.Active), kindBool, true
	case "birthday":
		if u.Birthday == nil {
			return "", kindTime, false
		}
		return u.Birthday.Format("2006-01-02"), kindTime, true
	case "created_at":
		return tm(&u.CreatedAt)
	case "custom_css":
		return str(u.CustomCSS)
	case "email":
		return u.Email, kindText, true
	case "encrypted_password":
		return u.EncryptedPassword, kindText, true
	case "first_name":
		return u.FirstName, kindText, true
	case "id":
		return strconv.FormatInt(u.ID, 10), kindInt, true
	case "last_name":
		return u.LastName, kindText, true
	case "remember_created_at":
		return tm(u.RememberCreatedAt)
	case "reset_password_sent_at":
		return tm(u.ResetPasswordSentAt)
	case "reset_password_token":
		return str(u.ResetPasswordToken)
	case "roles":
		if u.Roles == nil {
			return "", kindText, false
		}
		b, _ := json.Marshal(u.Roles)
		return string(b), kindText, true
	case "slug":
		return u.Slug, kindText, true
	case "team_id":
		if u.TeamID == nil {
			return "", kindInt, false
		}
		return strconv.FormatInt(*u.TeamID, 10), kindInt, true
	case "updated_at":
		return tm(&u.UpdatedAt)
	}
	return "", kindText, false
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compare orders a against b according to kind; ok is false when b cannot be interpreted.
func compare(a, b string, kind attrKind) (int, bool) {
	switch kind {
	case kindInt:
		x, err1 := strconv.ParseInt(a, 10, 64)
		y, err2 := strconv.ParseInt(b, 10, 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case kindTime:
		x, ok1 := parseTime(a)
		y, ok2 := parseTime(b)
		if !ok1 || !ok2 {
			return 0, false
		}
		return x.Compare(y), true
	case kindBool:
		x, err1 := strconv.ParseBool(a)
		y, err2 := strconv.ParseBool(b)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		if x == y {
			return 0, true
		}
		return 1, true
	}
	return strings.Compare(a, b), true
}

func matches(u *entity.User, c repository.Condition) bool {
	v, kind, ok := attribute(u, c.Attribute)
	lv, lc := strings.ToLower(v), strings.ToLower(c.Value)

	switch c.Predicate {
	case repository.PredNull:
		return !ok == repository.Truthy(c.Value)
	case repository.PredTrue, repository.PredFalse:
		if kind != kindBool {
			return true
		}
		want := repository.Truthy(c.Value) == (c.Predicate == repository.PredTrue)
		return (ok && v == "true") == want
	case repository.PredNotEq:
		if !ok {
			return true
		}
		cmp, valid := compare(v, c.Value, kind)
		return !valid || cmp != 0
	}

	if !ok {
		return false
	}
	switch c.Predicate {
	case repository.PredCont:
		return strings.Contains(lv, lc)
	case repository.PredStart:
		return strings.HasPrefix(lv, lc)
	case repository.PredEnd:
		return strings.HasSuffix(lv, lc)
	}

	cmp, valid := compare(v, c.Value, kind)
	if !valid {
		return false
	}
	switch c.Predicate {
	case repository.PredEq:
		return cmp == 0
	case repository.PredLt:
		return cmp < 0
	case repository.PredLteq:
		return cmp <= 0
	case repository.PredGt:
		return cmp > 0
	case repository.PredGteq:
		return cmp >= 0
	}
	return true
}

func matchesAll(u *entity.User, conds []repository.Condition) bool {
	for _, c := range conds {
		if !matches(u, c) {
			return false
		}
	}
	return true
}

// sortUsers applies q.Sorts in order; NULLs sort last ascending, as in Postgres.
func sortUsers(users []*entity.User, sorts []repository.Sort) {
	sort.SliceStable(users, func(i, j int) bool {
		for _, s := range sorts {
			a, kind, okA := attribute(users[i], s.Attribute)
			b, _, okB := attribute(users[j], s.Attribute)
			if okA != okB {
				return okA != s.Desc
			}
			if !okA {
				continue
			}
			cmp, _ := compare(a, b, kind)
			if kind == kindBool && a != b {
				cmp = -1
				if a == "true" {
					cmp = 1
				}
			}
			if cmp == 0 {
				continue
			}
			if s.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return users[i].ID < users[j].ID
	})
}
