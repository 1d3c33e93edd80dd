package entity

import (
	"reflect"
	"strings"
)

// Roles is the free-form JSON object stored in users.roles. A nil map is SQL NULL.
type Roles map[string]any

// Present reports whether the roles object is non-null and non-empty.
func (r Roles) Present() bool {
	return len(r) > 0
}

// present follows blank-value semantics: nil, false, whitespace-only
// strings and empty collections are absent; every other value is present.
func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return strings.TrimSpace(x) != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
