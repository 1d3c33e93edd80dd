package repository

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// UniquenessError reports a unique constraint violation on Field.
type UniquenessError struct {
	Field string
	Value string
}

func (e *UniquenessError) Error() string {
	return fmt.Sprintf("%s %q has already been taken", e.Field, e.Value)
}
