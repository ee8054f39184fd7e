package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrTaskNotFound     = fmt.Errorf("task %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrConflict       = errors.New("conflict")
	ErrCategoryExists = fmt.Errorf("category name already taken: %w", ErrConflict)

	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError collects per-field messages for malformed input.
type ValidationError struct {
	Fields map[string][]string
}

// Invalid returns a ValidationError holding a single field message.
func Invalid(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Add records msg against field.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], msg)
}

// Empty reports whether no field failed.
func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// OrNil returns v as an error, or nil when nothing was recorded.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	if v.Empty() {
		return ErrValidation.Error()
	}
	fields := make([]string, 0, len(v.Fields))
	for f := range v.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return v.Fields[fields[0]][0]
}

// First returns the message of the first failing field in name order.
func (v *ValidationError) First() string {
	return v.Error()
}

func (v *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AsValidation extracts a ValidationError from err's chain.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// Join concatenates messages for log output.
func (v *ValidationError) Join() string {
	if v.Empty() {
		return ""
	}
	parts := make([]string, 0, len(v.Fields))
	for f, msgs := range v.Fields {
		parts = append(parts, f+": "+strings.Join(msgs, "; "))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
