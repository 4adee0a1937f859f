package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound: unknown id, or a rule referencing a user/scanner that
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict: the operation does not apply to the row's current
	// state, e.g. approving a request that is already active.
	ErrConflict = errors.New("conflict")

	// ErrForbidden: the caller's role does not permit the operation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError carries field-level messages for a malformed rule or
// request.  It is returned synchronously from the management API and never
// from the scan pipeline.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) add(field, msg string) {
	if _, dup := e.Fields[field]; !dup {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) ok() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("validation failed:")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s: %s;", k, e.Fields[k])
	}
	return strings.TrimSuffix(b.String(), ";")
}
