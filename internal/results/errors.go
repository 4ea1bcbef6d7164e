package results

import (
	"school-results-db/internal/model"
)

// Error is a pipeline failure the API can render as-is. Kind is one of the
// sentinels in pkg/errors and decides the HTTP status.
type Error struct {
	Kind    error
	Message string
	Errors  []model.RowError
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) WithRows(rows []model.RowError, limit int) *Error {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	e.Errors = rows
	return e
}

func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}
