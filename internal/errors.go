package internal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindCollaborator ErrorKind = "collaborator"
	KindInternal     ErrorKind = "internal"
)

// Error carries a kind that decides how the failure is surfaced to callers.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Op, e.Message} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s error", e.Kind)
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func ValidationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func CollaboratorError(op string, cause error) error {
	return &Error{Kind: KindCollaborator, Op: op, Cause: cause}
}

func InternalError(op, message string) error {
	return &Error{Kind: KindInternal, Op: op, Message: message}
}

// KindOf reports the kind of the first *Error in err's chain.
// Untyped errors are internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text that may be shown to a caller. Only validation
// messages are exposed.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindValidation {
		return e.Message
	}
	return "Failed to process document"
}
