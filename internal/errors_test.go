package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: ValidationError("missing mimeType"), want: http.StatusBadRequest},
		{name: "wrapped validation", err: fmt.Errorf("decode: %w", ValidationError("bad")), want: http.StatusBadRequest},
		{name: "collaborator", err: CollaboratorError("resolve ndc", errors.New("conn refused")), want: http.StatusInternalServerError},
		{name: "internal", err: InternalError("extract", "broken"), want: http.StatusInternalServerError},
		{name: "untyped", err: context.DeadlineExceeded, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessageHidesCollaboratorDetail(t *testing.T) {
	t.Parallel()

	err := CollaboratorError("resolve ndc", errors.New("dial tcp 10.0.0.4:3306: secret detail"))
	assert.Equal(t, "Failed to process document", PublicMessage(err))
	assert.Contains(t, err.Error(), "resolve ndc")
	assert.Equal(t, KindCollaborator, KindOf(err))

	assert.Equal(t, "Invalid request: missing mimeType", PublicMessage(ValidationError("Invalid request: missing mimeType")))
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := CollaboratorError("process document", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "process document: boom", err.Error())
}
