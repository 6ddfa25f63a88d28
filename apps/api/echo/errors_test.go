package echoapi

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
)

func Test_errorResponse(t *testing.T) {
	translator := core.NewTranslator()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody interface{}
	}{
		{
			name:     "record store down",
			err:      errors.Wrap(core.NewUpstreamError("selecting distributions", sql.ErrConnDone), "querying distributions"),
			wantCode: http.StatusServiceUnavailable,
			wantBody: http.StatusText(http.StatusServiceUnavailable),
		},
		{
			name:     "not found",
			err:      errors.Wrap(assignment.ErrNotFound, "finding distribution"),
			wantCode: http.StatusNotFound,
			wantBody: "assignment not found",
		},
		{
			name:     "field errors",
			err:      core.NewValidationError(nil, core.FieldError{Field: "due_date", Error: "due date must be in the future"}),
			wantCode: http.StatusBadRequest,
			wantBody: map[string]string{"due_date": "due date must be in the future"},
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: http.StatusText(http.StatusInternalServerError),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := errorResponse(tt.err, translator)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
