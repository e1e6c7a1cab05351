package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/board"
	"github.com/iannini25/auxiliosindico-web/core/identity"
	"github.com/iannini25/auxiliosindico-web/core/residency"
	"github.com/iannini25/auxiliosindico-web/core/suggestion"
	"github.com/iannini25/auxiliosindico-web/tests"
)

func Test_appHTTPErrorHandler(t *testing.T) {
	identityErr := func(err error) error {
		return errors.Wrap(&residency.Error{Kind: residency.KindIdentity, Op: "signup", Apt: 604, Err: err}, "signing up")
	}

	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantMsg    string
		wantFields map[string]string
		wantLogged bool
	}{
		{name: "http error", err: errHttpNotFound, wantCode: http.StatusNotFound, wantMsg: "not found"},
		{name: "missing jwt", err: middleware.ErrJWTMissing, wantCode: http.StatusUnauthorized, wantMsg: "missing or malformed jwt"},
		{
			name:     "core validation",
			err:      errors.Wrap(core.NewValidationError(errors.New("bad input")), "validating"),
			wantCode: http.StatusBadRequest, wantMsg: "bad input",
		},
		{
			name:       "field validation",
			err:        errors.Wrap(core.NewFieldError("value", suggestion.ErrInvalidVote), "voting"),
			wantCode:   http.StatusBadRequest,
			wantFields: map[string]string{"value": suggestion.ErrInvalidVote.Error()},
		},
		{
			name:     "capacity",
			err:      &residency.Error{Kind: residency.KindCapacity, Op: "signup", Apt: 604, Err: residency.ErrApartmentFull},
			wantCode: http.StatusConflict, wantMsg: residency.ErrApartmentFull.Error(),
		},
		{
			name:     "residency validation",
			err:      &residency.Error{Kind: residency.KindValidation, Op: "signup", Err: residency.ErrInvalidApartment},
			wantCode: http.StatusBadRequest, wantMsg: residency.ErrInvalidApartment.Error(),
		},
		{name: "invalid credential", err: identityErr(identity.ErrInvalidCredential), wantCode: http.StatusUnauthorized, wantMsg: "invalid credentials"},
		{name: "email exists", err: identityErr(identity.ErrEmailExists), wantCode: http.StatusConflict, wantMsg: identity.ErrEmailExists.Error()},
		{name: "weak secret", err: identityErr(identity.ErrWeakSecret), wantCode: http.StatusBadRequest, wantMsg: identity.ErrWeakSecret.Error()},
		{
			name:     "session not visible",
			err:      identityErr(errors.Wrap(context.DeadlineExceeded, "waiting for session")),
			wantCode: http.StatusServiceUnavailable, wantMsg: errSignupNotCompleted.Message.(string), wantLogged: true,
		},
		{
			name:     "store failure",
			err:      &residency.Error{Kind: residency.KindStore, Op: "signup", Apt: 604, Err: errors.New("disk full")},
			wantCode: http.StatusInternalServerError, wantMsg: http.StatusText(http.StatusInternalServerError), wantLogged: true,
		},
		{name: "forbidden", err: errors.Wrap(residency.ErrForbidden, "creating task"), wantCode: http.StatusForbidden, wantMsg: residency.ErrForbidden.Error()},
		{name: "task not found", err: errors.Wrap(board.ErrTaskNotFound, "getting task"), wantCode: http.StatusNotFound, wantMsg: board.ErrTaskNotFound.Error()},
		{name: "closed", err: errors.Wrap(suggestion.ErrClosed, "voting"), wantCode: http.StatusConflict, wantMsg: suggestion.ErrClosed.Error()},
		{
			name:     "unexpected",
			err:      errors.New("lol"),
			wantCode: http.StatusInternalServerError, wantMsg: http.StatusText(http.StatusInternalServerError), wantLogged: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := new(testutil.Logger)
			handler := newAppHTTPErrorHandler(logger, nil)

			e := echo.New()
			rec := httptest.NewRecorder()
			ctx := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			handler(tt.err, ctx)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, body)
			} else {
				assert.Equal(t, tt.wantMsg, body["error"])
			}
			assert.Equal(t, tt.wantLogged, len(logger.Messages()) > 0, "logged: %v", logger.Messages())
		})
	}
}

func Test_appHTTPErrorHandler_committed(t *testing.T) {
	handler := newAppHTTPErrorHandler(new(testutil.Logger), nil)

	e := echo.New()
	rec := httptest.NewRecorder()
	ctx := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, ctx.NoContent(http.StatusAccepted))

	handler(board.ErrTaskNotFound, ctx)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
