package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/board"
	"github.com/iannini25/auxiliosindico-web/core/identity"
	"github.com/iannini25/auxiliosindico-web/core/residency"
	"github.com/iannini25/auxiliosindico-web/core/suggestion"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "resident not authenticated")
	errInvalidCredentials = echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	errNoProfile          = echo.NewHTTPError(http.StatusForbidden, "resident profile not found")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
	errSignupNotCompleted = echo.NewHTTPError(http.StatusServiceUnavailable, "signup could not be completed, try again")

	// statusOf maps the sentinel errors of the domain packages to a response code.
	statusOf = map[error]int{
		residency.ErrForbidden:           http.StatusForbidden,
		residency.ErrProfileNotFound:     http.StatusNotFound,
		residency.ErrInvalidRole:         http.StatusBadRequest,
		board.ErrTaskNotFound:            http.StatusNotFound,
		suggestion.ErrSuggestionNotFound: http.StatusNotFound,
		suggestion.ErrClosed:             http.StatusConflict,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	translate := func(vErrs validator.ValidationErrors) map[string]string {
		fldErrs := make(map[string]string, len(vErrs))
		for _, vErr := range vErrs {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return fldErrs
	}

	serverError := func(err error, ctx echo.Context) (int, interface{}) {
		msg := http.StatusText(http.StatusInternalServerError)
		args := []interface{}{errors.Wrap(err, msg)}
		if prof, pErr := getContextProfile(ctx); pErr == nil {
			args = append(args, prof)
		}
		logger.Error(msg, args...)
		return http.StatusInternalServerError, msg
	}

	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = translate(origErr)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *residency.Error:
			code, message = residencyErrorResponse(origErr, translate)
			if code == http.StatusInternalServerError {
				code, message = serverError(err, ctx)
			} else if code == errSignupNotCompleted.Code {
				logger.Warn(origErr.Error(), origErr)
			}
		default:
			if status, ok := sentinelStatus(origErr); ok {
				code = status
				message = origErr.Error()
				break
			}
			// any other error is a server error
			code, message = serverError(err, ctx)
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// residencyErrorResponse maps signup and login failures by kind. A 500 code means the failure is
// unexpected and must be logged.
func residencyErrorResponse(e *residency.Error, translate func(validator.ValidationErrors) map[string]string) (int, interface{}) {
	switch e.Kind {
	case residency.KindValidation:
		var vErrs validator.ValidationErrors
		if errors.As(e.Err, &vErrs) {
			return http.StatusBadRequest, translate(vErrs)
		}
		return http.StatusBadRequest, errors.Cause(e.Err).Error()
	case residency.KindCapacity:
		return http.StatusConflict, residency.ErrApartmentFull.Error()
	case residency.KindIdentity:
		switch {
		case errors.Is(e.Err, identity.ErrInvalidCredential):
			return errInvalidCredentials.Code, errInvalidCredentials.Message
		case errors.Is(e.Err, identity.ErrEmailExists):
			return http.StatusConflict, identity.ErrEmailExists.Error()
		case errors.Is(e.Err, identity.ErrWeakSecret), errors.Is(e.Err, identity.ErrInvalidEmail):
			return http.StatusBadRequest, errors.Cause(e.Err).Error()
		case errors.Is(e.Err, identity.ErrNoSession):
			return errSignupNotCompleted.Code, errSignupNotCompleted.Message
		}
		if errors.Is(e.Err, context.DeadlineExceeded) {
			return errSignupNotCompleted.Code, errSignupNotCompleted.Message
		}
	}
	return http.StatusInternalServerError, nil
}

func sentinelStatus(err error) (int, bool) {
	for sentinel, status := range statusOf {
		if err == sentinel {
			return status, true
		}
	}
	return 0, false
}
