package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/core/submission"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "gym not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "gym deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errNoFiles              = echo.NewHTTPError(http.StatusBadRequest, "no files uploaded")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err, translator)

		switch code {
		case http.StatusServiceUnavailable:
			logger.Warn("upstream failure", logArgs(ctx, errors.Wrap(err, ctx.Path()))...)
		case http.StatusInternalServerError:
			msg := http.StatusText(http.StatusInternalServerError)
			logger.Error(msg, logArgs(ctx, errors.Wrap(err, msg))...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			if _, ok := message.(string); ok {
				message = err.Error()
			}
		}
		if m, ok := message.(string); ok {
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

// errorResponse maps err to a status code and a response body.
func errorResponse(err error, translator ut.Translator) (int, interface{}) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, origErr.Message
		}
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			origErr = herr
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs
	}

	if errors.Cause(err) == gym.ErrTooManyAttempts {
		return http.StatusTooManyRequests, gym.ErrTooManyAttempts.Error()
	}
	var batchErr *submission.BatchError
	if errors.As(err, &batchErr) {
		return http.StatusServiceUnavailable, echo.Map{"error": batchErr.Error(), "files": batchErr.Results}
	}

	switch core.KindOf(err) {
	case core.KindValidation:
		var vErr *core.ValidationError
		if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
			fldErrs := make(map[string]string, len(vErr.Fields))
			for _, fErr := range vErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, errors.Cause(err).Error()
	case core.KindNotFound:
		return http.StatusNotFound, errors.Cause(err).Error()
	case core.KindAuthorization:
		return http.StatusForbidden, errors.Cause(err).Error()
	case core.KindUpstream:
		return http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable)
	default: // any other error is a server error
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func logArgs(ctx echo.Context, err error) []interface{} {
	args := []interface{}{err, "path", ctx.Request().URL.Path}
	if claims, cErr := getContextClaims(ctx); cErr == nil {
		args = append(args, claims.Scope(), "gym_name", claims.GymName)
	}
	return args
}
