package echoapi

import (
	"github.com/labstack/echo/v4"
)

// adminOnly lets through requests whose token carries the admin scope.
func adminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			scope, err := getContextScope(ctx)
			if err != nil {
				return err
			}
			if scope.RequireAdmin() != nil {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
