package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core/performance"
)

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc performance.Service) {
	g.GET("/dashboard/performance", func(ctx echo.Context) error {
		scope, err := getContextScope(ctx)
		if err != nil {
			return err
		}
		rows, err := svc.Dashboard(ctx.Request().Context(), scope)
		if err != nil {
			return errors.Wrap(err, "building performance dashboard")
		}
		return ctx.JSON(http.StatusOK, rows)
	}, jwt, adminOnly())
}
