package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/format"
)

type formatApi struct {
	svc      format.Service
	validate *validator.Validate
}

func registerFormatAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc format.Service, validate *validator.Validate) {
	api := formatApi{svc: svc, validate: validate}

	fg := g.Group("/formats", jwt)
	fg.GET("", api.query)
	fg.POST("", api.create, adminOnly())
	fg.POST("/seed", api.seed, adminOnly())
	fg.GET("/:id", api.retrieve)
	fg.PUT("/:id", api.update, adminOnly())
}

func (api *formatApi) query(ctx echo.Context) error {
	filter := &format.QueryFilter{
		Type: core.CleanString(ctx.QueryParam("type"), true /* lower */),
		Keys: core.CleanStrings(ctx.QueryParams()["key"], true /* lower */),
	}
	formats, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying formats")
	}
	if formats == nil {
		formats = []format.Format{}
	}
	return ctx.JSON(http.StatusOK, formats)
}

func (api *formatApi) create(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	var data format.NewFormat
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFormat")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Create(ctx.Request().Context(), scope, data)
	if err != nil {
		return errors.Wrap(err, "creating format")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *formatApi) seed(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.Seed(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "seeding formats")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"created": n})
}

func (api *formatApi) retrieve(ctx echo.Context) error {
	f, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding format")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *formatApi) update(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	var data format.UpdateFormat
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFormat")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Update(ctx.Request().Context(), scope, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating format")
	}
	return ctx.JSON(http.StatusOK, f)
}
