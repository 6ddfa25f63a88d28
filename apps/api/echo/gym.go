package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core/gym"
)

type gymApi struct {
	svc      gym.Service
	validate *validator.Validate
}

func registerGymAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc gym.Service, validate *validator.Validate) {
	api := gymApi{svc: svc, validate: validate}

	gg := g.Group("/gyms", jwt)
	gg.GET("", api.query, adminOnly())
	gg.POST("", api.create, adminOnly())
	gg.GET("/me", api.me)
	gg.GET("/:id", api.retrieve)
}

func (api *gymApi) query(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	filter := &gym.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Role:     ctx.QueryParam("role"),
		IsActive: boolParam(ctx, "is_active"),
	}
	filter.Clean()

	gyms, err := api.svc.Query(ctx.Request().Context(), scope, filter)
	if err != nil {
		return errors.Wrap(err, "querying gyms")
	}
	if gyms == nil {
		gyms = []gym.Gym{}
	}
	return ctx.JSON(http.StatusOK, gyms)
}

func (api *gymApi) create(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	var data gym.NewGym
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGym")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	g, err := api.svc.Create(ctx.Request().Context(), scope, data)
	if err != nil {
		return errors.Wrap(err, "creating gym")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *gymApi) me(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	g, err := api.svc.Get(ctx.Request().Context(), scope, scope.GymID)
	if err != nil {
		return errors.Wrap(err, "finding context gym")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gymApi) retrieve(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	g, err := api.svc.Get(ctx.Request().Context(), scope, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding gym")
	}
	return ctx.JSON(http.StatusOK, g)
}
