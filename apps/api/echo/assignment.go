package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core/assignment"
)

type (
	AssignmentResponse struct {
		Template      assignment.Template `json:"template"`
		Distributions []assignment.View   `json:"distributions"`
	}

	assignmentApi struct {
		svc      assignment.Service
		validate *validator.Validate
	}
)

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc assignment.Service, validate *validator.Validate) {
	api := assignmentApi{svc: svc, validate: validate}

	g.POST("/assignments", api.create, jwt, adminOnly())

	dg := g.Group("/distributions", jwt)
	dg.GET("", api.query)
	dg.GET("/:id", api.retrieve)

	// gym actions
	dg.POST("/:id/acknowledge", api.act(assignment.EventAcknowledge))
	dg.POST("/:id/start", api.act(assignment.EventStart))
	dg.POST("/:id/submit", api.act(assignment.EventSubmit))
	dg.POST("/:id/resume", api.act(assignment.EventResume))

	// admin actions
	dg.POST("/:id/begin-review", api.act(assignment.EventBeginReview), adminOnly())
	dg.POST("/:id/review", api.review, adminOnly())
	dg.PUT("/:id/due-date", api.extendDueDate, adminOnly())
}

func (api *assignmentApi) create(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	var data assignment.NewAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}

	tmpl, views, err := api.svc.Create(ctx.Request().Context(), scope, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, AssignmentResponse{Template: tmpl, Distributions: views})
}

func (api *assignmentApi) query(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	filter := &assignment.QueryFilter{
		Status:     ctx.QueryParam("status"),
		GymID:      ctx.QueryParam("gym_id"),
		TemplateID: ctx.QueryParam("template_id"),
		Overdue:    boolParam(ctx, "overdue"),
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	views, err := api.svc.Query(ctx.Request().Context(), scope, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying distributions")
	}
	if views == nil {
		views = []assignment.View{}
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	v, err := api.svc.Get(ctx.Request().Context(), scope, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding distribution")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *assignmentApi) act(event assignment.Event) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		scope, err := getContextScope(ctx)
		if err != nil {
			return err
		}
		v, err := api.svc.Act(ctx.Request().Context(), scope, ctx.Param("id"), event)
		if err != nil {
			return errors.Wrapf(err, "applying %s", event)
		}
		return ctx.JSON(http.StatusOK, v)
	}
}

func (api *assignmentApi) review(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	var data assignment.ReviewDistribution
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewDistribution")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Review(ctx.Request().Context(), scope, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing distribution")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *assignmentApi) extendDueDate(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	var data assignment.ExtendDueDate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExtendDueDate")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.ExtendDueDate(ctx.Request().Context(), scope, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "extending due date")
	}
	return ctx.JSON(http.StatusOK, v)
}
