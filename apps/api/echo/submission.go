package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core/submission"
)

// multipart fields
const (
	filesField = "files"
	fileField  = "file"
)

type submissionApi struct {
	svc      submission.Service
	validate *validator.Validate
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc submission.Service, validate *validator.Validate) {
	api := submissionApi{svc: svc, validate: validate}

	g.POST("/formats/:id/submissions", api.upload, jwt)
	g.GET("/progress", api.progress, jwt)

	sg := g.Group("/submissions", jwt)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.POST("/:id/review", api.review, adminOnly())
	sg.POST("/:id/resubmit", api.resubmit)
}

func (api *submissionApi) upload(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	files, err := bindFiles(ctx, filesField)
	if err != nil {
		return errors.Wrap(err, "binding files")
	}

	subs, err := api.svc.UploadBatch(ctx.Request().Context(), scope, ctx.Param("id"), files)
	if err != nil {
		return errors.Wrap(err, "uploading batch")
	}
	return ctx.JSON(http.StatusCreated, subs)
}

func (api *submissionApi) resubmit(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	files, err := bindFiles(ctx, fileField)
	if err != nil {
		return errors.Wrap(err, "binding file")
	}

	sub, err := api.svc.Resubmit(ctx.Request().Context(), scope, ctx.Param("id"), files[0])
	if err != nil {
		return errors.Wrap(err, "resubmitting")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *submissionApi) query(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	filter := &submission.QueryFilter{
		GymID:    ctx.QueryParam("gym_id"),
		FormatID: ctx.QueryParam("format_id"),
		Status:   ctx.QueryParam("status"),
	}
	if b := boolParam(ctx, "include_superseded"); b != nil {
		filter.IncludeSuperseded = *b
	}

	subs, err := api.svc.Query(ctx.Request().Context(), scope, filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.Get(ctx.Request().Context(), scope, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) review(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	var data submission.ReviewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Review(ctx.Request().Context(), scope, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) progress(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	progress, err := api.svc.Progress(ctx.Request().Context(), scope, ctx.QueryParam("gym_id"))
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}
	if progress == nil {
		progress = []submission.FormatProgress{}
	}
	return ctx.JSON(http.StatusOK, progress)
}
