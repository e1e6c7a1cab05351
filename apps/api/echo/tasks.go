package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core/board"
)

type taskApi struct {
	svc *board.Service
}

func registerTaskAPI(g *echo.Group, svc *board.Service, authed []echo.MiddlewareFunc) {
	api := taskApi{svc: svc}

	tg := g.Group("/tasks", authed...)
	tg.GET("", api.listOpen)
	tg.POST("", api.create, moderatorMiddleware)
	tg.GET("/done", api.listDone)

	// detail endpoints
	tg.GET("/:id", api.retrieve)
	tg.DELETE("/:id", api.destroy, moderatorMiddleware)
	tg.POST("/:id/doing", api.markDoing, moderatorMiddleware)
	tg.POST("/:id/done", api.markDone, moderatorMiddleware)
	tg.GET("/:id/comments", api.listComments)
	tg.POST("/:id/comments", api.addComment)
}

// Handlers

func (api *taskApi) listOpen(ctx echo.Context) error {
	tasks, err := api.svc.ListOpen(ctx.Request().Context(), ctx.QueryParam("filter"))
	if err != nil {
		return errors.Wrap(err, "listing open tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) listDone(ctx echo.Context) error {
	tasks, err := api.svc.ListDone(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing done tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) create(ctx echo.Context) error {
	var data board.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	task, err := api.svc.Create(ctx.Request().Context(), prof, data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, task)
}

func (api *taskApi) retrieve(ctx echo.Context) error {
	task, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting task")
	}
	return ctx.JSON(http.StatusOK, task)
}

func (api *taskApi) destroy(ctx echo.Context) error {
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if err = api.svc.Delete(ctx.Request().Context(), prof, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *taskApi) markDoing(ctx echo.Context) error {
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	task, err := api.svc.MarkDoing(ctx.Request().Context(), prof, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking task as doing")
	}
	return ctx.JSON(http.StatusOK, task)
}

func (api *taskApi) markDone(ctx echo.Context) error {
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	task, err := api.svc.MarkDone(ctx.Request().Context(), prof, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking task as done")
	}
	return ctx.JSON(http.StatusOK, task)
}

func (api *taskApi) listComments(ctx echo.Context) error {
	comments, err := api.svc.ListComments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing comments")
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *taskApi) addComment(ctx echo.Context) error {
	var data board.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	comment, err := api.svc.AddComment(ctx.Request().Context(), prof, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	return ctx.JSON(http.StatusCreated, comment)
}
