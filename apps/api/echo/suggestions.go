package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core/suggestion"
)

type suggestionApi struct {
	svc *suggestion.Service
}

func registerSuggestionAPI(g *echo.Group, svc *suggestion.Service, authed []echo.MiddlewareFunc) {
	api := suggestionApi{svc: svc}

	sg := g.Group("/suggestions", authed...)
	sg.GET("", api.listVisible)
	sg.POST("", api.submit)
	sg.GET("/pending", api.listPending, moderatorMiddleware)
	sg.PUT("/:id/vote", api.vote)
	sg.POST("/:id/decision", api.decide, moderatorMiddleware)
}

type (
	VoteRequest struct {
		Value string `json:"value"`
	}

	VoteResponse struct {
		Vote string `json:"vote"` // empty once withdrawn
	}

	DecisionRequest struct {
		Decision string `json:"decision"`
	}
)

// Handlers

func (api *suggestionApi) listVisible(ctx echo.Context) error {
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	list, err := api.svc.ListVisible(ctx.Request().Context(), prof)
	if err != nil {
		return errors.Wrap(err, "listing suggestions")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *suggestionApi) submit(ctx echo.Context) error {
	var data suggestion.NewSuggestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSuggestion")
	}
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	s, err := api.svc.Submit(ctx.Request().Context(), prof, data)
	if err != nil {
		return errors.Wrap(err, "submitting suggestion")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *suggestionApi) vote(ctx echo.Context) error {
	var data VoteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VoteRequest")
	}
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	current, err := api.svc.Vote(ctx.Request().Context(), prof, ctx.Param("id"), data.Value)
	if err != nil {
		return errors.Wrap(err, "voting")
	}
	return ctx.JSON(http.StatusOK, VoteResponse{Vote: current})
}

func (api *suggestionApi) listPending(ctx echo.Context) error {
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	list, err := api.svc.ListPending(ctx.Request().Context(), prof)
	if err != nil {
		return errors.Wrap(err, "listing pending suggestions")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *suggestionApi) decide(ctx echo.Context) error {
	var data DecisionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DecisionRequest")
	}
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	s, err := api.svc.Decide(ctx.Request().Context(), prof, ctx.Param("id"), data.Decision)
	if err != nil {
		return errors.Wrap(err, "deciding suggestion")
	}
	return ctx.JSON(http.StatusOK, s)
}
