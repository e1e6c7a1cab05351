package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core/complaint"
)

type complaintApi struct {
	svc *complaint.Service
}

func registerComplaintAPI(g *echo.Group, svc *complaint.Service, authed []echo.MiddlewareFunc) {
	api := complaintApi{svc: svc}

	cg := g.Group("/complaints", authed...)
	cg.GET("", api.list, moderatorMiddleware)
	cg.POST("", api.submit)
}

// Handlers

func (api *complaintApi) list(ctx echo.Context) error {
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	list, err := api.svc.List(ctx.Request().Context(), prof)
	if err != nil {
		return errors.Wrap(err, "listing complaints")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *complaintApi) submit(ctx echo.Context) error {
	var data complaint.NewComplaint
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComplaint")
	}
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	c, err := api.svc.Submit(ctx.Request().Context(), prof, data)
	if err != nil {
		return errors.Wrap(err, "submitting complaint")
	}
	return ctx.JSON(http.StatusCreated, c)
}
