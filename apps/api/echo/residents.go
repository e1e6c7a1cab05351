package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/identity"
	"github.com/iannini25/auxiliosindico-web/core/residency"
)

type residentApi struct {
	conf    *core.Config
	newAuth identity.Factory
	svc     *residency.Service
}

func registerResidentAPI(g *echo.Group, s *Server, authed []echo.MiddlewareFunc) {
	api := residentApi{
		conf:    s.deps.Conf,
		newAuth: s.deps.NewAuth,
		svc:     s.deps.ResidencySvc,
	}

	rg := g.Group("/residents")

	// un-authed endpoints
	// TODO: rate limit `/login`: with derived secrets, apartment numbers are easy to guess
	rg.POST("/signup", api.signup)
	rg.POST("/login", api.login)

	// authed endpoints
	ag := rg.Group("", authed...)
	ag.GET("/me", api.me)
	ag.GET("/apartments/:apt", api.apartment, moderatorMiddleware)
}

type AuthResponse struct {
	Token   string             `json:"token"`
	Profile *residency.Profile `json:"profile"`
}

// Handlers

func (api *residentApi) signup(ctx echo.Context) error {
	var data residency.NewResident
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResident")
	}

	// the identity client lives as long as the request: the session it holds is handed over as a token
	prof, err := api.svc.SignUp(ctx.Request().Context(), api.newAuth(), data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}

	token, err := GenerateToken(api.conf, GetSessionClaims(api.conf, identity.Session{AccountID: prof.ID, Email: prof.Email}))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, AuthResponse{Token: token, Profile: &prof})
}

func (api *residentApi) login(ctx echo.Context) error {
	var data residency.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}

	sess, err := api.svc.Login(ctx.Request().Context(), api.newAuth(), data)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	token, err := GenerateToken(api.conf, GetSessionClaims(api.conf, sess))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	resp := AuthResponse{Token: token}
	prof, err := api.svc.GetProfile(ctx.Request().Context(), sess.AccountID)
	switch {
	case err == nil:
		resp.Profile = &prof
	case !errors.Is(err, residency.ErrProfileNotFound):
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *residentApi) me(ctx echo.Context) error {
	prof, err := getContextProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *residentApi) apartment(ctx echo.Context) error {
	n, ok := residency.ParseApartment(ctx.Param("apt"))
	if !ok {
		return errHttpNotFound
	}
	apt, err := api.svc.GetApartment(ctx.Request().Context(), n)
	if err != nil {
		return errors.Wrap(err, "getting apartment")
	}
	return ctx.JSON(http.StatusOK, apt)
}
