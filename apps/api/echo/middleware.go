package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core/residency"
)

// profileMiddleware loads the profile of the token's account, so that role changes apply to tokens
// issued before them.
func profileMiddleware(svc *residency.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			prof, err := svc.GetProfile(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, residency.ErrProfileNotFound) {
					return errNoProfile
				}
				return errors.Wrap(err, "getting context profile")
			}
			ctx.Set(contextProfileKey, prof)
			return next(ctx)
		}
	}
}

func moderatorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		prof, err := getContextProfile(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context profile")
		}
		if prof.IsModerator() {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
