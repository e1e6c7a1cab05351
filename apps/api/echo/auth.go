package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/identity"
	"github.com/iannini25/auxiliosindico-web/core/residency"
)

var (
	contextTokenKey   = "residentToken"
	contextProfileKey = "profile"

	NowFunc = time.Now // mockable
)

// Claims represents the authorization claims transmitted via a JWT. Roles are not part of them:
// they are read from the resident profile on every request.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func GetSessionClaims(conf *core.Config, sess identity.Session) *Claims {
	now := NowFunc()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   sess.AccountID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: sess.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the resident Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	jwtConf := newJWTConfig(conf)
	token := jwt.NewWithClaims(jwt.GetSigningMethod(jwtConf.SigningMethod), claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextProfile returns the profile loaded by profileMiddleware.
func getContextProfile(ctx echo.Context) (residency.Profile, error) {
	if prof, ok := ctx.Get(contextProfileKey).(residency.Profile); ok {
		return prof, nil
	}
	return residency.Profile{}, errUnauthorized
}
