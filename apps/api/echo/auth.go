package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/gym"
)

const contextTokenKey = "gymToken"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	GymID        string `json:"gym_id"`
	GymName      string `json:"gym_name,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
}

// Scope is the tenant scope requests carrying these claims act in.
func (c Claims) Scope() core.Scope {
	return core.Scope{GymID: c.GymID, Admin: c.IsAdmin}
}

func GetGymClaims(g gym.Gym, conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   g.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		GymID:        g.ID,
		GymName:      g.Name,
		IsAdmin:      g.IsAdmin(),
	}
}

// GenerateToken generates a signed JWT token string representing the gym Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf *core.Config
	gyms gym.Service
}

func newAuthenticator(conf *core.Config, gyms gym.Service) *authenticator {
	return &authenticator{conf: conf, gyms: gyms}
}

func (a *authenticator) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(a.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func (a *authenticator) login(ctx context.Context, pin, origin string) (string, error) {
	g, err := a.gyms.Authenticate(ctx, pin, origin)
	if err != nil {
		if errors.Cause(err) == gym.ErrNotFound {
			return "", errAuthenticationFailed
		}
		return "", errors.Wrap(err, "authenticating gym")
	}
	return GenerateToken(GetGymClaims(g, a.conf), a.conf.SecretKey)
}

func (a *authenticator) refresh(ctx context.Context, claims Claims) (string, error) {
	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	// check if gym is still active
	g, err := a.gyms.Get(ctx, claims.Scope(), claims.GymID)
	if err != nil {
		if core.KindOf(err) == core.KindNotFound {
			return "", errAccountDeactivated
		}
		return "", errors.Wrap(err, "finding gym")
	}
	if !g.IsActive {
		return "", errAccountDeactivated
	}
	return GenerateToken(GetGymClaims(g, a.conf, claims.OrigIssuedAt), a.conf.SecretKey)
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok && claims.GymID != "" {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextScope(ctx echo.Context) (core.Scope, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Scope{}, err
	}
	return claims.Scope(), nil
}

type (
	LoginResponse struct {
		Token string `json:"token"`
	}

	authApi struct {
		auth     *authenticator
		validate *validator.Validate
	}
)

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, validate *validator.Validate) {
	api := authApi{auth: auth, validate: validate}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

func (api *authApi) login(ctx echo.Context) error {
	var data gym.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	token, err := api.auth.login(ctx.Request().Context(), data.PIN, ctx.RealIP())
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	token, err := api.auth.refresh(ctx.Request().Context(), claims)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}
