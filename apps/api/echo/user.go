package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/user"
)

type userApi struct {
	conf     *core.Config
	svc      user.ServiceInterface
	auditor  audit.Recorder
	validate *validator.Validate
}

func registerUserAPI(
	root *echo.Echo,
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	conf *core.Config,
	svc user.ServiceInterface,
	auditor audit.Recorder,
	validate *validator.Validate,
) {
	api := userApi{
		conf:     conf,
		svc:      svc,
		auditor:  auditor,
		validate: validate,
	}

	// un-authed endpoints
	root.POST("/login", api.login)
	ag := g.Group("/auth")
	ag.POST("/login", api.login)

	// authed endpoints
	ag.GET("/me", api.me, jwt)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), api.conf, data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	role := user.User{Roles: claims.Roles}.MainRole()
	reqCtx := audit.WithRequestInfo(ctx.Request().Context(), audit.RequestInfo{
		Actor:     claims.Username,
		Endpoint:  ctx.Request().Method + " " + ctx.Path(),
		RequestID: ctx.Response().Header().Get(echo.HeaderXRequestID),
	})
	api.auditor.Record(reqCtx, "auth.login", map[string]string{"username": claims.Username, "role": role}, "app_user")

	return ctx.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  &LoginUser{Username: claims.Username, Role: role},
	})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, MeResponse{User: usr, MainRole: usr.MainRole()})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// Requests & Responses

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string     `json:"token"`
		User  *LoginUser `json:"user,omitempty"`
	}

	LoginUser struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}

	MeResponse struct {
		user.User
		MainRole string `json:"main_role"`
	}

	SuccessResponse struct {
		Msg string `json:"msg"`
	}
)

var okResponse = SuccessResponse{Msg: "OK"}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
