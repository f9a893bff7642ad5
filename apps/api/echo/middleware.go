package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core/audit"
)

// staffMiddleware lets admins and training officers through; roles further restricts them.
func staffMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsStaff() && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// auditMiddleware attaches the caller description to the request context for audit entries.
func auditMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		info := audit.RequestInfo{
			Endpoint:  req.Method + " " + ctx.Path(),
			RequestID: ctx.Response().Header().Get(echo.HeaderXRequestID),
			Params:    ctx.QueryString(),
		}
		if claims, err := getContextClaims(ctx); err == nil {
			info.Actor = claims.Username
		}
		ctx.SetRequest(req.WithContext(audit.WithRequestInfo(req.Context(), info)))
		return next(ctx)
	}
}
