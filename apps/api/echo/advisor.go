package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core/advisor"
)

type advisorApi struct {
	svc advisor.ServiceInterface
}

func registerAdvisorAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc advisor.ServiceInterface) {
	api := advisorApi{svc: svc}

	ag := g.Group("/advisor", jwt)
	ag.POST("/chat", api.chat)
	ag.POST("/gemini", api.chat)
}

func (api *advisorApi) chat(ctx echo.Context) error {
	var data advisor.ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}
	resp, err := api.svc.Chat(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "chatting with advisor")
	}
	return ctx.JSON(http.StatusOK, resp)
}
