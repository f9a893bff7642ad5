package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core/setting"
)

type settingApi struct {
	svc setting.ServiceInterface
}

func registerSettingAPI(g *echo.Group, svc setting.ServiceInterface) {
	api := settingApi{svc: svc}

	g.GET("/configs", api.query)
	g.PUT("/configs", api.update)
}

func (api *settingApi) query(ctx echo.Context) error {
	listing, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing settings")
	}
	return ctx.JSON(http.StatusOK, listing)
}

// update accepts {KEY: value}; unknown keys are ignored.
func (api *settingApi) update(ctx echo.Context) error {
	var data map[string]string
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to settings")
	}
	changed, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, UpdatedSettingsResponse{Msg: okResponse.Msg, Updated: changed})
}

type UpdatedSettingsResponse struct {
	Msg     string            `json:"msg"`
	Updated map[string]string `json:"updated"`
}
