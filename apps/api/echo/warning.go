package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core/warning"
)

type warningApi struct {
	svc warning.ServiceInterface
}

func registerWarningAPI(g *echo.Group, svc warning.ServiceInterface) {
	api := warningApi{svc: svc}

	wg := g.Group("/warning")
	wg.POST("/scan", api.scan)

	wg.GET("/cases", api.queryCases)
	wg.PUT("/cases/:id/close", api.closeCase)

	wg.GET("/rules", api.queryRules)
	wg.POST("/rules", api.createRule)
	wg.PUT("/rules/:id", api.updateRule)
	wg.DELETE("/rules/:id", api.destroyRule)
}

// Handlers

func (api *warningApi) scan(ctx echo.Context) error {
	var (
		req warning.ScanRequest
		err error
	)
	req.ClassID = ctx.QueryParam("class_id")
	if req.GPAThreshold, err = queryFloat(ctx, "gpa_threshold"); err != nil {
		return err
	}
	if req.DebtThreshold, err = queryFloat(ctx, "debt_threshold"); err != nil {
		return err
	}

	res, err := api.svc.Scan(ctx.Request().Context(), req)
	if err != nil {
		return errors.Wrap(err, "scanning")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *warningApi) queryCases(ctx echo.Context) error {
	page, err := bindPagination(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.ListCases(ctx.Request().Context(), bindCaseFilter(ctx), page)
	if err != nil {
		return errors.Wrap(err, "listing cases")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *warningApi) closeCase(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.CloseCase(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "closing case")
	}
	return ctx.JSON(http.StatusOK, okResponse)
}

func (api *warningApi) queryRules(ctx echo.Context) error {
	rules, err := api.svc.ListRules(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing rules")
	}
	return ctx.JSON(http.StatusOK, rules)
}

func (api *warningApi) createRule(ctx echo.Context) error {
	var data warning.NewRule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRule")
	}
	rule, err := api.svc.CreateRule(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating rule")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: rule.ID})
}

func (api *warningApi) updateRule(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data warning.UpdateRule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRule")
	}
	rule, err := api.svc.UpdateRule(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating rule")
	}
	return ctx.JSON(http.StatusOK, rule)
}

func (api *warningApi) destroyRule(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteRule(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting rule")
	}
	return ctx.JSON(http.StatusOK, okResponse)
}

type CreatedResponse struct {
	ID int `json:"id"`
}
