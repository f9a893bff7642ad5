package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/student"
)

const exportFilename = "students.csv"

type registryApi struct {
	students student.ServiceInterface
	audit    audit.ServiceInterface
}

func registerRegistryAPI(g *echo.Group, students student.ServiceInterface, auditSvc audit.ServiceInterface) {
	api := registryApi{students: students, audit: auditSvc}

	g.GET("/classes", api.queryClasses)
	g.GET("/majors", api.queryMajors)
	g.GET("/export/"+exportFilename, api.exportStudents)
	g.GET("/import/logs", api.queryImportLogs)
}

func (api *registryApi) queryClasses(ctx echo.Context) error {
	classes, err := api.students.ListClasses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *registryApi) queryMajors(ctx echo.Context) error {
	majors, err := api.students.ListMajors(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing majors")
	}
	return ctx.JSON(http.StatusOK, majors)
}

func (api *registryApi) exportStudents(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := api.students.ExportCSV(ctx.Request().Context(), &buf); err != nil {
		return errors.Wrap(err, "exporting students")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exportFilename+`"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (api *registryApi) queryImportLogs(ctx echo.Context) error {
	entries, err := api.audit.Recent(ctx.Request().Context(), audit.MaxRecent)
	if err != nil {
		return errors.Wrap(err, "listing audit entries")
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}
