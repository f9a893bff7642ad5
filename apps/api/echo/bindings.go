package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/warning"
)

const (
	pageParam      = "page"
	sizeParam      = "size"
	statusParam    = "status"
	studentIDParam = "student_id"
	statusAll      = "all"
)

func queryInt(ctx echo.Context, name string) (int, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " must be an integer"})
	}
	return i, nil
}

// queryFloat returns nil when the parameter is absent or blank.
func queryFloat(ctx echo.Context, name string) (*float64, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " must be a number"})
	}
	return &f, nil
}

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

// bindPagination reads `page` and `size`; core.NewPagination clamps them.
func bindPagination(ctx echo.Context) (core.Pagination, error) {
	page, err := queryInt(ctx, pageParam)
	if err != nil {
		return core.Pagination{}, err
	}
	size, err := queryInt(ctx, sizeParam)
	if err != nil {
		return core.Pagination{}, err
	}
	return core.NewPagination(page, size), nil
}

// bindCaseFilter maps an absent `status` to the default (open) and `status=` or `status=all` to every status.
func bindCaseFilter(ctx echo.Context) warning.CaseFilter {
	filter := warning.CaseFilter{StudentID: ctx.QueryParam(studentIDParam)}
	if vals, ok := ctx.QueryParams()[statusParam]; ok {
		status := ""
		if len(vals) > 0 {
			status = strings.TrimSpace(vals[0])
		}
		if strings.EqualFold(status, statusAll) {
			status = ""
		}
		filter.Status = warning.StatusFilter(status)
	}
	return filter
}
