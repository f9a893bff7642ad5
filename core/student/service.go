package student

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core"
)

// ExportHeader is the first line of a student CSV export.
var ExportHeader = []string{"student_id", "name", "class", "major"}

type (
	// ExportRow is a student with its class and major names ("" when unassigned).
	ExportRow struct {
		StudentID string `json:"student_id"`
		Name      string `json:"name"`
		Class     string `json:"class"`
		Major     string `json:"major"`
	}

	Class struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		MajorID string `json:"major_id,omitempty"`
	}

	Major struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Repository interface {
		// QueryExportRows returns every student ordered by ID.
		QueryExportRows(ctx context.Context, exec ...core.DBExecutor) ([]ExportRow, error)
		// QueryClasses and QueryMajors are ordered by name.
		QueryClasses(ctx context.Context, exec ...core.DBExecutor) ([]Class, error)
		QueryMajors(ctx context.Context, exec ...core.DBExecutor) ([]Major, error)
	}

	ServiceInterface interface {
		ExportCSV(ctx context.Context, w io.Writer) error
		ListClasses(ctx context.Context) ([]Class, error)
		ListMajors(ctx context.Context) ([]Major, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ExportCSV writes ExportHeader followed by one record per student.
func (svc *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	rows, err := svc.repo.QueryExportRows(ctx)
	if err != nil {
		return core.NewPersistenceFailure("querying students", err)
	}

	cw := csv.NewWriter(w)
	if err = cw.Write(ExportHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, r := range rows {
		if err = cw.Write([]string{r.StudentID, r.Name, r.Class, r.Major}); err != nil {
			return errors.Wrap(err, "writing csv record")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

func (svc *Service) ListClasses(ctx context.Context) ([]Class, error) {
	classes, err := svc.repo.QueryClasses(ctx)
	if err != nil {
		return nil, core.NewPersistenceFailure("querying classes", err)
	}
	if classes == nil {
		classes = []Class{}
	}
	return classes, nil
}

func (svc *Service) ListMajors(ctx context.Context) ([]Major, error) {
	majors, err := svc.repo.QueryMajors(ctx)
	if err != nil {
		return nil, core.NewPersistenceFailure("querying majors", err)
	}
	if majors == nil {
		majors = []Major{}
	}
	return majors, nil
}
