package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/student"
	"github.com/trezcool/hocba/core/transcript"
)

type transcriptRepository struct {
	db *sqlx.DB
}

var _ transcript.Repository = (*transcriptRepository)(nil) // interface compliance check

func NewTranscriptRepository(db *sqlx.DB) *transcriptRepository {
	return &transcriptRepository{db: db}
}

type finalGradeRow struct {
	StudentID string       `db:"student_id"`
	CourseID  string       `db:"course_id"`
	Grade4    null.Float64 `db:"grade4"`
	Credits   null.Float64 `db:"credits"` // NULL for a missing course
}

func (repo transcriptRepository) QueryFinalGrades(ctx context.Context, classID string, exec ...core.DBExecutor) ([]transcript.FinalGrade, error) {
	query := `
		SELECT t.student_id, t.course_id, t.grade4, c.credits
		FROM transcript t
		LEFT JOIN course c ON c.id = t.course_id`
	var args []interface{}
	if classID != "" {
		query += " JOIN student s ON s.id = t.student_id AND s.class_id = $1"
		args = append(args, classID)
	}
	query += " WHERE t.is_final"

	var rows []finalGradeRow
	if err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying final grades")
	}

	grades := make([]transcript.FinalGrade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, transcript.FinalGrade{
			StudentID: r.StudentID,
			CourseID:  r.CourseID,
			Grade4:    r.Grade4.Ptr(),
			Credits:   r.Credits.Ptr(),
		})
	}
	return grades, nil
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) QueryExportRows(ctx context.Context, exec ...core.DBExecutor) ([]student.ExportRow, error) {
	var rows []struct {
		StudentID string `db:"student_id"`
		Name      string `db:"name"`
		ClassName string `db:"class_name"`
		MajorName string `db:"major_name"`
	}
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, `
		SELECT s.id AS student_id, s.name, COALESCE(c.name, '') AS class_name, COALESCE(m.name, '') AS major_name
		FROM student s
		LEFT JOIN class c ON c.id = s.class_id
		LEFT JOIN major m ON m.id = c.major_id
		ORDER BY s.id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	export := make([]student.ExportRow, 0, len(rows))
	for _, r := range rows {
		export = append(export, student.ExportRow{StudentID: r.StudentID, Name: r.Name, Class: r.ClassName, Major: r.MajorName})
	}
	return export, nil
}

func (repo studentRepository) QueryClasses(ctx context.Context, exec ...core.DBExecutor) ([]student.Class, error) {
	var rows []struct {
		ID      string      `db:"id"`
		Name    string      `db:"name"`
		MajorID null.String `db:"major_id"`
	}
	if err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, "SELECT id, name, major_id FROM class ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}

	classes := make([]student.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, student.Class{ID: r.ID, Name: r.Name, MajorID: r.MajorID.String})
	}
	return classes, nil
}

func (repo studentRepository) QueryMajors(ctx context.Context, exec ...core.DBExecutor) ([]student.Major, error) {
	var majors []student.Major
	if err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &majors, "SELECT id, name FROM major ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "querying majors")
	}
	return majors, nil
}
