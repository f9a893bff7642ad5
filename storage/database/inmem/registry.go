package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/student"
	"github.com/trezcool/hocba/core/transcript"
)

type (
	// Student, Course and Transcript are registry rows written by the importers.
	Student struct {
		ID      string
		Name    string
		ClassID string
	}

	Course struct {
		ID      string
		Name    string
		Credits *float64
	}

	Transcript struct {
		StudentID string
		CourseID  string
		Semester  string
		Grade4    *float64
		IsFinal   bool
	}

	registryTables struct {
		sync.RWMutex
		majors      map[string]student.Major
		classes     map[string]student.Class
		students    map[string]Student
		courses     map[string]Course
		transcripts []Transcript
	}
)

func newRegistryTables() *registryTables {
	return &registryTables{
		majors:   make(map[string]student.Major),
		classes:  make(map[string]student.Class),
		students: make(map[string]Student),
		courses:  make(map[string]Course),
	}
}

func (db *DB) AddMajor(m student.Major) {
	db.registry.Lock()
	defer db.registry.Unlock()
	db.registry.majors[m.ID] = m
}

func (db *DB) AddClass(c student.Class) {
	db.registry.Lock()
	defer db.registry.Unlock()
	db.registry.classes[c.ID] = c
}

func (db *DB) AddStudent(s Student) {
	db.registry.Lock()
	defer db.registry.Unlock()
	db.registry.students[s.ID] = s
}

func (db *DB) AddCourse(c Course) {
	db.registry.Lock()
	defer db.registry.Unlock()
	db.registry.courses[c.ID] = c
}

func (db *DB) AddTranscript(t Transcript) {
	db.registry.Lock()
	defer db.registry.Unlock()
	db.registry.transcripts = append(db.registry.transcripts, t)
}

type transcriptRepository struct {
	db *registryTables
}

var _ transcript.Repository = (*transcriptRepository)(nil) // interface compliance check

func NewTranscriptRepository(db *DB) *transcriptRepository {
	return &transcriptRepository{db: db.registry}
}

func (repo *transcriptRepository) QueryFinalGrades(_ context.Context, classID string, _ ...core.DBExecutor) ([]transcript.FinalGrade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	grades := make([]transcript.FinalGrade, 0, len(repo.db.transcripts))
	for _, t := range repo.db.transcripts {
		if !t.IsFinal {
			continue
		}
		if classID != "" {
			if s, ok := repo.db.students[t.StudentID]; !ok || s.ClassID != classID {
				continue
			}
		}
		g := transcript.FinalGrade{StudentID: t.StudentID, CourseID: t.CourseID, Grade4: t.Grade4}
		if c, ok := repo.db.courses[t.CourseID]; ok {
			g.Credits = c.Credits
		}
		grades = append(grades, g)
	}
	return grades, nil
}

type studentRepository struct {
	db *registryTables
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.registry}
}

func (repo *studentRepository) QueryExportRows(_ context.Context, _ ...core.DBExecutor) ([]student.ExportRow, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]student.ExportRow, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		row := student.ExportRow{StudentID: s.ID, Name: s.Name}
		if c, ok := repo.db.classes[s.ClassID]; ok {
			row.Class = c.Name
			if m, ok := repo.db.majors[c.MajorID]; ok {
				row.Major = m.Name
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StudentID < rows[j].StudentID })
	return rows, nil
}

func (repo *studentRepository) QueryClasses(_ context.Context, _ ...core.DBExecutor) ([]student.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]student.Class, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *studentRepository) QueryMajors(_ context.Context, _ ...core.DBExecutor) ([]student.Major, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	majors := make([]student.Major, 0, len(repo.db.majors))
	for _, m := range repo.db.majors {
		majors = append(majors, m)
	}
	sort.Slice(majors, func(i, j int) bool { return majors[i].Name < majors[j].Name })
	return majors, nil
}
