package testutil

import (
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/setting"
	"github.com/trezcool/hocba/core/student"
	"github.com/trezcool/hocba/core/transcript"
	"github.com/trezcool/hocba/core/user"
	"github.com/trezcool/hocba/core/warning"
	inmemdb "github.com/trezcool/hocba/storage/database/inmem"
)

// App wires every service on top of an in-memory database.
type App struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Logger     *Logger
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo user.Repository
	Users    *user.Service
	Audit    *audit.Service
	Settings *setting.Service
	Warning  *warning.Service
	Students *student.Service
}

func NewApp(t *testing.T, conf ...*core.Config) *App {
	t.Helper()

	app := &App{Conf: core.NewTestConfig(), DB: inmemdb.Open(), Logger: &Logger{}}
	if len(conf) > 0 {
		app.Conf = conf[0]
	}
	app.Validate, app.Translator = NewValidator()

	app.UserRepo = inmemdb.NewUserRepository(app.DB)
	app.Users = user.NewService(app.UserRepo, app.Validate)
	app.Audit = audit.NewService(inmemdb.NewAuditRepository(app.DB), app.Logger)
	app.Settings = setting.NewService(inmemdb.NewSettingRepository(app.DB), app.Audit, app.Logger, app.Conf)
	app.Students = student.NewService(inmemdb.NewStudentRepository(app.DB))
	app.Warning = warning.NewService(warning.Deps{
		Tx:         app.DB,
		Rules:      inmemdb.NewRuleRepository(app.DB),
		Cases:      inmemdb.NewCaseRepository(app.DB),
		Metrics:    transcript.NewAggregator(inmemdb.NewTranscriptRepository(app.DB)),
		Thresholds: app.Settings,
		Auditor:    app.Audit,
		Validate:   app.Validate,
		Conf:       app.Conf.Warning,
	})
	return app
}

// Grade is one final transcript row of a seeded student.
type Grade struct {
	Course  string
	Credits *float64
	Grade4  *float64
}

// AddStudent registers a student in classID with its final grades.
// Each grade also (re)defines its course with the grade credits.
func (app *App) AddStudent(id, classID string, grades ...Grade) {
	app.DB.AddStudent(inmemdb.Student{ID: id, Name: "Student " + id, ClassID: classID})
	for _, g := range grades {
		app.DB.AddCourse(inmemdb.Course{ID: g.Course, Name: g.Course, Credits: g.Credits})
		app.DB.AddTranscript(inmemdb.Transcript{
			StudentID: id,
			CourseID:  g.Course,
			Semester:  "2024-1",
			Grade4:    g.Grade4,
			IsFinal:   true,
		})
	}
}
