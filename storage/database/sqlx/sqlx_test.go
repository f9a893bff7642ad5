package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/setting"
	"github.com/trezcool/hocba/core/transcript"
	"github.com/trezcool/hocba/core/user"
	"github.com/trezcool/hocba/core/warning"
	"github.com/trezcool/hocba/storage/database"
	sqlxrepos "github.com/trezcool/hocba/storage/database/sqlx"
	testutil "github.com/trezcool/hocba/tests"
)

func seedRegistry(t *testing.T, db *sqlx.DB) {
	t.Helper()

	db.MustExec(`INSERT INTO major (id, name) VALUES ('IT', 'Information Technology')`)
	db.MustExec(`INSERT INTO class (id, name, major_id) VALUES ('K65', 'K65 IT', 'IT'), ('K66', 'K66 IT', 'IT')`)
	db.MustExec(`INSERT INTO student (id, name, class_id) VALUES ('SV01', 'Nguyen An', 'K65'), ('SV02', 'Tran, Binh', 'K66')`)
	db.MustExec(`INSERT INTO course (id, name, credits) VALUES ('MATH1', 'Calculus', 3), ('PHYS1', 'Physics', 4), ('PE', 'Sports', NULL)`)
	db.MustExec(`INSERT INTO transcript (student_id, course_id, semester, grade4, is_final) VALUES
		('SV01', 'MATH1', '2024-1', 0.5, TRUE),
		('SV01', 'PHYS1', '2024-1', 2.0, TRUE),
		('SV01', 'PE', '2024-1', 4.0, TRUE),
		('SV01', 'MATH1', '2023-2', 0.0, FALSE),
		('SV02', 'MATH1', '2024-1', 3.5, TRUE),
		('SV02', 'GONE', '2024-1', 0.0, TRUE),
		('SV02', 'PHYS1', '2024-1', NULL, TRUE)`)
}

func TestTranscriptRepository_QueryFinalGrades(t *testing.T) {
	db := testutil.PrepareDB(t)
	seedRegistry(t, db)
	repo := sqlxrepos.NewTranscriptRepository(db)
	ctx := context.Background()

	grades, err := repo.QueryFinalGrades(ctx, "")
	require.NoError(t, err)
	assert.Len(t, grades, 6)

	grades, err = repo.QueryFinalGrades(ctx, "K65")
	require.NoError(t, err)
	require.Len(t, grades, 3)
	for _, g := range grades {
		assert.Equal(t, "SV01", g.StudentID)
		if g.CourseID == "PE" {
			assert.Nil(t, g.Credits)
		}
	}

	metrics, err := transcript.NewAggregator(repo).ComputeMetrics(ctx, "K65")
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.InDelta(t, (0.5*3+2.0*4)/7, metrics[0].WeightedGPA4, 1e-9)
	assert.Equal(t, 3.0, metrics[0].DebtCredits)
}

func TestRuleRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewRuleRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := warning.Rule{Code: "GPA_LT", Name: "GPA below threshold", Threshold: 2, Active: true, CreatedAt: now}
	first, err := repo.EnsureRule(ctx, seed)
	require.NoError(t, err)
	seed.Threshold = 3
	again, err := repo.EnsureRule(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 2.0, again.Threshold)

	_, err = repo.CreateRule(ctx, warning.Rule{Code: "GPA_LT", Name: "dup", CreatedAt: now})
	assert.Equal(t, warning.ErrDuplicateCode, err)

	created, err := repo.CreateRule(ctx, warning.Rule{Code: "ABSENCE", Name: "Absences", Threshold: 5, Description: "too many", CreatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "too many", created.Description)

	rules, err := repo.QueryRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "ABSENCE", rules[0].Code)

	created.Name, created.Active, created.Description = "Absence count", false, ""
	updated, err := repo.UpdateRule(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Absence count", updated.Name)
	assert.False(t, updated.Active)
	assert.Empty(t, updated.Description)

	require.NoError(t, repo.DeleteRule(ctx, created.ID))
	assert.Equal(t, warning.ErrRuleNotFound, repo.DeleteRule(ctx, created.ID))
	_, err = repo.GetRule(ctx, created.ID)
	assert.Equal(t, warning.ErrRuleNotFound, err)
}

func TestCaseRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	rules := sqlxrepos.NewRuleRepository(db)
	repo := sqlxrepos.NewCaseRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	rule, err := rules.EnsureRule(ctx, warning.Rule{Code: "GPA_LT", Name: "GPA", Threshold: 2, Active: true, CreatedAt: now})
	require.NoError(t, err)

	newCase := warning.Case{RuleID: rule.ID, StudentID: "SV01", Value: 1.2, Level: warning.LevelCritical, Status: warning.StatusOpen, CreatedAt: now}
	c, inserted, err := repo.InsertCase(ctx, newCase)
	require.NoError(t, err)
	assert.True(t, inserted)

	_, inserted, err = repo.InsertCase(ctx, newCase)
	require.NoError(t, err)
	assert.False(t, inserted, "a second open case for the same rule and student")

	open, err := repo.FindOpenCase(ctx, rule.ID, "SV01")
	require.NoError(t, err)
	assert.Equal(t, c.ID, open.ID)
	assert.Equal(t, "GPA_LT", open.RuleCode)

	closed, err := repo.CloseCase(ctx, c.ID, now)
	require.NoError(t, err)
	assert.Equal(t, warning.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	_, err = repo.FindOpenCase(ctx, rule.ID, "SV01")
	assert.Equal(t, warning.ErrCaseNotFound, err)
	_, err = repo.CloseCase(ctx, 9999, now)
	assert.Equal(t, warning.ErrCaseNotFound, err)

	// reopening is allowed once the previous case is closed
	_, inserted, err = repo.InsertCase(ctx, newCase)
	require.NoError(t, err)
	assert.True(t, inserted)

	tests := []struct {
		name      string
		filter    warning.CaseFilter
		wantTotal int
	}{
		{name: "default is open", filter: warning.CaseFilter{}, wantTotal: 1},
		{name: "closed", filter: warning.CaseFilter{Status: warning.StatusFilter("closed")}, wantTotal: 1},
		{name: "all", filter: warning.CaseFilter{Status: warning.StatusFilter("")}, wantTotal: 2},
		{name: "other student", filter: warning.CaseFilter{Status: warning.StatusFilter(""), StudentID: "SV02"}, wantTotal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, cases, err := repo.QueryCases(ctx, tt.filter, core.Pagination{Page: 1, Size: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, cases, tt.wantTotal)
		})
	}

	require.NoError(t, rules.DeleteRule(ctx, rule.ID))
	_, cases, err := repo.QueryCases(ctx, warning.CaseFilter{}, core.Pagination{Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Empty(t, cases[0].RuleCode)
}

func TestUserRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Officer", "officer", "officer@test.edu", "Sup3r-Secr3t", []string{user.RoleOfficer}, true)

	got, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{"officer@test.edu"}})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.Equal(t, []string{user.RoleOfficer}, got.Roles)

	_, err = repo.GetUser(ctx, user.GetFilter{ID: "00000000-0000-0000-0000-000000000000"})
	assert.Equal(t, user.ErrNotFound, err)

	_, err = repo.CreateUser(ctx, user.User{Name: "Dup", Username: "officer", Email: "other@test.edu", CreatedAt: time.Now().UTC()})
	assert.Error(t, err)
}

func TestSettingAndAuditRepositories(t *testing.T) {
	db := testutil.PrepareDB(t)
	settings := sqlxrepos.NewSettingRepository(db)
	entries := sqlxrepos.NewAuditRepository(db)
	ctx := context.Background()

	n, err := settings.CountSettings(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, settings.UpsertSettings(ctx, map[string]string{setting.KeyGPATrungBinh: "2.0"}))
	require.NoError(t, settings.UpsertSettings(ctx, map[string]string{setting.KeyGPATrungBinh: "2.5"}))
	values, err := settings.QuerySettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.5", values[setting.KeyGPATrungBinh])

	for i := 0; i < 3; i++ {
		_, err = entries.CreateEntry(ctx, audit.Entry{At: time.Now().UTC(), Actor: "admin", Action: "scan", Summary: "{}"})
		require.NoError(t, err)
	}
	recent, err := entries.QueryRecentEntries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Greater(t, recent[0].ID, recent[1].ID)
}

func newWarningService(db *sqlx.DB) *warning.Service {
	validate, _ := testutil.NewValidator()
	logger := &testutil.Logger{}
	conf := core.NewTestConfig()
	auditSvc := audit.NewService(sqlxrepos.NewAuditRepository(db), logger)
	settingSvc := setting.NewService(sqlxrepos.NewSettingRepository(db), auditSvc, logger, conf)
	return warning.NewService(warning.Deps{
		Tx:         database.NewTransactor(db),
		Rules:      sqlxrepos.NewRuleRepository(db),
		Cases:      sqlxrepos.NewCaseRepository(db),
		Metrics:    transcript.NewAggregator(sqlxrepos.NewTranscriptRepository(db)),
		Thresholds: settingSvc,
		Auditor:    auditSvc,
		Validate:   validate,
		Conf:       conf.Warning,
	})
}

func TestScanEndToEnd(t *testing.T) {
	db := testutil.PrepareDB(t)
	seedRegistry(t, db)
	ctx := context.Background()
	svc := newWarningService(db)

	gpa, debt := 2.0, 3.0
	res, err := svc.Scan(ctx, warning.ScanRequest{GPAThreshold: &gpa, DebtThreshold: &debt})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Students)
	assert.Equal(t, 3, res.CreatedCases) // SV01: GPA and debt; SV02: GPA, its ungraded PHYS1 still weighs 4 credits

	res, err = svc.Scan(ctx, warning.ScanRequest{GPAThreshold: &gpa, DebtThreshold: &debt})
	require.NoError(t, err)
	assert.Zero(t, res.CreatedCases)

	page, err := svc.ListCases(ctx, warning.CaseFilter{StudentID: "SV01"}, core.Pagination{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestScanConcurrent(t *testing.T) {
	db := testutil.PrepareDB(t)
	seedRegistry(t, db)
	ctx := context.Background()
	svc := newWarningService(db)

	const scans = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	gpa, debt := 2.0, 3.0
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Scan(ctx, warning.ScanRequest{GPAThreshold: &gpa, DebtThreshold: &debt})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			created += res.CreatedCases
		}()
	}
	wg.Wait()
	require.Empty(t, errs)
	assert.Equal(t, 3, created)

	var dupOpen int
	require.NoError(t, db.Get(&dupOpen, `
		SELECT COUNT(*) FROM (
			SELECT rule_id, student_id FROM warning_case WHERE status = 'open'
			GROUP BY rule_id, student_id HAVING COUNT(*) > 1
		) d`))
	assert.Zero(t, dupOpen)

	var openCases, rules int
	require.NoError(t, db.Get(&openCases, `SELECT COUNT(*) FROM warning_case WHERE status = 'open'`))
	require.NoError(t, db.Get(&rules, `SELECT COUNT(*) FROM warning_rule`))
	assert.Equal(t, 3, openCases)
	assert.Equal(t, 2, rules)
}

func TestRuleRepository_EnsureRule_concurrent(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewRuleRepository(db)
	ctx := context.Background()

	const callers = 16
	ids := make(chan int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := repo.EnsureRule(ctx, warning.Rule{
				Code: warning.CodeDebtOver, Name: "Debt", Threshold: float64(i), Active: true, CreatedAt: time.Now().UTC(),
			})
			if assert.NoError(t, err) {
				ids <- r.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	first := <-ids
	for id := range ids {
		assert.Equal(t, first, id)
	}
	var rules int
	require.NoError(t, db.Get(&rules, `SELECT COUNT(*) FROM warning_rule WHERE code = $1`, warning.CodeDebtOver))
	assert.Equal(t, 1, rules)
}
