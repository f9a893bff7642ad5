package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/warning"
)

type ruleRow struct {
	ID          int         `db:"id"`
	Code        string      `db:"code"`
	Name        string      `db:"name"`
	Threshold   float64     `db:"threshold"`
	Active      bool        `db:"active"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r ruleRow) toRule() warning.Rule {
	return warning.Rule{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Threshold:   r.Threshold,
		Active:      r.Active,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

const ruleColumns = "id, code, name, threshold, active, description, created_at"

type ruleRepository struct {
	db *sqlx.DB
}

var _ warning.RuleRepository = (*ruleRepository)(nil) // interface compliance check

func NewRuleRepository(db *sqlx.DB) *ruleRepository {
	return &ruleRepository{db: db}
}

// trapNoRowsErr maps "no rows" to warning.ErrRuleNotFound
func (repo ruleRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return warning.ErrRuleNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo ruleRepository) EnsureRule(ctx context.Context, seed warning.Rule, exec ...core.DBExecutor) (warning.Rule, error) {
	exe := getExec(repo.db, exec)

	_, err := exe.ExecContext(ctx, `
		INSERT INTO warning_rule (code, name, threshold, active, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO NOTHING`,
		seed.Code, seed.Name, seed.Threshold, seed.Active,
		null.NewString(seed.Description, seed.Description != ""), seed.CreatedAt.UTC())
	if err != nil {
		return warning.Rule{}, errors.Wrap(err, "inserting rule")
	}

	var row ruleRow
	if err = sqlx.GetContext(ctx, exe, &row, "SELECT "+ruleColumns+" FROM warning_rule WHERE code = $1", seed.Code); err != nil {
		return warning.Rule{}, errors.Wrap(err, "finding rule by code")
	}
	return row.toRule(), nil
}

func (repo ruleRepository) GetRule(ctx context.Context, id int, exec ...core.DBExecutor) (warning.Rule, error) {
	var row ruleRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row, "SELECT "+ruleColumns+" FROM warning_rule WHERE id = $1", id)
	if err != nil {
		return warning.Rule{}, repo.trapNoRowsErr(err, "finding rule by ID")
	}
	return row.toRule(), nil
}

func (repo ruleRepository) QueryRules(ctx context.Context, exec ...core.DBExecutor) ([]warning.Rule, error) {
	var rows []ruleRow
	if err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, "SELECT "+ruleColumns+" FROM warning_rule ORDER BY code"); err != nil {
		return nil, errors.Wrap(err, "querying rules")
	}
	rules := make([]warning.Rule, 0, len(rows))
	for _, r := range rows {
		rules = append(rules, r.toRule())
	}
	return rules, nil
}

func (repo ruleRepository) CreateRule(ctx context.Context, rule warning.Rule, exec ...core.DBExecutor) (warning.Rule, error) {
	var row ruleRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row, `
		INSERT INTO warning_rule (code, name, threshold, active, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+ruleColumns,
		rule.Code, rule.Name, rule.Threshold, rule.Active,
		null.NewString(rule.Description, rule.Description != ""), rule.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return warning.Rule{}, warning.ErrDuplicateCode
		}
		return warning.Rule{}, errors.Wrap(err, "inserting rule")
	}
	return row.toRule(), nil
}

func (repo ruleRepository) UpdateRule(ctx context.Context, rule warning.Rule, exec ...core.DBExecutor) (warning.Rule, error) {
	var row ruleRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row, `
		UPDATE warning_rule SET name = $2, threshold = $3, active = $4, description = $5
		WHERE id = $1
		RETURNING `+ruleColumns,
		rule.ID, rule.Name, rule.Threshold, rule.Active, null.NewString(rule.Description, rule.Description != ""))
	if err != nil {
		return warning.Rule{}, repo.trapNoRowsErr(err, "updating rule")
	}
	return row.toRule(), nil
}

func (repo ruleRepository) DeleteRule(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, "DELETE FROM warning_rule WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting rule")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting rule")
	}
	if n == 0 {
		return warning.ErrRuleNotFound
	}
	return nil
}

type caseRow struct {
	ID        int         `db:"id"`
	RuleID    int         `db:"rule_id"`
	RuleCode  null.String `db:"rule_code"` // NULL once the rule is deleted
	StudentID string      `db:"student_id"`
	Value     float64     `db:"value"`
	Level     string      `db:"level"`
	Status    string      `db:"status"`
	CreatedAt time.Time   `db:"created_at"`
	ClosedAt  null.Time   `db:"closed_at"`
}

func (r caseRow) toCase() warning.Case {
	c := warning.Case{
		ID:        r.ID,
		RuleID:    r.RuleID,
		RuleCode:  r.RuleCode.String,
		StudentID: r.StudentID,
		Value:     r.Value,
		Level:     warning.Level(r.Level),
		Status:    warning.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.ClosedAt.Valid {
		closedAt := r.ClosedAt.Time.UTC()
		c.ClosedAt = &closedAt
	}
	return c
}

const caseSelect = `
	SELECT c.id, c.rule_id, r.code AS rule_code, c.student_id, c.value, c.level, c.status, c.created_at, c.closed_at
	FROM warning_case c
	LEFT JOIN warning_rule r ON r.id = c.rule_id`

type caseRepository struct {
	db *sqlx.DB
}

var _ warning.CaseRepository = (*caseRepository)(nil) // interface compliance check

func NewCaseRepository(db *sqlx.DB) *caseRepository {
	return &caseRepository{db: db}
}

// trapNoRowsErr maps "no rows" to warning.ErrCaseNotFound
func (repo caseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return warning.ErrCaseNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo caseRepository) FindOpenCase(ctx context.Context, ruleID int, studentID string, exec ...core.DBExecutor) (warning.Case, error) {
	var row caseRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		caseSelect+" WHERE c.rule_id = $1 AND c.student_id = $2 AND c.status = 'open'", ruleID, studentID)
	if err != nil {
		return warning.Case{}, repo.trapNoRowsErr(err, "finding open case")
	}
	return row.toCase(), nil
}

func (repo caseRepository) InsertCase(ctx context.Context, c warning.Case, exec ...core.DBExecutor) (warning.Case, bool, error) {
	var id int
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &id, `
		INSERT INTO warning_case (rule_id, student_id, value, level, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (rule_id, student_id) WHERE status = 'open' DO NOTHING
		RETURNING id`,
		c.RuleID, c.StudentID, c.Value, string(c.Level), string(c.Status), c.CreatedAt.UTC())
	if err != nil {
		if err == sql.ErrNoRows { // an open case already exists
			return warning.Case{}, false, nil
		}
		return warning.Case{}, false, errors.Wrap(err, "inserting case")
	}
	c.ID = id
	c.CreatedAt = c.CreatedAt.UTC()
	return c, true, nil
}

func (repo caseRepository) QueryCases(
	ctx context.Context,
	filter warning.CaseFilter,
	page core.Pagination,
	exec ...core.DBExecutor,
) (int, []warning.Case, error) {
	exe := getExec(repo.db, exec)

	var conds []string
	var args []interface{}
	if status := filter.EffectiveStatus(); status != "" {
		args = append(args, status)
		conds = append(conds, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conds = append(conds, fmt.Sprintf("c.student_id = $%d", len(args)))
	}
	var where string
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := sqlx.GetContext(ctx, exe, &total, "SELECT COUNT(*) FROM warning_case c"+where, args...); err != nil {
		return 0, nil, errors.Wrap(err, "counting cases")
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf("%s%s ORDER BY c.id DESC LIMIT $%d OFFSET $%d", caseSelect, where, len(args)-1, len(args))
	var rows []caseRow
	if err := sqlx.SelectContext(ctx, exe, &rows, query, args...); err != nil {
		return 0, nil, errors.Wrap(err, "querying cases")
	}

	cases := make([]warning.Case, 0, len(rows))
	for _, r := range rows {
		cases = append(cases, r.toCase())
	}
	return total, cases, nil
}

func (repo caseRepository) CloseCase(ctx context.Context, id int, closedAt time.Time, exec ...core.DBExecutor) (warning.Case, error) {
	var row caseRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row, `
		WITH c AS (
			UPDATE warning_case SET status = 'closed', closed_at = $2
			WHERE id = $1
			RETURNING id, rule_id, student_id, value, level, status, created_at, closed_at
		)
		SELECT c.id, c.rule_id, r.code AS rule_code, c.student_id, c.value, c.level, c.status, c.created_at, c.closed_at
		FROM c
		LEFT JOIN warning_rule r ON r.id = c.rule_id`,
		id, closedAt.UTC())
	if err != nil {
		return warning.Case{}, repo.trapNoRowsErr(err, "closing case")
	}
	return row.toCase(), nil
}
