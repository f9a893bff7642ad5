package warning

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/setting"
	"github.com/trezcool/hocba/core/transcript"
)

var (
	// errors
	ErrRuleNotFound  = errors.New("rule not found")
	ErrCaseNotFound  = errors.New("case not found")
	ErrDuplicateCode = errors.New("a rule with this code already exists")
)

const affectedCaseTable, affectedRuleTable = "warning_case", "warning_rule"

type (
	RuleRepository interface {
		// EnsureRule returns the rule with seed.Code, creating it from seed when it does not exist.
		// Safe under concurrent callers: exactly one rule per code is ever created.
		EnsureRule(ctx context.Context, seed Rule, exec ...core.DBExecutor) (Rule, error)
		GetRule(ctx context.Context, id int, exec ...core.DBExecutor) (Rule, error)
		// QueryRules returns all rules ordered by Code.
		QueryRules(ctx context.Context, exec ...core.DBExecutor) ([]Rule, error)
		CreateRule(ctx context.Context, rule Rule, exec ...core.DBExecutor) (Rule, error)
		UpdateRule(ctx context.Context, rule Rule, exec ...core.DBExecutor) (Rule, error)
		DeleteRule(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	CaseRepository interface {
		// FindOpenCase returns ErrCaseNotFound when the student has no open case under the rule.
		FindOpenCase(ctx context.Context, ruleID int, studentID string, exec ...core.DBExecutor) (Case, error)
		// InsertCase inserts c unless an open case already exists for (c.RuleID, c.StudentID);
		// the bool reports whether a row was inserted.
		InsertCase(ctx context.Context, c Case, exec ...core.DBExecutor) (Case, bool, error)
		// QueryCases returns the total count of matching cases and the requested page, ordered by ID descending.
		QueryCases(ctx context.Context, filter CaseFilter, page core.Pagination, exec ...core.DBExecutor) (int, []Case, error)
		CloseCase(ctx context.Context, id int, closedAt time.Time, exec ...core.DBExecutor) (Case, error)
	}

	MetricsSource interface {
		ComputeMetrics(ctx context.Context, classID string, exec ...core.DBExecutor) ([]transcript.StudentMetric, error)
	}

	ThresholdProvider interface {
		GetThreshold(ctx context.Context, key string) (float64, error)
	}

	ServiceInterface interface {
		Scan(ctx context.Context, req ScanRequest) (ScanResult, error)
		ListCases(ctx context.Context, filter CaseFilter, page core.Pagination) (CasePage, error)
		CloseCase(ctx context.Context, id int) (Case, error)
		ListRules(ctx context.Context) ([]Rule, error)
		CreateRule(ctx context.Context, nr NewRule) (Rule, error)
		UpdateRule(ctx context.Context, id int, ur UpdateRule) (Rule, error)
		DeleteRule(ctx context.Context, id int) error
	}

	Deps struct {
		Tx         core.Transactor
		Rules      RuleRepository
		Cases      CaseRepository
		Metrics    MetricsSource
		Thresholds ThresholdProvider
		Auditor    audit.Recorder
		Validate   *validator.Validate
		Conf       core.WarningConfig
	}

	Service struct {
		Deps
		nowFunc func() time.Time
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(deps Deps) *Service {
	vala.BeginValidation().Validate(
		core.IsNotNil(deps.Tx, "Tx"),
		core.IsNotNil(deps.Rules, "Rules"),
		core.IsNotNil(deps.Cases, "Cases"),
		core.IsNotNil(deps.Metrics, "Metrics"),
		core.IsNotNil(deps.Thresholds, "Thresholds"),
		core.IsNotNil(deps.Auditor, "Auditor"),
		core.IsNotNil(deps.Validate, "Validate"),
	).CheckAndPanic()

	return &Service{Deps: deps, nowFunc: time.Now}
}

// failure keeps domain errors as they are and turns anything else into a persistence failure.
func (svc *Service) failure(op string, err error) error {
	switch cause := errors.Cause(err).(type) {
	case *core.ValidationError, validator.ValidationErrors, *core.FailureError:
		return err
	default:
		if cause == ErrRuleNotFound || cause == ErrCaseNotFound || cause == ErrDuplicateCode {
			return err
		}
	}
	if _, ok := core.AsFailure(err); ok {
		return err
	}
	return core.NewPersistenceFailure(op, err)
}

func (svc *Service) resolveThresholds(ctx context.Context, req ScanRequest) (gpa, debt float64, err error) {
	if req.GPAThreshold != nil {
		gpa = *req.GPAThreshold
	} else if gpa, err = svc.Thresholds.GetThreshold(ctx, setting.KeyGPATrungBinh); err != nil {
		return 0, 0, errors.Wrap(err, "getting GPA threshold")
	}
	if req.DebtThreshold != nil {
		debt = *req.DebtThreshold
	} else if debt, err = svc.Thresholds.GetThreshold(ctx, setting.KeyDebtCredits); err != nil {
		return 0, 0, errors.Wrap(err, "getting debt threshold")
	}
	return gpa, debt, nil
}

// gpaBreached applies GPA_BELOW: a strictly lower weighted GPA breaches.
// A 0.0 GPA only breaches when CountZeroGPA is set and the student has weighted credits.
func (svc *Service) gpaBreached(m transcript.StudentMetric, threshold float64) bool {
	if !m.HasWeightedCredits() {
		return false
	}
	if m.WeightedGPA4 <= 0 && !svc.Conf.CountZeroGPA {
		return false
	}
	return m.WeightedGPA4 < threshold
}

// debtBreached applies DEBT_OVER: debt credits at or over the threshold breach.
func (svc *Service) debtBreached(m transcript.StudentMetric, threshold float64) bool {
	return m.DebtCredits >= threshold
}

// evaluates reports whether Scan applies rule. Every rule is evaluated unless SkipInactiveRules is set.
func (svc *Service) evaluates(rule Rule) bool {
	return rule.Active || !svc.Conf.SkipInactiveRules
}

// Scan evaluates GPA_BELOW and DEBT_OVER against every student's metrics and opens a case per new breach.
// It runs as one transaction: on any error nothing is persisted, including the rules.
func (svc *Service) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	gpaSeed, debtSeed, err := svc.resolveThresholds(ctx, req)
	if err != nil {
		return ScanResult{}, svc.failure("resolving thresholds", err)
	}

	var result ScanResult
	err = svc.Tx.RunInTx(ctx, func(ctx context.Context, exec core.DBExecutor) error {
		result = ScanResult{}
		now := svc.nowFunc().UTC()

		gpaRule, err := svc.Rules.EnsureRule(ctx, Rule{
			Code: CodeGPABelow, Name: "GPA below threshold", Threshold: gpaSeed, Active: true, CreatedAt: now,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "ensuring GPA rule")
		}
		debtRule, err := svc.Rules.EnsureRule(ctx, Rule{
			Code: CodeDebtOver, Name: "Credit debt over threshold", Threshold: debtSeed, Active: true, CreatedAt: now,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "ensuring debt rule")
		}

		metrics, err := svc.Metrics.ComputeMetrics(ctx, req.ClassID, exec)
		if err != nil {
			return errors.Wrap(err, "computing metrics")
		}
		result.Students = len(metrics)

		for _, m := range metrics {
			if svc.evaluates(gpaRule) && svc.gpaBreached(m, gpaRule.Threshold) {
				created, err := svc.openCase(ctx, gpaRule, m.StudentID, m.WeightedGPA4, LevelCritical, now, exec)
				if err != nil {
					return err
				}
				if created {
					result.CreatedCases++
				}
			}
			if svc.evaluates(debtRule) && svc.debtBreached(m, debtRule.Threshold) {
				created, err := svc.openCase(ctx, debtRule, m.StudentID, m.DebtCredits, LevelWarning, now, exec)
				if err != nil {
					return err
				}
				if created {
					result.CreatedCases++
				}
			}
		}
		return nil
	})
	if err != nil {
		return ScanResult{}, svc.failure("scanning", err)
	}

	svc.Auditor.Record(ctx, "warning.scan", map[string]interface{}{
		"class_id":      req.ClassID,
		"students":      result.Students,
		"created_cases": result.CreatedCases,
	}, affectedCaseTable)
	return result, nil
}

// openCase inserts an open case unless one already exists for (rule, student).
func (svc *Service) openCase(
	ctx context.Context,
	rule Rule,
	studentID string,
	value float64,
	level Level,
	now time.Time,
	exec core.DBExecutor,
) (bool, error) {
	if _, err := svc.Cases.FindOpenCase(ctx, rule.ID, studentID, exec); err == nil {
		return false, nil
	} else if errors.Cause(err) != ErrCaseNotFound {
		return false, errors.Wrap(err, "finding open case")
	}

	_, inserted, err := svc.Cases.InsertCase(ctx, Case{
		RuleID:    rule.ID,
		RuleCode:  rule.Code,
		StudentID: studentID,
		Value:     value,
		Level:     level,
		Status:    StatusOpen,
		CreatedAt: now,
	}, exec)
	if err != nil {
		return false, errors.Wrap(err, "inserting case")
	}
	return inserted, nil
}

func (svc *Service) ListCases(ctx context.Context, filter CaseFilter, page core.Pagination) (CasePage, error) {
	if err := filter.Clean(); err != nil {
		return CasePage{}, err
	}
	page = core.NewPagination(page.Page, page.Size)

	total, cases, err := svc.Cases.QueryCases(ctx, filter, page)
	if err != nil {
		return CasePage{}, svc.failure("querying cases", err)
	}
	if cases == nil {
		cases = []Case{}
	}
	return CasePage{Total: total, Items: cases}, nil
}

// CloseCase closes the case and stamps ClosedAt; closing a closed case stamps it again.
func (svc *Service) CloseCase(ctx context.Context, id int) (Case, error) {
	c, err := svc.Cases.CloseCase(ctx, id, svc.nowFunc().UTC())
	if err != nil {
		return Case{}, svc.failure("closing case", err)
	}
	svc.Auditor.Record(ctx, "warning.case.close", map[string]interface{}{"case_id": id}, affectedCaseTable)
	return c, nil
}

func (svc *Service) ListRules(ctx context.Context) ([]Rule, error) {
	rules, err := svc.Rules.QueryRules(ctx)
	if err != nil {
		return nil, svc.failure("querying rules", err)
	}
	if rules == nil {
		rules = []Rule{}
	}
	return rules, nil
}

func (svc *Service) CreateRule(ctx context.Context, nr NewRule) (Rule, error) {
	if err := nr.Validate(svc.Validate); err != nil {
		return Rule{}, err
	}
	active := true
	if nr.Active != nil {
		active = *nr.Active
	}

	rule, err := svc.Rules.CreateRule(ctx, Rule{
		Code:        nr.Code,
		Name:        nr.Name,
		Threshold:   nr.Threshold,
		Active:      active,
		Description: nr.Description,
		CreatedAt:   svc.nowFunc().UTC(),
	})
	if err != nil {
		return Rule{}, svc.failure("creating rule", err)
	}
	svc.Auditor.Record(ctx, "warning.rule.create", map[string]interface{}{"id": rule.ID, "code": rule.Code}, affectedRuleTable)
	return rule, nil
}

func (svc *Service) UpdateRule(ctx context.Context, id int, ur UpdateRule) (Rule, error) {
	if err := ur.Validate(svc.Validate); err != nil {
		return Rule{}, err
	}

	rule, err := svc.Rules.GetRule(ctx, id)
	if err != nil {
		return Rule{}, svc.failure("finding rule", err)
	}
	if rule, err = svc.Rules.UpdateRule(ctx, ur.apply(rule)); err != nil {
		return Rule{}, svc.failure("updating rule", err)
	}
	svc.Auditor.Record(ctx, "warning.rule.update", map[string]interface{}{
		"id": rule.ID, "code": rule.Code, "threshold": rule.Threshold, "active": rule.Active,
	}, affectedRuleTable)
	return rule, nil
}

// DeleteRule removes the rule only; its cases are kept and list with an empty RuleCode.
func (svc *Service) DeleteRule(ctx context.Context, id int) error {
	if err := svc.Rules.DeleteRule(ctx, id); err != nil {
		return svc.failure("deleting rule", err)
	}
	svc.Auditor.Record(ctx, "warning.rule.delete", map[string]interface{}{"id": id}, affectedRuleTable)
	return nil
}
