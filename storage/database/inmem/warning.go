package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/warning"
)

type ruleRepository struct {
	db *ruleTable
}

var _ warning.RuleRepository = (*ruleRepository)(nil) // interface compliance check

func NewRuleRepository(db *DB) *ruleRepository {
	return &ruleRepository{db: db.rule}
}

func (repo *ruleRepository) findByCode(code string) (warning.Rule, bool) {
	for _, r := range repo.db.table {
		if r.Code == code {
			return r, true
		}
	}
	return warning.Rule{}, false
}

func (repo *ruleRepository) insert(ctx context.Context, rule warning.Rule) warning.Rule {
	repo.db.pk++
	rule.ID = repo.db.pk
	repo.db.table[rule.ID] = rule
	recordUndo(ctx, repo.db.restore(rule.ID, warning.Rule{}, false))
	return rule
}

func (repo *ruleRepository) EnsureRule(ctx context.Context, seed warning.Rule, _ ...core.DBExecutor) (warning.Rule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if r, ok := repo.findByCode(seed.Code); ok {
		return r, nil
	}
	return repo.insert(ctx, seed), nil
}

func (repo *ruleRepository) GetRule(_ context.Context, id int, _ ...core.DBExecutor) (warning.Rule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return r, nil
	}
	return warning.Rule{}, warning.ErrRuleNotFound
}

func (repo *ruleRepository) QueryRules(_ context.Context, _ ...core.DBExecutor) ([]warning.Rule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rules := make([]warning.Rule, 0, len(repo.db.table))
	for _, r := range repo.db.table {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Code < rules[j].Code })
	return rules, nil
}

func (repo *ruleRepository) CreateRule(ctx context.Context, rule warning.Rule, _ ...core.DBExecutor) (warning.Rule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.findByCode(rule.Code); ok {
		return warning.Rule{}, warning.ErrDuplicateCode
	}
	return repo.insert(ctx, rule), nil
}

func (repo *ruleRepository) UpdateRule(ctx context.Context, rule warning.Rule, _ ...core.DBExecutor) (warning.Rule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[rule.ID]
	if !ok {
		return warning.Rule{}, warning.ErrRuleNotFound
	}
	rule.Code, rule.CreatedAt = orig.Code, orig.CreatedAt
	repo.db.table[rule.ID] = rule
	recordUndo(ctx, repo.db.restore(rule.ID, orig, true))
	return rule, nil
}

func (repo *ruleRepository) DeleteRule(ctx context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[id]
	if !ok {
		return warning.ErrRuleNotFound
	}
	delete(repo.db.table, id)
	recordUndo(ctx, repo.db.restore(id, orig, true))
	return nil
}

type caseRepository struct {
	db    *caseTable
	rules *ruleTable
}

var _ warning.CaseRepository = (*caseRepository)(nil) // interface compliance check

func NewCaseRepository(db *DB) *caseRepository {
	return &caseRepository{db: db.wcase, rules: db.rule}
}

// withRuleCode resolves RuleCode the way the SQL LEFT JOIN does: empty for a deleted rule.
func (repo *caseRepository) withRuleCode(c warning.Case) warning.Case {
	repo.rules.RLock()
	defer repo.rules.RUnlock()

	c.RuleCode = ""
	if r, ok := repo.rules.table[c.RuleID]; ok {
		c.RuleCode = r.Code
	}
	return c
}

func (repo *caseRepository) findOpen(ruleID int, studentID string) (warning.Case, bool) {
	for _, c := range repo.db.table {
		if c.RuleID == ruleID && c.StudentID == studentID && c.IsOpen() {
			return c, true
		}
	}
	return warning.Case{}, false
}

func (repo *caseRepository) FindOpenCase(_ context.Context, ruleID int, studentID string, _ ...core.DBExecutor) (warning.Case, error) {
	repo.db.RLock()
	c, ok := repo.findOpen(ruleID, studentID)
	repo.db.RUnlock()

	if !ok {
		return warning.Case{}, warning.ErrCaseNotFound
	}
	return repo.withRuleCode(c), nil
}

func (repo *caseRepository) InsertCase(ctx context.Context, c warning.Case, _ ...core.DBExecutor) (warning.Case, bool, error) {
	repo.db.Lock()
	if _, ok := repo.findOpen(c.RuleID, c.StudentID); ok && c.IsOpen() {
		repo.db.Unlock()
		return warning.Case{}, false, nil
	}
	repo.db.pk++
	c.ID = repo.db.pk
	repo.db.table[c.ID] = c
	recordUndo(ctx, repo.db.restore(c.ID, warning.Case{}, false))
	repo.db.Unlock()

	return repo.withRuleCode(c), true, nil
}

func (repo *caseRepository) QueryCases(_ context.Context, filter warning.CaseFilter, page core.Pagination, _ ...core.DBExecutor) (int, []warning.Case, error) {
	repo.db.RLock()
	status := filter.EffectiveStatus()
	matches := make([]warning.Case, 0)
	for _, c := range repo.db.table {
		if status != "" && string(c.Status) != status {
			continue
		}
		if filter.StudentID != "" && c.StudentID != filter.StudentID {
			continue
		}
		matches = append(matches, c)
	}
	repo.db.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	total := len(matches)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit()
	if end > total {
		end = total
	}

	items := make([]warning.Case, 0, end-start)
	for _, c := range matches[start:end] {
		items = append(items, repo.withRuleCode(c))
	}
	return total, items, nil
}

func (repo *caseRepository) CloseCase(ctx context.Context, id int, closedAt time.Time, _ ...core.DBExecutor) (warning.Case, error) {
	repo.db.Lock()
	orig, ok := repo.db.table[id]
	if !ok {
		repo.db.Unlock()
		return warning.Case{}, warning.ErrCaseNotFound
	}
	c := orig
	c.Status = warning.StatusClosed
	c.ClosedAt = &closedAt
	repo.db.table[id] = c
	recordUndo(ctx, repo.db.restore(id, orig, true))
	repo.db.Unlock()

	return repo.withRuleCode(c), nil
}
