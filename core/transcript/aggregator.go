package transcript

import (
	"context"
	"sort"

	"github.com/trezcool/hocba/core"
)

type (
	Repository interface {
		// QueryFinalGrades returns the final transcript rows, optionally restricted to the students of classID.
		QueryFinalGrades(ctx context.Context, classID string, exec ...core.DBExecutor) ([]FinalGrade, error)
	}

	Aggregator struct {
		repo Repository
	}
)

func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// ComputeMetrics aggregates the final rows of every student (of classID, when set) into StudentMetrics.
// Read-only: it joins the caller's transaction when exec is given.
func (agg *Aggregator) ComputeMetrics(ctx context.Context, classID string, exec ...core.DBExecutor) ([]StudentMetric, error) {
	grades, err := agg.repo.QueryFinalGrades(ctx, core.CleanString(classID), exec...)
	if err != nil {
		return nil, core.NewAggregationFailure("querying final grades", err)
	}
	return Aggregate(grades), nil
}

// Aggregate folds final rows into one StudentMetric per student, ordered by StudentID.
//
// WeightedGPA4 = Σ(grade4 × credits) / Σ(credits) and DebtCredits = Σ(credits where grade4 < DebtGrade4).
// Rows without credits weigh 0. Ungraded rows still count in Σ(credits) but add no points and no debt.
func Aggregate(grades []FinalGrade) []StudentMetric {
	type acc struct {
		points, credits, debt float64
	}
	accs := make(map[string]*acc)
	ids := make([]string, 0)

	for _, g := range grades {
		a, ok := accs[g.StudentID]
		if !ok {
			a = new(acc)
			accs[g.StudentID] = a
			ids = append(ids, g.StudentID)
		}
		var credits float64
		if g.Credits != nil {
			credits = *g.Credits
		}
		a.credits += credits
		if g.Grade4 == nil {
			continue
		}
		a.points += *g.Grade4 * credits
		if *g.Grade4 < DebtGrade4 {
			a.debt += credits
		}
	}

	sort.Strings(ids)
	metrics := make([]StudentMetric, 0, len(ids))
	for _, id := range ids {
		a := accs[id]
		m := StudentMetric{StudentID: id, DebtCredits: a.debt, WeightedCredits: a.credits}
		if a.credits > 0 {
			m.WeightedGPA4 = a.points / a.credits
		}
		metrics = append(metrics, m)
	}
	return metrics
}
