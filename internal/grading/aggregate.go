package grading

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// Item is one question/answer pair of an exam. MaxPoints > 0 overrides the question's own budget.
type Item struct {
	Question  Definition `json:"question" yaml:"question"`
	Answer    any        `json:"answer" yaml:"answer"`
	MaxPoints float64    `json:"max_points,omitempty" yaml:"max_points,omitempty"`
}

// AggregateResult folds per-question results into an exam-level score.
type AggregateResult struct {
	Results       []Result `json:"results"`
	TotalScore    float64  `json:"total_score"`
	TotalMaxScore float64  `json:"total_max_score"`
	Percentage    int      `json:"percentage"`
}

// GradeAll grades items with the engine's configured concurrency.
func (e *Engine) GradeAll(ctx context.Context, items []Item) AggregateResult {
	return Aggregate(ctx, e, items, e.concurrency)
}

// Aggregate grades every item with g and sums the results. Results keep the
// input order whatever the concurrency.
func Aggregate(ctx context.Context, g Grader, items []Item, concurrency int) AggregateResult {
	results := make([]Result, len(items))
	if concurrency <= 1 || len(items) <= 1 {
		for i, it := range items {
			results[i] = g.Grade(ctx, it.Question, it.Answer, it.MaxPoints)
		}
	} else {
		var eg errgroup.Group
		eg.SetLimit(concurrency)
		for i, it := range items {
			i, it := i, it
			eg.Go(func() error {
				results[i] = g.Grade(ctx, it.Question, it.Answer, it.MaxPoints)
				return nil
			})
		}
		_ = eg.Wait()
	}
	return Summarize(results)
}

// Summarize totals already graded results.
func Summarize(results []Result) AggregateResult {
	if results == nil {
		results = []Result{}
	}
	agg := AggregateResult{Results: results}
	for _, r := range results {
		agg.TotalScore += r.Score
		agg.TotalMaxScore += r.MaxScore
	}
	agg.TotalScore = round2(agg.TotalScore)
	agg.TotalMaxScore = round2(agg.TotalMaxScore)
	if agg.TotalMaxScore > 0 {
		agg.Percentage = int(math.Round(100 * agg.TotalScore / agg.TotalMaxScore))
	}
	return agg
}
