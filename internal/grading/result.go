package grading

import "math"

// DefaultMaxPoints is used when neither the item nor the question carries a point budget.
const DefaultMaxPoints = 10.0

// Result is the outcome of grading a single question response.
type Result struct {
	Score      float64        `json:"score"`
	MaxScore   float64        `json:"max_score"`
	Percentage int            `json:"percentage"`
	IsCorrect  bool           `json:"is_correct"`
	IsPartial  bool           `json:"is_partial"`
	Feedback   string         `json:"feedback,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// NeedsManual reports whether a human still has to grade the response.
func (r Result) NeedsManual() bool {
	v, _ := r.Details["requires_manual_grading"].(bool)
	return v
}

// newResult clamps score into [0, max] and derives percentage and the flags.
// full is the grader's own full-credit condition.
func newResult(score, max float64, full bool, feedback string, details map[string]any) Result {
	if max < 0 {
		max = 0
	}
	if score < 0 || math.IsNaN(score) {
		score = 0
	}
	if score > max {
		score = max
	}
	return Result{
		Score:      score,
		MaxScore:   max,
		Percentage: percentOf(score, max),
		IsCorrect:  full && score == max,
		IsPartial:  score > 0 && score < max,
		Feedback:   feedback,
		Details:    details,
	}
}

// unconfigured is the permissive outcome for a question whose answer key is missing.
func unconfigured(max float64, what string) Result {
	return newResult(max, max, true, "No "+what+" configured; full credit awarded",
		map[string]any{"unconfigured": true})
}

func zeroResult(max float64, feedback string, details map[string]any) Result {
	return newResult(0, max, false, feedback, details)
}

func percentOf(score, max float64) int {
	if max <= 0 {
		return 0
	}
	return int(math.Round(100 * score / max))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func resolvePoints(itemPoints, questionPoints float64) float64 {
	if itemPoints > 0 {
		return itemPoints
	}
	if questionPoints > 0 {
		return questionPoints
	}
	return DefaultMaxPoints
}
