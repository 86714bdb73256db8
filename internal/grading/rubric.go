package grading

import (
	"fmt"
	"math"
)

type Rubric struct {
	Criteria []Criterion `json:"criteria"`
	Max      float64     `json:"max_points,omitempty"`
}

type Criterion struct {
	Key       string  `json:"key"`
	Desc      string  `json:"desc,omitempty"`
	MaxPoints float64 `json:"max_points"`
}

// ScoreRubric totals a reviewer's awards. Each award is held to its
// criterion's range and the sum to r.Max when set; unknown keys are ignored.
func ScoreRubric(r Rubric, awarded map[string]float64) (float64, []string) {
	var total float64
	notes := make([]string, len(r.Criteria))
	for i, c := range r.Criteria {
		pts := c.award(awarded[c.Key])
		notes[i] = fmt.Sprintf("%s:%.2f", c.Key, pts)
		total += pts
	}
	if r.Max > 0 {
		total = math.Min(total, r.Max)
	}
	return round2(total), notes
}

func (c Criterion) award(v float64) float64 { return clamp(v, 0, c.MaxPoints) }

// ManualResult turns a reviewer's points into a Result for a question worth max.
func ManualResult(points, max float64, comment string) Result {
	score := round2(clamp(points, 0, max))
	return newResult(score, max, score == max, comment, map[string]any{"manually_graded": true})
}
