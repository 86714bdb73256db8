package grading

import (
	"context"
	"testing"
)

func TestMultipleSelect(t *testing.T) {
	tests := []struct {
		name    string
		correct []any
		answer  any
		score   float64
		full    bool
		partial bool
	}{
		{name: "exact set", correct: []any{"A", "C"}, answer: []any{"c", " a "}, score: 10, full: true},
		{name: "one right one wrong", correct: []any{"A", "C"}, answer: []any{"A", "B"}, score: 2.5, partial: true},
		{name: "single wrong clamps to zero", correct: []any{"A", "B", "C", "D"}, answer: []any{"E"}, score: 0},
		{name: "missing one", correct: []any{"A", "B", "C", "D"}, answer: []any{"A", "B", "C"}, score: 7.5, partial: true},
		{name: "all plus extra", correct: []any{"A", "B"}, answer: []any{"A", "B", "C"}, score: 7.5, partial: true},
		{name: "duplicates collapse", correct: []any{"A", "B"}, answer: []any{"A", "a", "B"}, score: 10, full: true},
		{name: "thirds round", correct: []any{"A", "B", "C"}, answer: []any{"A"}, score: 3.33, partial: true},
		{name: "nothing selected", correct: []any{"A"}, answer: nil, score: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := grade(t, Definition{Type: "multiple_select", CorrectAnswer: tc.correct}, tc.answer)
			if res.Score != tc.score || res.IsCorrect != tc.full || res.IsPartial != tc.partial {
				t.Fatalf("got %+v", res)
			}
		})
	}
}

func TestMultipleSelectEndToEnd(t *testing.T) {
	res := grade(t, Definition{Type: "multiple_select", CorrectAnswer: []any{"A", "C"}, MaxPoints: 10}, []any{"A", "B"})
	if res.Score != 2.5 || res.Percentage != 25 || !res.IsPartial {
		t.Fatalf("got %+v", res)
	}
	if res.Details["correct_selected"] != 1 || res.Details["wrong_selected"] != 1 {
		t.Fatalf("unexpected details %+v", res.Details)
	}
}

func TestMultipleSelectEmptyKeyIsFullCredit(t *testing.T) {
	res := grade(t, Definition{Type: "multiple_select"}, []any{"A"})
	if !res.IsCorrect || res.Score != res.MaxScore {
		t.Fatalf("got %+v", res)
	}
}

func TestMultipleSelectFullSelectionKeepsOddMaxPoints(t *testing.T) {
	res := NewEngine().Grade(context.Background(),
		Definition{Type: "multiple_select", CorrectAnswer: []any{"A", "B", "C"}}, []any{"A", "B", "C"}, 3.333)
	assertInvariants(t, res)
	if res.Score != 3.333 || !res.IsCorrect || res.IsPartial || res.Percentage != 100 {
		t.Fatalf("got %+v", res)
	}
}
