//go:build cucumber

package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

// TestGradingScenarios runs the grading feature scenarios.
func TestGradingScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "grading",
		ScenarioInitializer: InitializeGradingScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/grading.feature"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeGradingScenario wires the grading steps.
func InitializeGradingScenario(ctx *godog.ScenarioContext) {
	state := &gradingScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a "([^"]+)" question worth ([\d.]+) points with key (.+)$`, state.givenQuestion)
	ctx.Step(`^the question meta is:$`, state.givenMeta)
	ctx.Step(`^an exam:$`, state.givenExam)
	ctx.Step(`^the answer is (.+)$`, state.whenAnswered)
	ctx.Step(`^the exam is graded$`, state.whenExamGraded)
	ctx.Step(`^the score is ([\d.]+)$`, state.thenScore)
	ctx.Step(`^the result is (correct|partial|incorrect)$`, state.thenVerdict)
	ctx.Step(`^the result needs manual grading$`, state.thenNeedsManual)
	ctx.Step(`^the feedback contains "([^"]+)"$`, state.thenFeedbackContains)
	ctx.Step(`^the total is ([\d.]+) of ([\d.]+)$`, state.thenTotal)
	ctx.Step(`^the percentage is (\d+)$`, state.thenPercentage)
}

type gradingScenarioState struct {
	engine   *Engine
	question Definition
	items    []Item
	result   Result
	agg      AggregateResult
}

func (s *gradingScenarioState) reset() {
	s.engine = NewEngine(WithConcurrency(4))
	s.question = Definition{}
	s.items = nil
	s.result = Result{}
	s.agg = AggregateResult{}
}

func (s *gradingScenarioState) givenQuestion(kind, points, key string) error {
	max, err := strconv.ParseFloat(points, 64)
	if err != nil {
		return err
	}
	var correct any
	if err := json.Unmarshal([]byte(key), &correct); err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	s.question = Definition{Type: kind, CorrectAnswer: correct, MaxPoints: max}
	return nil
}

func (s *gradingScenarioState) givenMeta(doc *godog.DocString) error {
	return json.Unmarshal([]byte(doc.Content), &s.question.Meta)
}

func (s *gradingScenarioState) givenExam(doc *godog.DocString) error {
	return json.Unmarshal([]byte(doc.Content), &s.items)
}

func (s *gradingScenarioState) whenAnswered(raw string) error {
	var answer any
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return fmt.Errorf("answer %q: %w", raw, err)
	}
	s.result = s.engine.Grade(context.Background(), s.question, answer, 0)
	return nil
}

func (s *gradingScenarioState) whenExamGraded() error {
	s.agg = s.engine.GradeAll(context.Background(), s.items)
	return nil
}

func (s *gradingScenarioState) thenScore(want float64) error {
	if s.result.Score != want {
		return fmt.Errorf("score %v, want %v (%+v)", s.result.Score, want, s.result)
	}
	return nil
}

func (s *gradingScenarioState) thenVerdict(verdict string) error {
	var ok bool
	switch verdict {
	case "correct":
		ok = s.result.IsCorrect
	case "partial":
		ok = s.result.IsPartial
	default:
		ok = !s.result.IsCorrect && !s.result.IsPartial
	}
	if !ok {
		return fmt.Errorf("expected %s result, got %+v", verdict, s.result)
	}
	return nil
}

func (s *gradingScenarioState) thenNeedsManual() error {
	if !s.result.NeedsManual() {
		return fmt.Errorf("expected manual grading flag, got %+v", s.result.Details)
	}
	return nil
}

func (s *gradingScenarioState) thenFeedbackContains(text string) error {
	if !strings.Contains(s.result.Feedback, text) {
		return fmt.Errorf("feedback %q does not contain %q", s.result.Feedback, text)
	}
	return nil
}

func (s *gradingScenarioState) thenTotal(score, max float64) error {
	if s.agg.TotalScore != score || s.agg.TotalMaxScore != max {
		return fmt.Errorf("total %v of %v, want %v of %v", s.agg.TotalScore, s.agg.TotalMaxScore, score, max)
	}
	return nil
}

func (s *gradingScenarioState) thenPercentage(want int) error {
	if s.agg.Percentage != want {
		return fmt.Errorf("percentage %d, want %d", s.agg.Percentage, want)
	}
	return nil
}
