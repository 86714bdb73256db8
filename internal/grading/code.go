package grading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultSandboxTimeout bounds a single sandbox call.
const DefaultSandboxTimeout = 30 * time.Second

// TestCase is one input/expected-output pair run against submitted code.
type TestCase struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

// TestOutcome is the sandbox's verdict for one TestCase.
type TestOutcome struct {
	Passed   bool   `json:"passed"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SandboxReport is what a sandbox returns for a whole run.
type SandboxReport struct {
	Score    float64       `json:"score"`
	MaxScore float64       `json:"max_score"`
	Results  []TestOutcome `json:"results"`
}

// Passed counts the passing outcomes.
func (r SandboxReport) Passed() int {
	n := 0
	for _, o := range r.Results {
		if o.Passed {
			n++
		}
	}
	return n
}

// Sandbox executes untrusted code against test cases.
type Sandbox interface {
	RunTests(ctx context.Context, code, language string, tests []TestCase) (SandboxReport, error)
}

// CodeSubmission is the answer payload of a code question.
type CodeSubmission struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type codeGrader struct {
	sandbox Sandbox
	timeout time.Duration
}

func (g codeGrader) grade(ctx context.Context, q Code, sub CodeSubmission, max float64) Result {
	if strings.TrimSpace(sub.Code) == "" {
		return zeroResult(max, "No code submitted", nil)
	}
	if len(q.Tests) == 0 {
		return unconfigured(max, "test cases")
	}
	if g.sandbox == nil {
		return zeroResult(max, "Code execution failed: sandbox not configured", nil)
	}
	lang := q.Language
	if sub.Language != "" {
		lang = strings.ToLower(sub.Language)
	}

	report, err := g.run(ctx, sub.Code, lang, q.Tests)
	if err != nil {
		return zeroResult(max, "Code execution failed: "+err.Error(), map[string]any{"error": err.Error()})
	}

	pct := 0.0
	if report.MaxScore > 0 {
		pct = math.Round(100 * clamp(report.Score/report.MaxScore, 0, 1))
	}
	passed, total := report.Passed(), len(report.Results)
	details := map[string]any{
		"language":           lang,
		"passed":             passed,
		"total":              total,
		"sandbox_score":      report.Score,
		"sandbox_max":        report.MaxScore,
		"sandbox_percentage": int(pct),
		"results":            report.Results,
	}
	score := round2(pct / 100 * max)
	if pct >= 100 {
		score = max
	}
	return newResult(score, max, pct >= 100, fmt.Sprintf("%d/%d tests passed", passed, total), details)
}

var errSandboxTimeout = errors.New("execution timed out")

// run calls the sandbox under the grader's timeout. A sandbox that ignores the
// context is abandoned when the deadline fires; a panic becomes an error.
func (g codeGrader) run(ctx context.Context, code, lang string, tests []TestCase) (SandboxReport, error) {
	timeout := g.timeout
	if timeout <= 0 {
		timeout = DefaultSandboxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		report SandboxReport
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("sandbox panic: %v", r)}
			}
		}()
		rep, err := g.sandbox.RunTests(ctx, code, lang, tests)
		done <- outcome{report: rep, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) {
			return SandboxReport{}, fmt.Errorf("%w after %s", errSandboxTimeout, timeout)
		}
		return o.report, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return SandboxReport{}, fmt.Errorf("%w after %s", errSandboxTimeout, timeout)
		}
		return SandboxReport{}, ctx.Err()
	}
}
