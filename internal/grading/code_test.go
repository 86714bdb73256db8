package grading

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeSandbox struct {
	report SandboxReport
	err    error
	delay  time.Duration
	calls  int
	lang   string
}

func (f *fakeSandbox) RunTests(ctx context.Context, code, language string, tests []TestCase) (SandboxReport, error) {
	f.calls++
	f.lang = language
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.report, f.err
}

func codeQuestion() Definition {
	return Definition{
		Type:      "code",
		MaxPoints: 20,
		Meta: map[string]any{
			"language": "Python",
			"tests": []any{
				map[string]any{"input": "1 2", "output": "3"},
				map[string]any{"input": "2 2", "output": "4"},
				map[string]any{"input": "0 0", "output": "0"},
				map[string]any{"input": "5 5", "output": "10"},
			},
		},
	}
}

func reportOf(passed ...bool) SandboxReport {
	r := SandboxReport{MaxScore: float64(len(passed))}
	for _, p := range passed {
		r.Results = append(r.Results, TestOutcome{Passed: p})
		if p {
			r.Score++
		}
	}
	return r
}

func TestCodeGrading(t *testing.T) {
	tests := []struct {
		name    string
		report  SandboxReport
		score   float64
		full    bool
		partial bool
	}{
		{"all pass", reportOf(true, true, true, true), 20, true, false},
		{"three of four", reportOf(true, true, true, false), 15, false, true},
		{"none", reportOf(false, false, false, false), 0, false, false},
		{"sandbox scale differs", SandboxReport{Score: 1, MaxScore: 3, Results: []TestOutcome{{Passed: true}, {}, {}}}, 6.6, false, true},
		{"two thirds scale through whole percent", SandboxReport{Score: 2, MaxScore: 3, Results: []TestOutcome{{Passed: true}, {Passed: true}, {}}}, 13.4, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sb := &fakeSandbox{report: tc.report}
			res := NewEngine(WithSandbox(sb)).Grade(context.Background(), codeQuestion(), "print(sum(map(int, input().split())))", 0)
			assertInvariants(t, res)
			if res.Score != tc.score || res.IsCorrect != tc.full || res.IsPartial != tc.partial {
				t.Fatalf("got %+v", res)
			}
			if sb.lang != "python" {
				t.Fatalf("language %q, want python", sb.lang)
			}
		})
	}
}

func TestCodeBlankSubmissionSkipsSandbox(t *testing.T) {
	sb := &fakeSandbox{report: reportOf(true)}
	res := NewEngine(WithSandbox(sb)).Grade(context.Background(), codeQuestion(), map[string]any{"code": "   \n"}, 0)
	if res.Score != 0 || sb.calls != 0 {
		t.Fatalf("got %+v after %d sandbox calls", res, sb.calls)
	}
}

func TestCodeSandboxError(t *testing.T) {
	sb := &fakeSandbox{err: errors.New("compile error: line 1")}
	res := NewEngine(WithSandbox(sb)).Grade(context.Background(), codeQuestion(), "print(", 0)
	assertInvariants(t, res)
	if res.Score != 0 || !strings.Contains(res.Feedback, "compile error: line 1") {
		t.Fatalf("got %+v", res)
	}
}

func TestCodeSandboxTimeout(t *testing.T) {
	sb := &fakeSandbox{report: reportOf(true, true, true, true), delay: 200 * time.Millisecond}
	e := NewEngine(WithSandbox(sb), WithSandboxTimeout(20*time.Millisecond))
	res := e.Grade(context.Background(), codeQuestion(), "while True: pass", 0)
	if res.Score != 0 || res.IsPartial || !strings.Contains(res.Feedback, "timed out") {
		t.Fatalf("got %+v", res)
	}
}

func TestCodeLanguageFromAnswer(t *testing.T) {
	sb := &fakeSandbox{report: reportOf(true)}
	NewEngine(WithSandbox(sb)).Grade(context.Background(), codeQuestion(), map[string]any{"code": "x", "language": "Go"}, 0)
	if sb.lang != "go" {
		t.Fatalf("language %q, want go", sb.lang)
	}
}

func TestCodeWithoutSandbox(t *testing.T) {
	res := NewEngine().Grade(context.Background(), codeQuestion(), "print(1)", 0)
	if res.Score != 0 || !strings.Contains(res.Feedback, "sandbox not configured") {
		t.Fatalf("got %+v", res)
	}
}

func TestCodeScoreFollowsSandboxPercentage(t *testing.T) {
	sb := &fakeSandbox{report: SandboxReport{Score: 1, MaxScore: 3, Results: []TestOutcome{{Passed: true}, {}, {}}}}
	res := NewEngine(WithSandbox(sb)).Grade(context.Background(), codeQuestion(), "print(1)", 10)
	if res.Score != 3.3 || res.Details["sandbox_percentage"] != 33 {
		t.Fatalf("got %+v", res)
	}
}
