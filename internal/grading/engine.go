package grading

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Grader grades one response. Implementations never fail: every outcome,
// including a broken question, is expressed as a Result.
type Grader interface {
	Grade(ctx context.Context, q Definition, answer any, maxPoints float64) Result
}

// Engine options

type Option func(*config)

type config struct {
	Sandbox        Sandbox
	SandboxTimeout time.Duration
	Concurrency    int
}

func WithSandbox(s Sandbox) Option { return func(c *config) { c.Sandbox = s } }
func WithSandboxTimeout(d time.Duration) Option {
	return func(c *config) { c.SandboxTimeout = d }
}

// WithConcurrency lets GradeAll grade up to n items at once. n <= 1 grades sequentially.
func WithConcurrency(n int) Option { return func(c *config) { c.Concurrency = n } }

// Engine dispatches a question to the grader for its kind. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	code        codeGrader
	concurrency int
}

// NewEngine builds an Engine. Without WithSandbox, code questions grade to zero.
func NewEngine(opts ...Option) *Engine {
	cfg := &config{SandboxTimeout: DefaultSandboxTimeout, Concurrency: 1}
	for _, o := range opts {
		o(cfg)
	}
	return &Engine{
		code:        codeGrader{sandbox: cfg.Sandbox, timeout: cfg.SandboxTimeout},
		concurrency: cfg.Concurrency,
	}
}

// Grade scores answer against q. maxPoints > 0 overrides q.MaxPoints; when both
// are unset the question is worth DefaultMaxPoints.
func (e *Engine) Grade(ctx context.Context, q Definition, answer any, maxPoints float64) (res Result) {
	max := resolvePoints(maxPoints, q.MaxPoints)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("grading: recovered panic for %s question %q: %v", q.Type, q.ID, r)
			res = zeroResult(max, fmt.Sprintf("Grading failed: %v", r), nil)
		}
	}()

	question, err := Decode(q)
	if err != nil {
		if errors.Is(err, ErrUnknownKind) {
			return zeroResult(max, fmt.Sprintf("Unknown question type: %q", q.Type), nil)
		}
		return zeroResult(max, "Invalid question definition: "+err.Error(), nil)
	}
	return e.dispatch(ctx, question, answer, max)
}

func (e *Engine) dispatch(ctx context.Context, question Question, answer any, max float64) Result {
	switch q := question.(type) {
	case MultipleChoice:
		return gradeMultipleChoice(q, answerText(answer), max)
	case TrueFalse:
		return gradeTrueFalse(q, answer, max)
	case MultipleSelect:
		return gradeMultipleSelect(q, textsOf(answer), max)
	case Matching:
		return gradeMatching(q, pairsOf(answer), max)
	case Ordering:
		return gradeOrdering(q, textsOf(answer), max)
	case FillBlank:
		return gradeFillBlank(q, answerText(answer), max)
	case ShortAnswer:
		return gradeShortAnswer(q, answerText(answer), max)
	case LongAnswer:
		return gradeLongAnswer(q, answerText(answer), max)
	case Hotspot:
		p, ok := answerPoint(answer)
		return gradeHotspot(q, p, ok, max)
	case Calculation:
		return gradeCalculation(q, answerText(answer), max)
	case Code:
		return e.code.grade(ctx, q, answerCode(answer), max)
	case FileUpload:
		return gradeFileUpload(q, answerFile(answer), max)
	default:
		return zeroResult(max, fmt.Sprintf("Unknown question type: %q", question.Kind()), nil)
	}
}

// answerText reads a scalar answer; absent answers are the empty string.
func answerText(v any) string {
	if v == nil {
		return ""
	}
	return textOf(v)
}

func answerPoint(v any) (Point, bool) {
	var p Point
	switch t := v.(type) {
	case Point:
		return t, true
	case nil:
		return p, false
	case map[string]any:
		x, xok := floatOf(t["x"])
		y, yok := floatOf(t["y"])
		return Point{X: x, Y: y}, xok && yok
	}
	if err := remarshal(v, &p); err != nil {
		return p, false
	}
	return p, true
}

func answerCode(v any) CodeSubmission {
	switch t := v.(type) {
	case CodeSubmission:
		return t
	case string:
		return CodeSubmission{Code: t}
	case map[string]any:
		code, _ := t["code"].(string)
		lang, _ := t["language"].(string)
		return CodeSubmission{Code: code, Language: strings.TrimSpace(lang)}
	}
	return CodeSubmission{}
}

func answerFile(v any) FileSubmission {
	switch t := v.(type) {
	case FileSubmission:
		return t
	case string:
		return FileSubmission{Filename: t}
	case map[string]any:
		var f FileSubmission
		if err := remarshal(t, &f); err != nil {
			f = FileSubmission{}
			f.Filename, _ = t["filename"].(string)
		}
		if f.Filename == "" {
			f.Filename, _ = t["name"].(string)
		}
		return f
	}
	return FileSubmission{}
}
