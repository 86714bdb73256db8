package results

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-grading/internal/db"
	"github.com/mind-engage/mindengage-grading/internal/grading"
	syncx "github.com/mind-engage/mindengage-grading/internal/sync"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "results.db") + "?_pragma=foreign_keys(1)"
	dbx, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { dbx.Close() })
	return NewStore(dbx)
}

func essayExam() NewSubmission {
	return NewSubmission{
		ExamID: "exam-1",
		UserID: "u-1",
		Items: []grading.Item{
			{Question: grading.Definition{ID: "q1", Type: "multiple_choice", CorrectAnswer: "B"}, Answer: "B"},
			{Question: grading.Definition{ID: "q2", Type: "long_answer", MaxPoints: 10, Meta: map[string]any{
				"rubric": map[string]any{"criteria": []any{
					map[string]any{"key": "thesis", "max_points": 4},
					map[string]any{"key": "evidence", "max_points": 6},
				}},
			}}, Answer: "An essay"},
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	in := essayExam()
	agg := grading.NewEngine().GradeAll(ctx, in.Items)

	sub, err := s.Save(ctx, in, agg)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if sub.Status != StatusGraded || sub.Result == nil || sub.GradedAt == nil {
		t.Fatalf("got %+v", sub)
	}
	if sub.Result.TotalScore != 10 || sub.Result.TotalMaxScore != 20 || sub.Result.Percentage != 50 {
		t.Fatalf("totals %+v", sub.Result)
	}
	if len(sub.Result.Results) != 2 || !sub.Result.Results[1].NeedsManual() {
		t.Fatalf("results %+v", sub.Result.Results)
	}
	if len(sub.Items) != 2 || sub.Items[0].Question.ID != "q1" {
		t.Fatalf("items %+v", sub.Items)
	}

	events, err := s.events.Since(ctx, 0, 10)
	if err != nil || len(events) != 1 || events[0].Type != syncx.EventSubmissionGraded || events[0].Key != sub.ID {
		t.Fatalf("events %+v (%v)", events, err)
	}
}

func TestCreateCompleteAndFail(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	in := essayExam()

	sub, err := s.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Get(ctx, sub.ID)
	if err != nil || got.Status != StatusQueued || got.Result != nil {
		t.Fatalf("queued submission %+v (%v)", got, err)
	}

	if err := s.MarkFailed(ctx, sub.ID, errors.New("redis down")); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	got, _ = s.Get(ctx, sub.ID)
	if got.Status != StatusFailed || got.Error != "redis down" {
		t.Fatalf("failed submission %+v", got)
	}

	if err := s.Complete(ctx, sub.ID, grading.NewEngine().GradeAll(ctx, in.Items)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ = s.Get(ctx, sub.ID)
	if got.Status != StatusGraded || got.Error != "" || got.Result.TotalScore != 10 {
		t.Fatalf("completed submission %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := newStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := s.MarkFailed(context.Background(), "nope", errors.New("x")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestApplyManualGrade(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	in := essayExam()
	sub, err := s.Save(ctx, in, grading.NewEngine().GradeAll(ctx, in.Items))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := s.ApplyManualGrade(ctx, sub.ID, 0, ManualGrade{Points: ptr(5)}); !errors.Is(err, ErrNotManual) {
		t.Fatalf("auto-graded item: err = %v", err)
	}
	if _, err := s.ApplyManualGrade(ctx, sub.ID, 1, ManualGrade{}); !errors.Is(err, ErrInvalidGrade) {
		t.Fatalf("empty grade: err = %v", err)
	}
	if _, err := s.ApplyManualGrade(ctx, sub.ID, 7, ManualGrade{Points: ptr(1)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bad index: err = %v", err)
	}

	got, err := s.ApplyManualGrade(ctx, sub.ID, 1, ManualGrade{
		Awards:   map[string]float64{"thesis": 4, "evidence": 2.5},
		Comment:  "solid thesis",
		GradedBy: "teacher-1",
	})
	if err != nil {
		t.Fatalf("ApplyManualGrade: %v", err)
	}
	r := got.Result.Results[1]
	if r.Score != 6.5 || !r.IsPartial || r.Feedback != "solid thesis" || r.Details["graded_by"] != "teacher-1" {
		t.Fatalf("manual result %+v", r)
	}
	if got.Result.TotalScore != 16.5 || got.Result.Percentage != 83 {
		t.Fatalf("totals %+v", got.Result)
	}

	// a manually graded item can be regraded
	got, err = s.ApplyManualGrade(ctx, sub.ID, 1, ManualGrade{Points: ptr(12)})
	if err != nil {
		t.Fatalf("regrade: %v", err)
	}
	if got.Result.Results[1].Score != 10 || got.Result.TotalScore != 20 || got.Result.Percentage != 100 {
		t.Fatalf("regrade totals %+v", got.Result)
	}

	events, _ := s.events.Since(ctx, 0, 10)
	if len(events) != 3 || events[2].Type != syncx.EventManualGradeApplied {
		t.Fatalf("events %+v", events)
	}
}

func TestApplyManualGradeBeforeGrading(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	sub, err := s.Create(ctx, essayExam())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ApplyManualGrade(ctx, sub.ID, 1, ManualGrade{Points: ptr(1)}); !errors.Is(err, ErrNotGraded) {
		t.Fatalf("err = %v", err)
	}
}

func ptr(v float64) *float64 { return &v }
