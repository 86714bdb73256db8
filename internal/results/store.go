package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/mindengage-grading/internal/db"
	"github.com/mind-engage/mindengage-grading/internal/grading"
	syncx "github.com/mind-engage/mindengage-grading/internal/sync"
)

var (
	ErrNotFound     = errors.New("submission not found")
	ErrNotManual    = errors.New("question is graded automatically")
	ErrInvalidGrade = errors.New("manual grade needs points or rubric awards")
	ErrNotGraded    = errors.New("submission is not graded yet")
)

type Status string

const (
	StatusQueued Status = "queued"
	StatusGraded Status = "graded"
	StatusFailed Status = "failed"
)

// NewSubmission is what a client hands in for grading.
type NewSubmission struct {
	ExamID string         `json:"exam_id"`
	UserID string         `json:"user_id"`
	Items  []grading.Item `json:"items"`
}

type Submission struct {
	ID        string                   `json:"id"`
	ExamID    string                   `json:"exam_id"`
	UserID    string                   `json:"user_id"`
	Status    Status                   `json:"status"`
	Items     []grading.Item           `json:"items"`
	Result    *grading.AggregateResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
	CreatedAt int64                    `json:"created_at"`
	GradedAt  *int64                   `json:"graded_at,omitempty"`
}

// ManualGrade is a reviewer's verdict on one item. Points wins over Awards.
type ManualGrade struct {
	Points   *float64           `json:"points,omitempty"`
	Awards   map[string]float64 `json:"awards,omitempty"`
	Comment  string             `json:"comment,omitempty"`
	GradedBy string             `json:"-"`
}

type submissionRow struct {
	ID            string        `db:"id"`
	ExamID        string        `db:"exam_id"`
	UserID        string        `db:"user_id"`
	Status        string        `db:"status"`
	ItemsJSON     string        `db:"items_json"`
	TotalScore    float64       `db:"total_score"`
	TotalMaxScore float64       `db:"total_max_score"`
	Percentage    int           `db:"percentage"`
	Error         string        `db:"error"`
	CreatedAt     int64         `db:"created_at"`
	GradedAt      sql.NullInt64 `db:"graded_at"`
}

type gradeRow struct {
	Idx        int    `db:"idx"`
	ResultJSON string `db:"result_json"`
}

type Store struct {
	db     *sqlx.DB
	events *syncx.EventRepo
}

func NewStore(dbx *sqlx.DB) *Store {
	return &Store{db: dbx, events: syncx.NewEventRepo(dbx)}
}

// Create records a queued submission to be graded later.
func (s *Store) Create(ctx context.Context, in NewSubmission) (Submission, error) {
	var out Submission
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		out, err = s.insert(ctx, tx, in)
		return err
	})
	return out, err
}

// Save records a submission together with its grades in one transaction.
func (s *Store) Save(ctx context.Context, in NewSubmission, agg grading.AggregateResult) (Submission, error) {
	var out Submission
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		sub, err := s.insert(ctx, tx, in)
		if err != nil {
			return err
		}
		if err := s.complete(ctx, tx, sub.ID, in.Items, agg); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return Submission{}, err
	}
	return s.Get(ctx, out.ID)
}

// Complete stores the grades of a queued (or failed) submission.
func (s *Store) Complete(ctx context.Context, id string, agg grading.AggregateResult) error {
	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		row, err := getRow(ctx, tx, id)
		if err != nil {
			return err
		}
		var items []grading.Item
		if err := json.Unmarshal([]byte(row.ItemsJSON), &items); err != nil {
			return fmt.Errorf("decode items: %w", err)
		}
		return s.complete(ctx, tx, id, items, agg)
	})
}

// MarkFailed flags a submission whose grading could not run.
func (s *Store) MarkFailed(ctx context.Context, id string, cause error) error {
	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE submissions SET status=?, error=? WHERE id=?`),
			string(StatusFailed), cause.Error(), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		ev, err := syncx.NewEvent(syncx.EventSubmissionFailed, id, map[string]string{"error": cause.Error()})
		if err != nil {
			return err
		}
		return s.events.Append(ctx, tx, ev)
	})
}

func (s *Store) Get(ctx context.Context, id string) (Submission, error) {
	row, err := getRow(ctx, s.db, id)
	if err != nil {
		return Submission{}, err
	}
	sub, err := row.submission()
	if err != nil {
		return Submission{}, err
	}
	if Status(row.Status) != StatusGraded {
		return sub, nil
	}
	results, err := loadResults(ctx, s.db, id)
	if err != nil {
		return Submission{}, err
	}
	agg := grading.AggregateResult{
		Results:       results,
		TotalScore:    row.TotalScore,
		TotalMaxScore: row.TotalMaxScore,
		Percentage:    row.Percentage,
	}
	sub.Result = &agg
	return sub, nil
}

// ApplyManualGrade replaces the result of item index with a reviewer's grade
// and recomputes the submission totals.
func (s *Store) ApplyManualGrade(ctx context.Context, id string, index int, g ManualGrade) (Submission, error) {
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		row, err := getRow(ctx, tx, id)
		if err != nil {
			return err
		}
		if Status(row.Status) != StatusGraded {
			return ErrNotGraded
		}
		var items []grading.Item
		if err := json.Unmarshal([]byte(row.ItemsJSON), &items); err != nil {
			return fmt.Errorf("decode items: %w", err)
		}
		results, err := loadResults(ctx, tx, id)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(results) || index >= len(items) {
			return fmt.Errorf("%w: no item %d", ErrNotFound, index)
		}
		prev := results[index]
		if !prev.NeedsManual() && prev.Details["manually_graded"] != true {
			return ErrNotManual
		}

		points, err := manualPoints(items[index].Question, g)
		if err != nil {
			return err
		}
		res := grading.ManualResult(points, prev.MaxScore, g.Comment)
		res.Details["graded_by"] = g.GradedBy
		results[index] = res

		if err := putGrade(ctx, tx, id, index, items[index], res, g.GradedBy); err != nil {
			return err
		}
		agg := grading.Summarize(results)
		if err := putTotals(ctx, tx, id, agg); err != nil {
			return err
		}
		ev, err := syncx.NewEvent(syncx.EventManualGradeApplied, id, map[string]any{
			"index": index, "score": res.Score, "graded_by": g.GradedBy,
		})
		if err != nil {
			return err
		}
		return s.events.Append(ctx, tx, ev)
	})
	if err != nil {
		return Submission{}, err
	}
	return s.Get(ctx, id)
}

func manualPoints(q grading.Definition, g ManualGrade) (float64, error) {
	if g.Points != nil {
		return *g.Points, nil
	}
	if len(g.Awards) == 0 {
		return 0, ErrInvalidGrade
	}
	decoded, err := grading.Decode(q)
	if err != nil {
		return 0, err
	}
	la, ok := decoded.(grading.LongAnswer)
	if !ok || la.Rubric == nil {
		return 0, fmt.Errorf("%w: question has no rubric", ErrInvalidGrade)
	}
	total, _ := grading.ScoreRubric(*la.Rubric, g.Awards)
	return total, nil
}

func (s *Store) insert(ctx context.Context, tx *sqlx.Tx, in NewSubmission) (Submission, error) {
	if in.Items == nil {
		in.Items = []grading.Item{}
	}
	items, err := json.Marshal(in.Items)
	if err != nil {
		return Submission{}, fmt.Errorf("encode items: %w", err)
	}
	sub := Submission{
		ID:        uuid.NewString(),
		ExamID:    in.ExamID,
		UserID:    in.UserID,
		Status:    StatusQueued,
		Items:     in.Items,
		CreatedAt: time.Now().Unix(),
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO submissions (id, exam_id, user_id, status, items_json, created_at)
		 VALUES (?,?,?,?,?,?)`),
		sub.ID, sub.ExamID, sub.UserID, string(sub.Status), string(items), sub.CreatedAt)
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (s *Store) complete(ctx context.Context, tx *sqlx.Tx, id string, items []grading.Item, agg grading.AggregateResult) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM grades WHERE submission_id=?`), id); err != nil {
		return err
	}
	for i, res := range agg.Results {
		var it grading.Item
		if i < len(items) {
			it = items[i]
		}
		if err := putGrade(ctx, tx, id, i, it, res, ""); err != nil {
			return err
		}
	}
	if err := putTotals(ctx, tx, id, agg); err != nil {
		return err
	}
	ev, err := syncx.NewEvent(syncx.EventSubmissionGraded, id, map[string]any{
		"total_score": agg.TotalScore, "total_max_score": agg.TotalMaxScore, "percentage": agg.Percentage,
	})
	if err != nil {
		return err
	}
	return s.events.Append(ctx, tx, ev)
}

func putGrade(ctx context.Context, tx *sqlx.Tx, id string, idx int, it grading.Item, res grading.Result, by string) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result %d: %w", idx, err)
	}
	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM grades WHERE submission_id=? AND idx=?`), id, idx); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO grades (submission_id, idx, question_id, question_type, score, max_score, result_json, needs_manual, graded_by, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`),
		id, idx, it.Question.ID, it.Question.Type, res.Score, res.MaxScore, string(b), res.NeedsManual(), by, now)
	return err
}

func putTotals(ctx context.Context, tx *sqlx.Tx, id string, agg grading.AggregateResult) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE submissions SET status=?, total_score=?, total_max_score=?, percentage=?, error='', graded_at=?
		 WHERE id=?`),
		string(StatusGraded), agg.TotalScore, agg.TotalMaxScore, agg.Percentage, time.Now().Unix(), id)
	return err
}

func getRow(ctx context.Context, q sqlx.QueryerContext, id string) (submissionRow, error) {
	var row submissionRow
	err := sqlx.GetContext(ctx, q, &row, sqlx.Rebind(sqlx.BindType(driverOf(q)),
		`SELECT id, exam_id, user_id, status, items_json, total_score, total_max_score, percentage, error, created_at, graded_at
		   FROM submissions WHERE id=?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return row, ErrNotFound
	}
	return row, err
}

func loadResults(ctx context.Context, q sqlx.QueryerContext, id string) ([]grading.Result, error) {
	var rows []gradeRow
	err := sqlx.SelectContext(ctx, q, &rows, sqlx.Rebind(sqlx.BindType(driverOf(q)),
		`SELECT idx, result_json FROM grades WHERE submission_id=? ORDER BY idx`), id)
	if err != nil {
		return nil, err
	}
	out := make([]grading.Result, len(rows))
	for i, r := range rows {
		if err := json.Unmarshal([]byte(r.ResultJSON), &out[i]); err != nil {
			return nil, fmt.Errorf("decode grade %d: %w", r.Idx, err)
		}
	}
	return out, nil
}

func driverOf(q sqlx.QueryerContext) string {
	if d, ok := q.(interface{ DriverName() string }); ok {
		return d.DriverName()
	}
	return ""
}

func (r submissionRow) submission() (Submission, error) {
	sub := Submission{
		ID:        r.ID,
		ExamID:    r.ExamID,
		UserID:    r.UserID,
		Status:    Status(r.Status),
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.ItemsJSON), &sub.Items); err != nil {
		return Submission{}, fmt.Errorf("decode items: %w", err)
	}
	if r.GradedAt.Valid {
		v := r.GradedAt.Int64
		sub.GradedAt = &v
	}
	return sub, nil
}
