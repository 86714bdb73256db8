package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/results"
)

const TypeGradeSubmission = "grading:submission"

// GradePayload is the body of a grading:submission task.
type GradePayload struct {
	SubmissionID string         `json:"submission_id"`
	Items        []grading.Item `json:"items"`
}

func NewGradeSubmissionTask(submissionID string, items []grading.Item) (*asynq.Task, error) {
	b, err := json.Marshal(GradePayload{SubmissionID: submissionID, Items: items})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGradeSubmission, b, asynq.MaxRetry(3)), nil
}

// Store is the subset of the results store the worker writes to.
type Store interface {
	Complete(ctx context.Context, id string, agg grading.AggregateResult) error
	MarkFailed(ctx context.Context, id string, cause error) error
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueue schedules grading of a stored submission.
func Enqueue(ctx context.Context, q Enqueuer, submissionID string, items []grading.Item) error {
	task, err := NewGradeSubmissionTask(submissionID, items)
	if err != nil {
		return err
	}
	if _, err := q.EnqueueContext(ctx, task, asynq.TaskID(submissionID)); err != nil {
		return fmt.Errorf("enqueue %s: %w", submissionID, err)
	}
	return nil
}

// Server grades queued submissions.
type Server struct {
	Store       Store
	Grader      grading.Grader
	Concurrency int
}

func (s *Server) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeGradeSubmission, s.HandleGradeSubmission)
	return mux
}

func (s *Server) HandleGradeSubmission(ctx context.Context, t *asynq.Task) error {
	var p GradePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// a malformed payload never succeeds on retry
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.SubmissionID == "" {
		return fmt.Errorf("missing submission_id: %w", asynq.SkipRetry)
	}
	log.Printf("grading submission %s (%d items)", p.SubmissionID, len(p.Items))

	agg := grading.Aggregate(ctx, s.Grader, p.Items, s.Concurrency)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Store.Complete(ctx, p.SubmissionID, agg); err != nil {
		if errors.Is(err, results.ErrNotFound) {
			return fmt.Errorf("submission %s: %w", p.SubmissionID, asynq.SkipRetry)
		}
		return err
	}
	log.Printf("graded submission %s: %.2f/%.2f (%d%%)", p.SubmissionID, agg.TotalScore, agg.TotalMaxScore, agg.Percentage)
	return nil
}

// ErrorHandler marks a submission failed once its task has exhausted retries.
func (s *Server) ErrorHandler() asynq.ErrorHandler {
	return asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried < maxRetry && !errors.Is(err, asynq.SkipRetry) {
			return
		}
		var p GradePayload
		if json.Unmarshal(t.Payload(), &p) != nil || p.SubmissionID == "" {
			return
		}
		if ferr := s.Store.MarkFailed(ctx, p.SubmissionID, err); ferr != nil {
			log.Printf("mark submission %s failed: %v", p.SubmissionID, ferr)
		}
	})
}

// Run blocks serving tasks from Redis at addr.
func Run(addr string, s *Server, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: addr}, asynq.Config{
		Concurrency:  concurrency,
		ErrorHandler: s.ErrorHandler(),
	})
	return srv.Run(s.Mux())
}
