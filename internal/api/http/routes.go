package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/omr"
	"github.com/mind-engage/mindengage-grading/internal/rbac"
	"github.com/mind-engage/mindengage-grading/internal/results"
	"github.com/mind-engage/mindengage-grading/internal/storage"
	"github.com/mind-engage/mindengage-grading/internal/worker"
)

// Submissions is the results store as seen by the handlers.
type Submissions interface {
	Create(ctx context.Context, in results.NewSubmission) (results.Submission, error)
	Save(ctx context.Context, in results.NewSubmission, agg grading.AggregateResult) (results.Submission, error)
	Get(ctx context.Context, id string) (results.Submission, error)
	ApplyManualGrade(ctx context.Context, id string, index int, g results.ManualGrade) (results.Submission, error)
	MarkFailed(ctx context.Context, id string, cause error) error
}

// Deps wires the handlers. Queue and OMR may be nil; their routes then answer 503.
type Deps struct {
	Grader      grading.Grader
	Concurrency int
	Store       Submissions
	Queue       worker.Enqueuer
	Blobs       storage.BlobStore
	OMR         *omr.Client
	MaxUpload   int64
}

const maxJSONBody = 4 << 20

// Mount registers the protected grading API on r. Callers put the JWT
// middleware in front of it.
func Mount(r chi.Router, d Deps) {
	if d.MaxUpload <= 0 {
		d.MaxUpload = 20 << 20
	}

	r.With(rbac.Require(rbac.PermGradeRun)).
		Post("/grade", GradeHandler(d.Grader))
	r.With(rbac.Require(rbac.PermGradeRun)).
		Post("/grade/batch", GradeBatchHandler(d.Grader, d.Concurrency))

	r.With(rbac.Require(rbac.PermSubmissionCreate)).
		Post("/submissions", CreateSubmissionHandler(d.Store, d.Grader, d.Concurrency))
	r.With(rbac.Require(rbac.PermSubmissionCreate)).
		Post("/submissions/async", CreateSubmissionAsyncHandler(d.Store, d.Queue))
	// owners may read their own submission; the handler checks ownership
	r.With(rbac.RequireAny(rbac.PermSubmissionView, rbac.PermSubmissionCreate)).
		Get("/submissions/{id}", GetSubmissionHandler(d.Store))
	r.With(rbac.Require(rbac.PermGradeManual)).
		Post("/submissions/{id}/grades/{index}/manual", ManualGradeHandler(d.Store))

	r.Route("/uploads", func(ur chi.Router) {
		ur.With(rbac.Require(rbac.PermUploadCreate)).
			Post("/", UploadHandler(d.Blobs, d.MaxUpload))
		ur.With(rbac.RequireAny(rbac.PermSubmissionView, rbac.PermGradeManual)).
			Get("/*", DownloadHandler(d.Blobs))
	})

	r.With(rbac.RequireAll(rbac.PermGradeRun, rbac.PermUploadCreate)).
		Post("/omr/scan", OMRScanHandler(d.OMR, d.Grader, d.Concurrency, d.MaxUpload))
}

// Health mounts /healthz and /readyz; ready may be nil.
func Health(r chi.Router, ready func(ctx context.Context) error) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}
