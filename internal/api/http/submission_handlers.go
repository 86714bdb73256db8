package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-grading/internal/auth/middleware"
	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/rbac"
	"github.com/mind-engage/mindengage-grading/internal/results"
	"github.com/mind-engage/mindengage-grading/internal/worker"
)

// submitter pins students to their own user id.
func submitter(r *http.Request, in *results.NewSubmission) {
	p := auth.PrincipalFromContext(r.Context())
	if in.UserID == "" || p.Role == "student" {
		in.UserID = p.Subject
	}
}

// POST /submissions  { "exam_id": "...", "user_id": "...", "items": [...] }
func CreateSubmissionHandler(store Submissions, g grading.Grader, concurrency int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in results.NewSubmission
		if err := decodeValid(w, r, submissionSchema, maxJSONBody, &in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		submitter(r, &in)
		agg := grading.Aggregate(r.Context(), g, in.Items, concurrency)
		sub, err := store.Save(r.Context(), in, agg)
		if err != nil {
			http.Error(w, "save submission: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}

// POST /submissions/async  -> 202 { "id": "...", "status": "queued" }
func CreateSubmissionAsyncHandler(store Submissions, q worker.Enqueuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if q == nil {
			http.Error(w, "async grading is not configured", http.StatusServiceUnavailable)
			return
		}
		var in results.NewSubmission
		if err := decodeValid(w, r, submissionSchema, maxJSONBody, &in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		submitter(r, &in)
		sub, err := store.Create(r.Context(), in)
		if err != nil {
			http.Error(w, "create submission: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if err := worker.Enqueue(r.Context(), q, sub.ID, in.Items); err != nil {
			if ferr := store.MarkFailed(r.Context(), sub.ID, err); ferr != nil {
				log.Printf("mark submission %s failed: %v", sub.ID, ferr)
			}
			http.Error(w, "enqueue: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"id": sub.ID, "status": string(sub.Status)})
	}
}

// GET /submissions/{id}
func GetSubmissionHandler(store Submissions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		sub, err := store.Get(r.Context(), id)
		if errors.Is(err, results.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "get submission: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if !rbac.Allowed(r.Context(), rbac.PermSubmissionView) && sub.UserID != auth.SubjectFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// POST /submissions/{id}/grades/{index}/manual  { "points": 7 } or { "awards": {"thesis": 3} }
func ManualGradeHandler(store Submissions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || index < 0 {
			http.Error(w, "index must be a non-negative integer", http.StatusBadRequest)
			return
		}
		var g results.ManualGrade
		if err := decodeValid(w, r, manualGradeSchema, maxJSONBody, &g); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		g.GradedBy = auth.SubjectFromContext(r.Context())

		sub, err := store.ApplyManualGrade(r.Context(), id, index, g)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, sub)
		case errors.Is(err, results.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, results.ErrNotManual), errors.Is(err, results.ErrNotGraded):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, results.ErrInvalidGrade):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "apply grade: "+err.Error(), http.StatusInternalServerError)
		}
	}
}
