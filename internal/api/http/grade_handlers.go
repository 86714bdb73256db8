package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-grading/internal/grading"
)

type gradeReq struct {
	Question  grading.Definition `json:"question"`
	Answer    any                `json:"answer"`
	MaxPoints float64            `json:"max_points"`
}

type batchReq struct {
	Items []grading.Item `json:"items"`
}

// POST /grade  { "question": {...}, "answer": ..., "max_points": 10 }
func GradeHandler(g grading.Grader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gradeReq
		if err := decodeValid(w, r, gradeSchema, maxJSONBody, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, g.Grade(r.Context(), req.Question, req.Answer, req.MaxPoints))
	}
}

// POST /grade/batch  { "items": [{question, answer, max_points}, ...] }
func GradeBatchHandler(g grading.Grader, concurrency int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchReq
		if err := decodeValid(w, r, batchSchema, maxJSONBody, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, grading.Aggregate(r.Context(), g, req.Items, concurrency))
	}
}
