package grading

import (
	"path"
	"strings"
)

// FileSubmission is the answer payload of a file_upload question.
type FileSubmission struct {
	Filename    string `json:"filename"`
	Key         string `json:"key,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

func gradeLongAnswer(q LongAnswer, answer string, max float64) Result {
	words := len(strings.Fields(answer))
	details := map[string]any{
		"requires_manual_grading": true,
		"submission":              answer,
		"word_count":              words,
	}
	if q.Rubric != nil {
		details["rubric"] = q.Rubric
	}
	fb := "Awaiting manual grading"
	if q.MinWords > 0 && words < q.MinWords {
		details["below_min_words"] = true
		fb = "Awaiting manual grading (shorter than the expected length)"
	}
	return zeroResult(max, fb, details)
}

func gradeFileUpload(q FileUpload, answer FileSubmission, max float64) Result {
	details := map[string]any{"requires_manual_grading": true}
	if strings.TrimSpace(answer.Filename) == "" {
		details["submitted"] = false
		return zeroResult(max, "No file submitted", details)
	}
	details["submitted"] = true
	details["file"] = answer
	if len(q.AllowedTypes) > 0 && !allowedFile(q.AllowedTypes, answer) {
		details["type_not_allowed"] = true
	}
	if q.MaxBytes > 0 && answer.Size > q.MaxBytes {
		details["too_large"] = true
	}
	return zeroResult(max, "File submitted, pending review", details)
}

// allowedFile matches either the extension (".pdf") or the content type ("application/pdf").
func allowedFile(allowed []string, f FileSubmission) bool {
	ext := strings.ToLower(path.Ext(f.Filename))
	ct := strings.ToLower(f.ContentType)
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if a == ext || "."+a == ext || (ct != "" && a == ct) {
			return true
		}
	}
	return false
}
