package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/omr"
)

type omrResponse struct {
	Scan        omr.Scan                `json:"scan"`
	Grading     grading.AggregateResult `json:"grading"`
	NeedsReview bool                    `json:"needs_review"`
}

// POST /omr/scan  multipart: file, answerKey (JSON object), points, threshold,
// xOffset, yOffset, smartAlign, skipWarp, corners (JSON [[x,y]x4])
func OMRScanHandler(c *omr.Client, g grading.Grader, concurrency int, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			http.Error(w, "omr service is not configured", http.StatusServiceUnavailable)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		var key map[string]string
		if err := json.Unmarshal([]byte(r.FormValue("answerKey")), &key); err != nil || len(key) == 0 {
			http.Error(w, "answerKey must be a non-empty JSON object", http.StatusBadRequest)
			return
		}
		points := formFloat(r, "points", 1)
		opts := omr.ScanOptions{
			Threshold:  formFloat(r, "threshold", 0),
			XOffset:    formFloat(r, "xOffset", 0),
			YOffset:    formFloat(r, "yOffset", 0),
			SmartAlign: formBool(r, "smartAlign"),
			SkipWarp:   formBool(r, "skipWarp"),
		}
		if raw := r.FormValue("corners"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &opts.ManualCorners); err != nil || len(opts.ManualCorners) != 4 {
				http.Error(w, "corners must be four [x,y] points", http.StatusBadRequest)
				return
			}
		}

		scan, err := c.Scan(r.Context(), f, hdr.Filename, key, opts)
		if err != nil {
			http.Error(w, "scan failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		items := omr.Items(scan, key, points)
		writeJSON(w, http.StatusOK, omrResponse{
			Scan:        scan,
			Grading:     grading.Aggregate(r.Context(), g, items, concurrency),
			NeedsReview: scan.NeedsReview(),
		})
	}
}

func formFloat(r *http.Request, k string, def float64) float64 {
	if f, err := strconv.ParseFloat(r.FormValue(k), 64); err == nil {
		return f
	}
	return def
}

func formBool(r *http.Request, k string) bool {
	b, _ := strconv.ParseBool(r.FormValue(k))
	return b
}
