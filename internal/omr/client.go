package omr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var ErrEmptyImage = errors.New("omr: empty image")

// Client talks to the optical mark recognition service.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{base: strings.TrimSuffix(baseURL, "/"), http: &http.Client{Timeout: timeout}}
}

// ScanOptions tune bubble detection; zero values let the service decide.
type ScanOptions struct {
	Threshold     float64
	XOffset       float64
	YOffset       float64
	Debug         bool
	SmartAlign    bool
	SkipWarp      bool
	ManualCorners [][2]float64 // four corner points
}

type Detail struct {
	Question      int      `json:"question"`
	Selected      *string  `json:"selected"`
	MarkedOptions []string `json:"markedOptions"`
	MultipleMarks bool     `json:"multipleMarks"`
	Correct       *bool    `json:"correct"`
	Confidence    float64  `json:"confidence"`
	Ink           float64  `json:"ink"`
	Gap           float64  `json:"gap"`
	Contrast      float64  `json:"contrast"`
}

type Scan struct {
	Score    int                `json:"score"`
	Answers  map[string]*string `json:"answers"` // q_<n> -> letter or null
	Details  []Detail           `json:"details"`
	Warnings []string           `json:"warnings"`
	Meta     map[string]any     `json:"meta,omitempty"`
}

// NeedsReview reports whether the service flagged marks it could not settle.
func (s Scan) NeedsReview() bool {
	for _, w := range s.Warnings {
		if w == "needs_review" || w == "alignment_unreliable" {
			return true
		}
	}
	for _, d := range s.Details {
		if d.MultipleMarks {
			return true
		}
	}
	return false
}

type scanResponse struct {
	OK     bool   `json:"ok"`
	Result Scan   `json:"result"`
	Detail string `json:"detail"`
}

// Scan uploads a sheet image. key may be nil; it is normalized before sending.
func (c *Client) Scan(ctx context.Context, image io.Reader, filename string, key map[string]string, opts ScanOptions) (Scan, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return Scan{}, err
	}
	n, err := io.Copy(fw, image)
	if err != nil {
		return Scan{}, err
	}
	if n == 0 {
		return Scan{}, ErrEmptyImage
	}
	if len(key) > 0 {
		b, _ := json.Marshal(NormalizeKey(key))
		_ = mw.WriteField("answerKey", string(b))
	}
	if opts.Threshold > 0 {
		_ = mw.WriteField("threshold", strconv.FormatFloat(opts.Threshold, 'f', -1, 64))
	}
	if opts.XOffset != 0 {
		_ = mw.WriteField("xOffset", strconv.FormatFloat(opts.XOffset, 'f', -1, 64))
	}
	if opts.YOffset != 0 {
		_ = mw.WriteField("yOffset", strconv.FormatFloat(opts.YOffset, 'f', -1, 64))
	}
	if opts.Debug {
		_ = mw.WriteField("debug", "true")
	}
	if opts.SmartAlign {
		_ = mw.WriteField("smartAlign", "true")
	}
	if opts.SkipWarp {
		_ = mw.WriteField("skipWarp", "true")
	}
	if len(opts.ManualCorners) == 4 {
		b, _ := json.Marshal(opts.ManualCorners)
		_ = mw.WriteField("manualCorners", string(b))
	}
	if err := mw.Close(); err != nil {
		return Scan{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/scan", body)
	if err != nil {
		return Scan{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := c.http.Do(req)
	if err != nil {
		return Scan{}, fmt.Errorf("omr scan: %w", err)
	}
	defer res.Body.Close()

	var out scanResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Scan{}, fmt.Errorf("omr scan: %s: decode: %w", res.Status, err)
	}
	if res.StatusCode/100 != 2 {
		return Scan{}, fmt.Errorf("omr scan: %s: %s", res.Status, out.Detail)
	}
	if !out.OK {
		return Scan{}, errors.New("omr scan: service reported failure")
	}
	return out.Result, nil
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("omr health: %s", res.Status)
	}
	return nil
}
