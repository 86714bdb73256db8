package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-grading/internal/auth/middleware"
	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/storage"
)

// POST /uploads  multipart "file" -> FileSubmission usable as a file_upload answer
func UploadHandler(bs storage.BlobStore, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if bs == nil {
			http.Error(w, "uploads are not configured", http.StatusServiceUnavailable)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		if hdr.Size > maxBytes {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}

		ct := hdr.Header.Get("Content-Type")
		if ct == "" {
			ct = mime.TypeByExtension(path.Ext(hdr.Filename))
		}
		owner := auth.SubjectFromContext(r.Context())
		if owner == "" {
			owner = "anonymous"
		}
		key, err := bs.Put(r.Context(), storage.UploadKey("uploads/"+owner, hdr.Filename), f, ct)
		if err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, grading.FileSubmission{
			Filename:    hdr.Filename,
			Key:         key,
			Size:        hdr.Size,
			ContentType: ct,
		})
	}
}

// GET /uploads/*  -> the blob at whatever follows /uploads/
func DownloadHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if bs == nil {
			http.Error(w, "uploads are not configured", http.StatusServiceUnavailable)
			return
		}
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(r.Context(), key)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	}
}
