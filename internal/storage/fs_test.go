package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	key, err := s.Put(ctx, "uploads/essay.pdf", strings.NewReader("%PDF-1.7"), "application/pdf")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key != "uploads/essay.pdf" {
		t.Fatalf("key = %q", key)
	}
	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "%PDF-1.7" {
		t.Fatalf("content %q", b)
	}
	u, err := s.SignedURL(ctx, key)
	if err != nil || !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "uploads/essay.pdf") {
		t.Fatalf("SignedURL = %q, %v", u, err)
	}
}

func TestFSStoreKeysStayInsideBase(t *testing.T) {
	base := t.TempDir()
	s, _ := NewFSStore(base)
	key, err := s.Put(context.Background(), "../../etc/passwd", strings.NewReader("x"), "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key != "etc/passwd" {
		t.Fatalf("key = %q", key)
	}
	if _, err := s.Get(context.Background(), filepath.Join("etc", "passwd")); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := s.Put(context.Background(), "", strings.NewReader("x"), ""); err == nil {
		t.Fatal("empty key should fail")
	}
}

func TestFSStoreMissing(t *testing.T) {
	s, _ := NewFSStore(t.TempDir())
	if _, err := s.Get(context.Background(), "nope.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestFSStoreCancelledPut(t *testing.T) {
	s, _ := NewFSStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, "a.txt", strings.NewReader("data"), ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.Get(context.Background(), "a.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancelled upload left a file behind: %v", err)
	}
}

func TestUploadKey(t *testing.T) {
	k := UploadKey("/uploads/", `C:\Users\me\Report.PDF`)
	if !strings.HasPrefix(k, "uploads/") || !strings.HasSuffix(k, ".pdf") || strings.Contains(k, "Report") {
		t.Fatalf("key = %q", k)
	}
}
