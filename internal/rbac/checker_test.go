package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	tests := []struct {
		role, perm string
		want       bool
	}{
		{"student", PermSubmissionCreate, true},
		{"student", PermGradeRun, false},
		{"student", PermSubmissionView, false},
		{"teacher", PermGradeManual, true},
		{"service", PermGradeManual, true},
		{"service", PermSubmissionView, true},
		{"admin", "anything:at-all", true},
		{"guest", PermGradeRun, false},
	}
	for _, tc := range tests {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Fatalf("Has(%q,%q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
	if !c.Any("student", PermGradeRun, PermUploadCreate) || c.All("student", PermGradeRun, PermUploadCreate) {
		t.Fatal("Any/All mismatch")
	}
}

func TestRequire(t *testing.T) {
	h := Require(PermGradeRun)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for role, code := range map[string]int{"teacher": 200, "student": 403, "": 403} {
		req := httptest.NewRequest(http.MethodPost, "/grade", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != code {
			t.Fatalf("role %q: code %d, want %d", role, rec.Code, code)
		}
	}
}

func TestAllowedReadsRoleFromContext(t *testing.T) {
	ctx := WithRole(context.Background(), "service")
	if !Allowed(ctx, PermSubmissionView) || Allowed(context.Background(), PermSubmissionView) {
		t.Fatal("Allowed mismatch")
	}
	if !matchPerm("grade:*", "grade:manual") || matchPerm("grade:*", "submission:view") {
		t.Fatal("wildcard mismatch")
	}
}
