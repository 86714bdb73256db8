package sandbox

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-grading/internal/grading"
)

func TestJudge(t *testing.T) {
	tests := []struct {
		name   string
		tc     grading.TestCase
		stdout string
		exit   int
		passed bool
	}{
		{"exact", grading.TestCase{Output: "3"}, "3\n", 0, true},
		{"trailing spaces per line", grading.TestCase{Output: "a\nb"}, "a  \r\nb\t\n", 0, true},
		{"wrong", grading.TestCase{Output: "4"}, "3\n", 0, false},
		{"crash", grading.TestCase{Output: "3"}, "3\n", 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := judge(tc.tc, tc.stdout, "Traceback", tc.exit)
			if got.Passed != tc.passed {
				t.Fatalf("got %+v", got)
			}
			if tc.exit != 0 && !strings.Contains(got.Error, "exit code 1") {
				t.Fatalf("error %q", got.Error)
			}
		})
	}
}

func TestRuntimeAliases(t *testing.T) {
	d := &Docker{runtimes: DefaultRuntimes}
	for _, lang := range []string{"Python", "py", "js", "golang"} {
		if _, err := d.runtime(lang); err != nil {
			t.Fatalf("runtime(%q): %v", lang, err)
		}
	}
	if _, err := d.runtime("cobol"); err == nil {
		t.Fatal("expected unsupported language error")
	}
}

func TestImageRef(t *testing.T) {
	if got := imageRef("alpine"); got != "docker.io/library/alpine:latest" {
		t.Fatalf("got %q", got)
	}
	if got := imageRef("python:3.12-alpine"); got != "python:3.12-alpine" {
		t.Fatalf("got %q", got)
	}
}

// TestDockerPython needs a reachable daemon; set SANDBOX_DOCKER_TEST=1 to run it.
func TestDockerPython(t *testing.T) {
	if os.Getenv("SANDBOX_DOCKER_TEST") == "" {
		t.Skip("SANDBOX_DOCKER_TEST not set")
	}
	d, err := NewDocker(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := d.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	code := "a, b = map(int, input().split())\nprint(a + b)\n"
	report, err := d.RunTests(ctx, code, "python", []grading.TestCase{
		{Input: "1 2", Output: "3"},
		{Input: "2 2", Output: "5"},
	})
	if err != nil {
		t.Fatalf("RunTests: %v", err)
	}
	if report.Score != 1 || report.MaxScore != 2 || !report.Results[0].Passed || report.Results[1].Passed {
		t.Fatalf("report %+v", report)
	}
}
