// gradectl grades an exam file offline and prints the results.
//
//	gradectl [-json] [-no-color] [-sandbox] exam.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-grading/internal/app"
	"github.com/mind-engage/mindengage-grading/internal/config"
	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/report"
)

func main() {
	asJSON := flag.Bool("json", false, "print the aggregate result as JSON")
	noColor := flag.Bool("no-color", os.Getenv("NO_COLOR") != "", "disable colors")
	useSandbox := flag.Bool("sandbox", false, "run code questions in the docker sandbox")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: gradectl [-json] [-no-color] [-sandbox] exam.yaml")
		os.Exit(2)
	}

	exam, err := readExam(flag.Arg(0))
	if err != nil {
		log.Fatalf("read exam: %v", err)
	}

	cfg := config.FromEnv()
	cfg.Sandbox.Enabled = *useSandbox
	cfg.RedisAddr = ""
	ctx := context.Background()
	g, err := app.NewGrader(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("grader: %v", err)
	}
	agg := grading.Aggregate(ctx, g, exam.Items, cfg.GradeConcurrency)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(agg); err != nil {
			log.Fatal(err)
		}
		return
	}
	fmt.Print(report.Render(exam, agg, *noColor))
}

// readExam accepts YAML or, by extension, JSON.
func readExam(path string) (report.Exam, error) {
	var exam report.Exam
	b, err := os.ReadFile(path)
	if err != nil {
		return exam, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(b, &exam)
	} else {
		err = yaml.Unmarshal(b, &exam)
	}
	if err != nil {
		return exam, fmt.Errorf("%s: %w", path, err)
	}
	if len(exam.Items) == 0 {
		return exam, fmt.Errorf("%s: no items", path)
	}
	return exam, nil
}
