// Package report renders graded exams for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mind-engage/mindengage-grading/internal/grading"
)

// Exam is the file format read by gradectl.
type Exam struct {
	ID    string         `yaml:"id" json:"id"`
	Title string         `yaml:"title" json:"title"`
	Items []grading.Item `yaml:"items" json:"items"`
}

var columns = []struct {
	title string
	width int
}{
	{"#", 3}, {"ID", 10}, {"TYPE", 16}, {"SCORE", 13}, {"STATUS", 10}, {"FEEDBACK", 48},
}

// Render lays out one row per item followed by the totals line.
func Render(exam Exam, agg grading.AggregateResult, noColor bool) string {
	var b strings.Builder
	if exam.Title != "" {
		b.WriteString(stylize(exam.Title, noColor, lipgloss.Color("33"), true))
		b.WriteByte('\n')
	}

	head := make([]string, len(columns))
	for i, c := range columns {
		head[i] = cell(c.title, c.width)
	}
	b.WriteString(stylize(strings.Join(head, " "), noColor, lipgloss.Color("252"), true))
	b.WriteByte('\n')

	for i, res := range agg.Results {
		var it grading.Item
		if i < len(exam.Items) {
			it = exam.Items[i]
		}
		status := Status(res)
		row := []string{
			cell(fmt.Sprint(i+1), columns[0].width),
			cell(it.Question.ID, columns[1].width),
			cell(it.Question.Type, columns[2].width),
			cell(fmt.Sprintf("%.2f/%.2f", res.Score, res.MaxScore), columns[3].width),
			stylize(cell(status, columns[4].width), noColor, statusColor(status), false),
			cell(res.Feedback, columns[5].width),
		}
		b.WriteString(strings.Join(row, " "))
		b.WriteByte('\n')
	}

	total := fmt.Sprintf("Total %.2f/%.2f (%d%%)", agg.TotalScore, agg.TotalMaxScore, agg.Percentage)
	if n := pending(agg); n > 0 {
		total += fmt.Sprintf(", %d awaiting manual grading", n)
	}
	b.WriteString(stylize(total, noColor, lipgloss.Color("244"), true))
	b.WriteByte('\n')
	return b.String()
}

// Status is the one-word verdict shown for a result.
func Status(r grading.Result) string {
	switch {
	case r.NeedsManual():
		return "manual"
	case r.IsCorrect:
		return "correct"
	case r.IsPartial:
		return "partial"
	default:
		return "incorrect"
	}
}

func pending(agg grading.AggregateResult) int {
	n := 0
	for _, r := range agg.Results {
		if r.NeedsManual() {
			n++
		}
	}
	return n
}

func statusColor(status string) lipgloss.Color {
	switch status {
	case "correct":
		return lipgloss.Color("42")
	case "partial":
		return lipgloss.Color("220")
	case "incorrect":
		return lipgloss.Color("196")
	case "manual":
		return lipgloss.Color("39")
	}
	return lipgloss.Color("244")
}

func stylize(text string, noColor bool, color lipgloss.Color, bold bool) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Bold(bold).Render(text)
}

// cell pads or truncates s to exactly width runes.
func cell(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > width {
		if width <= 1 {
			return string(r[:width])
		}
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}
