package omr

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-grading/internal/grading"
)

// NormalizeKey maps "1", "q_1" and "Q_01" to "q_1" and keeps the first letter
// of each answer, upper-cased. Blank answers are dropped.
func NormalizeKey(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := k
		if strings.HasPrefix(strings.ToLower(key), "q_") {
			key = key[2:]
		}
		if n, err := strconv.Atoi(key); err == nil && isDigits(key) {
			key = "q_" + strconv.Itoa(n)
		}
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			out[key] = v[:1]
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// questionNumber parses "q_<n>".
func questionNumber(key string) (int, bool) {
	if !strings.HasPrefix(key, "q_") {
		return 0, false
	}
	n, err := strconv.Atoi(key[2:])
	return n, err == nil
}

// Items turns a scanned sheet into multiple_choice items, ordered by question
// number, so the sheet is graded like any other exam. Questions missing from
// the scan are answered blank.
func Items(scan Scan, key map[string]string, points float64) []grading.Item {
	norm := NormalizeKey(key)
	type entry struct {
		n   int
		key string
	}
	entries := make([]entry, 0, len(norm))
	for k := range norm {
		if n, ok := questionNumber(k); ok {
			entries = append(entries, entry{n, k})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].n < entries[j].n })

	items := make([]grading.Item, 0, len(entries))
	for _, e := range entries {
		var answer any
		if sel := scan.Answers[e.key]; sel != nil {
			answer = *sel
		}
		items = append(items, grading.Item{
			Question: grading.Definition{
				ID:            e.key,
				Type:          string(grading.KindMultipleChoice),
				CorrectAnswer: norm[e.key],
			},
			Answer:    answer,
			MaxPoints: points,
		})
	}
	return items
}
