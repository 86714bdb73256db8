package grading

import (
	"strings"

	"golang.org/x/text/cases"
)

// normalize trims surrounding whitespace and case-folds.
func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = normalize(s)
	}
	return out
}

// Similarity returns 1 - levenshtein(a,b)/max(len(a),len(b)) over runes.
// Identical strings score 1; a non-identical pair with an empty side scores 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein is the unit-cost edit distance over runes, kept in one row
// sized to the shorter input.
func levenshtein(a, b string) int {
	long, short := []rune(a), []rune(b)
	if len(long) < len(short) {
		long, short = short, long
	}
	row := make([]int, len(short)+1)
	for j := range row {
		row[j] = j
	}
	for i, lr := range long {
		diag := row[0]
		row[0] = i + 1
		for j, sr := range short {
			up := row[j+1]
			sub := diag
			if lr != sr {
				sub++
			}
			row[j+1] = min(up+1, row[j]+1, sub)
			diag = up
		}
	}
	return row[len(short)]
}
