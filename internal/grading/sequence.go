package grading

import "fmt"

// gradeMatching credits each correct left->right pair the candidate reproduces.
func gradeMatching(q Matching, answer map[string]string, max float64) Result {
	total := len(q.Pairs)
	if total == 0 {
		return unconfigured(max, "pairs")
	}
	given := make(map[string]string, len(answer))
	for left, right := range answer {
		given[normalize(left)] = normalize(right)
	}
	matched := 0
	for left, right := range q.Pairs {
		if got, ok := given[normalize(left)]; ok && got == normalize(right) {
			matched++
		}
	}
	score := round2(float64(matched) / float64(total) * max)
	details := map[string]any{"matched_pairs": matched, "total_pairs": total}
	return newResult(score, max, matched == total, fmt.Sprintf("%d of %d pairs matched", matched, total), details)
}

// gradeOrdering compares position by position, not as a set.
func gradeOrdering(q Ordering, answer []string, max float64) Result {
	total := len(q.Sequence)
	if total == 0 {
		return unconfigured(max, "sequence")
	}
	hits := 0
	for i, want := range q.Sequence {
		if i < len(answer) && normalize(answer[i]) == normalize(want) {
			hits++
		}
	}
	score := round2(float64(hits) / float64(total) * max)
	details := map[string]any{"correct_positions": hits, "total_positions": total}
	return newResult(score, max, hits == total, fmt.Sprintf("%d of %d items in the correct position", hits, total), details)
}
