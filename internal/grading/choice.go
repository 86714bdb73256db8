package grading

import "fmt"

func gradeMultipleChoice(q MultipleChoice, answer string, max float64) Result {
	want, got := normalize(q.Correct), normalize(answer)
	if want == "" {
		return unconfigured(max, "correct answer")
	}
	if want == got {
		return newResult(max, max, true, "Correct", nil)
	}
	return zeroResult(max, "Incorrect", map[string]any{"selected": answer})
}

func gradeTrueFalse(q TrueFalse, answer any, max float64) Result {
	if q.Correct == "" {
		return unconfigured(max, "correct answer")
	}
	got := canonicalBool(answer)
	if got == q.Correct {
		return newResult(max, max, true, "Correct", nil)
	}
	return zeroResult(max, "Incorrect", map[string]any{"selected": got})
}

// gradeMultipleSelect awards max/n per correct pick and deducts half of that per wrong pick.
func gradeMultipleSelect(q MultipleSelect, answer []string, max float64) Result {
	correct := toSet(normalizeAll(q.Correct))
	n := len(correct)
	if n == 0 {
		return unconfigured(max, "correct options")
	}
	picked := toSet(normalizeAll(answer))

	c, w := 0, 0
	for k := range picked {
		if _, ok := correct[k]; ok {
			c++
		} else {
			w++
		}
	}
	perCorrect := max / float64(n)
	penalty := perCorrect / 2
	raw := float64(c)*perCorrect - float64(w)*penalty
	full := c == n && w == 0
	score := round2(clamp(raw, 0, max))
	if full {
		score = max
	}

	details := map[string]any{
		"correct_selected": c,
		"wrong_selected":   w,
		"total_correct":    n,
	}
	fb := "Correct"
	if !full {
		fb = fmt.Sprintf("%d of %d correct options selected, %d incorrect", c, n, w)
	}
	return newResult(score, max, full, fb, details)
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		if s != "" {
			m[s] = struct{}{}
		}
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
