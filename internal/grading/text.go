package grading

import (
	"regexp"
	"strings"
)

// partialSimilarityFloor is the similarity below which a short answer earns nothing.
const partialSimilarityFloor = 0.5

// gradeFillBlank accepts any one form. Forms written as /pattern/ are regular
// expressions; a pattern that does not compile is compared literally instead.
func gradeFillBlank(q FillBlank, answer string, max float64) Result {
	if len(q.Forms) == 0 {
		return unconfigured(max, "accepted answers")
	}
	got := strings.ToLower(strings.TrimSpace(answer))
	details := map[string]any{}
	for _, form := range q.Forms {
		ok, fellBack := matchForm(form, got)
		if fellBack {
			details["regex_fallback"] = true
		}
		if ok {
			details["matched_form"] = form
			return newResult(max, max, true, "Correct", details)
		}
	}
	return zeroResult(max, "Incorrect", details)
}

// matchForm reports whether got satisfies form and whether a regex form had to
// fall back to literal comparison.
func matchForm(form, got string) (ok, fellBack bool) {
	f := strings.TrimSpace(form)
	if len(f) >= 2 && strings.HasPrefix(f, "/") && strings.HasSuffix(f, "/") {
		re, err := regexp.Compile("(?i)" + f[1:len(f)-1])
		if err == nil {
			return re.MatchString(got), false
		}
		return strings.ToLower(f) == got, true
	}
	return normalize(f) == normalize(got), false
}

// gradeShortAnswer grades by the best similarity over all accepted forms.
func gradeShortAnswer(q ShortAnswer, answer string, max float64) Result {
	if len(q.Forms) == 0 {
		return unconfigured(max, "accepted answers")
	}
	got := normalize(answer)
	best, bestForm := 0.0, ""
	for _, form := range q.Forms {
		if s := Similarity(normalize(form), got); s > best || bestForm == "" {
			best, bestForm = s, form
		}
	}
	details := map[string]any{
		"similarity": round2(best),
		"threshold":  q.Threshold,
		"best_match": bestForm,
	}
	switch {
	case best >= q.Threshold:
		return newResult(max, max, true, "Correct", details)
	case best >= partialSimilarityFloor:
		return newResult(round2(max*best), max, false, "Partially correct", details)
	default:
		return zeroResult(max, "Incorrect", details)
	}
}
