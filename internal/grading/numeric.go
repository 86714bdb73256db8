package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// gradeCalculation accepts an answer within an absolute tolerance, or within
// RelTolerance*|correct| when a relative tolerance is configured.
//
//	meta: {"tolerance": 0.01}
//	meta: {"formula": "m * a", "variables": {"m": 2, "a": 9.81}}
func gradeCalculation(q Calculation, answer string, max float64) Result {
	want, err := q.expected()
	if err != nil {
		return zeroResult(max, "Question answer could not be evaluated: "+err.Error(), nil)
	}
	if math.IsNaN(want) {
		return unconfigured(max, "numeric answer")
	}
	got, ok := parseFloatLoose(answer)
	if !ok {
		return zeroResult(max, "Invalid number format", map[string]any{"answer": answer})
	}

	diff := math.Abs(want - got)
	pass := diff <= q.Tolerance
	if !pass && q.RelTolerance > 0 && diff <= q.RelTolerance*math.Abs(want) {
		pass = true
	}
	details := map[string]any{
		"expected":   want,
		"difference": diff,
		"tolerance":  q.Tolerance,
	}
	if pass {
		return newResult(max, max, true, "Correct", details)
	}
	return zeroResult(max, "Incorrect", details)
}

// expected returns NaN when neither an answer nor a formula is configured.
func (q Calculation) expected() (float64, error) {
	if strings.TrimSpace(q.Correct) != "" {
		v, ok := parseFloatLoose(q.Correct)
		if !ok {
			return 0, fmt.Errorf("correct answer %q is not a number", q.Correct)
		}
		return v, nil
	}
	if strings.TrimSpace(q.Formula) == "" {
		return math.NaN(), nil
	}
	env := map[string]any{}
	for k, v := range q.Variables {
		if f, ok := floatOf(v); ok {
			env[k] = f
		} else {
			env[k] = v
		}
	}
	out, err := expr.Eval(q.Formula, env)
	if err != nil {
		return 0, err
	}
	v, ok := floatOf(out)
	if !ok {
		return 0, fmt.Errorf("formula result %v is not a number", out)
	}
	return v, nil
}

// parseFloatLoose accepts surrounding text after the first token and a comma
// decimal separator ("3,14").
func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, ok := parseFinite(s); ok {
		return v, true
	}
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, ok := parseFinite(sp[0]); ok {
			return v, true
		}
		if !strings.Contains(sp[0], ".") && strings.Count(sp[0], ",") == 1 {
			return parseFinite(strings.Replace(sp[0], ",", ".", 1))
		}
	}
	return 0, false
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
