package grading

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// textOf renders a scalar payload as a string. nil becomes "".
func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case []any:
		if len(t) == 1 {
			return textOf(t[0])
		}
	case []string:
		if len(t) == 1 {
			return t[0]
		}
	}
	return fmt.Sprint(v)
}

// textsOf accepts a single value or a list and returns the non-nil elements as strings.
func textsOf(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e == nil {
				continue
			}
			out = append(out, textOf(e))
		}
		return out
	default:
		return []string{textOf(t)}
	}
}

// pairsOf reads a left->right mapping either from an object or from a list of
// {left,right} objects.
func pairsOf(v any) map[string]string {
	out := map[string]string{}
	switch t := v.(type) {
	case map[string]string:
		for k, val := range t {
			out[k] = val
		}
	case map[string]any:
		for k, val := range t {
			out[k] = textOf(val)
		}
	case []any:
		for _, e := range t {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			left, lok := m["left"]
			right, rok := m["right"]
			if lok && rok {
				out[textOf(left)] = textOf(right)
			}
		}
	}
	return out
}

func floatOf(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return parseFloatLoose(t)
	}
	return 0, false
}

// metaFloat returns the first numeric value found under any of keys.
func metaFloat(meta map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := meta[k]; ok {
			if f, ok := floatOf(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

var (
	trueTokens  = []string{"true", "t", "yes", "1", "doğru", "dogru", "evet"}
	falseTokens = []string{"false", "f", "no", "0", "yanlış", "yanlis", "yanliş", "hayır", "hayir", ""}
)

// boolKey is canonicalBool for answer keys: a missing or unrecognised key is "".
func boolKey(v any) string {
	if v == nil || strings.TrimSpace(textOf(v)) == "" {
		return ""
	}
	if s := canonicalBool(v); s == "true" || s == "false" {
		return s
	}
	return ""
}

// canonicalBool maps the accepted true/false spellings onto "true"/"false".
// Anything unrecognised is returned normalized so that it can still be compared.
func canonicalBool(v any) string {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	s := normalize(textOf(v))
	for _, tok := range trueTokens {
		if s == tok {
			return "true"
		}
	}
	for _, tok := range falseTokens {
		if s == tok {
			return "false"
		}
	}
	return s
}
