package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is the declared type of a question.
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindMultipleSelect Kind = "multiple_select"
	KindTrueFalse      Kind = "true_false"
	KindMatching       Kind = "matching"
	KindOrdering       Kind = "ordering"
	KindFillBlank      Kind = "fill_blank"
	KindShortAnswer    Kind = "short_answer"
	KindLongAnswer     Kind = "long_answer"
	KindHotspot        Kind = "hotspot"
	KindCalculation    Kind = "calculation"
	KindCode           Kind = "code"
	KindFileUpload     Kind = "file_upload"
)

// Kinds lists every kind the engine can grade.
func Kinds() []Kind {
	return []Kind{
		KindMultipleChoice, KindMultipleSelect, KindTrueFalse, KindMatching,
		KindOrdering, KindFillBlank, KindShortAnswer, KindLongAnswer,
		KindHotspot, KindCalculation, KindCode, KindFileUpload,
	}
}

// Definition is the loosely typed question as it is stored and transported.
type Definition struct {
	ID            string         `json:"id,omitempty" yaml:"id,omitempty"`
	Type          string         `json:"type" yaml:"type"`
	CorrectAnswer any            `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty"`
	Options       []string       `json:"options,omitempty" yaml:"options,omitempty"`
	Meta          map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
	MaxPoints     float64        `json:"max_points,omitempty" yaml:"max_points,omitempty"`
}

// ErrUnknownKind is returned by Decode for a type no grader is registered for.
var ErrUnknownKind = errors.New("unknown question type")

// Question is a definition narrowed to one kind. The set of implementations is closed.
type Question interface {
	Kind() Kind
	isQuestion()
}

type MultipleChoice struct {
	Correct string
	Options []string
}

type TrueFalse struct {
	Correct string // "true" or "false"; "" when the key is missing or unrecognised
}

type MultipleSelect struct {
	Correct []string
	Options []string
}

type Matching struct {
	Pairs map[string]string
}

type Ordering struct {
	Sequence []string
}

type FillBlank struct {
	Forms []string
}

type ShortAnswer struct {
	Forms     []string
	Threshold float64
}

type LongAnswer struct {
	Rubric   *Rubric
	MinWords int
}

type Hotspot struct {
	Regions       []Region
	CorrectRegion string
}

// Calculation holds either a literal answer or a formula evaluated over Variables.
type Calculation struct {
	Correct      string
	Formula      string
	Variables    map[string]any
	Tolerance    float64
	RelTolerance float64
}

type Code struct {
	Language string
	Tests    []TestCase
}

type FileUpload struct {
	AllowedTypes []string
	MaxBytes     int64
}

func (MultipleChoice) Kind() Kind { return KindMultipleChoice }
func (TrueFalse) Kind() Kind      { return KindTrueFalse }
func (MultipleSelect) Kind() Kind { return KindMultipleSelect }
func (Matching) Kind() Kind       { return KindMatching }
func (Ordering) Kind() Kind       { return KindOrdering }
func (FillBlank) Kind() Kind      { return KindFillBlank }
func (ShortAnswer) Kind() Kind    { return KindShortAnswer }
func (LongAnswer) Kind() Kind     { return KindLongAnswer }
func (Hotspot) Kind() Kind        { return KindHotspot }
func (Calculation) Kind() Kind    { return KindCalculation }
func (Code) Kind() Kind           { return KindCode }
func (FileUpload) Kind() Kind     { return KindFileUpload }

func (MultipleChoice) isQuestion() {}
func (TrueFalse) isQuestion()      {}
func (MultipleSelect) isQuestion() {}
func (Matching) isQuestion()       {}
func (Ordering) isQuestion()       {}
func (FillBlank) isQuestion()      {}
func (ShortAnswer) isQuestion()    {}
func (LongAnswer) isQuestion()     {}
func (Hotspot) isQuestion()        {}
func (Calculation) isQuestion()    {}
func (Code) isQuestion()           {}
func (FileUpload) isQuestion()     {}

const (
	defaultShortAnswerThreshold = 0.85
	defaultTolerance            = 0.001
	defaultCodeLanguage         = "python"
)

// Decode narrows a Definition into its typed Question.
func Decode(d Definition) (Question, error) {
	switch Kind(strings.TrimSpace(d.Type)) {
	case KindMultipleChoice:
		return MultipleChoice{Correct: textOf(d.CorrectAnswer), Options: d.Options}, nil
	case KindTrueFalse:
		return TrueFalse{Correct: boolKey(d.CorrectAnswer)}, nil
	case KindMultipleSelect:
		return MultipleSelect{Correct: textsOf(d.CorrectAnswer), Options: d.Options}, nil
	case KindMatching:
		return Matching{Pairs: pairsOf(d.CorrectAnswer)}, nil
	case KindOrdering:
		return Ordering{Sequence: textsOf(d.CorrectAnswer)}, nil
	case KindFillBlank:
		return FillBlank{Forms: textsOf(d.CorrectAnswer)}, nil
	case KindShortAnswer:
		th := defaultShortAnswerThreshold
		if v, ok := metaFloat(d.Meta, "similarity_threshold", "threshold"); ok {
			th = similarityThreshold(v, th)
		}
		return ShortAnswer{Forms: textsOf(d.CorrectAnswer), Threshold: th}, nil
	case KindLongAnswer:
		q := LongAnswer{}
		if raw, ok := d.Meta["rubric"]; ok && raw != nil {
			var r Rubric
			if err := remarshal(raw, &r); err != nil {
				return nil, fmt.Errorf("long_answer rubric: %w", err)
			}
			q.Rubric = &r
		}
		if v, ok := metaFloat(d.Meta, "min_words"); ok {
			q.MinWords = int(v)
		}
		return q, nil
	case KindHotspot:
		q := Hotspot{CorrectRegion: strings.TrimSpace(textOf(d.CorrectAnswer))}
		if raw, ok := d.Meta["regions"]; ok && raw != nil {
			if err := remarshal(raw, &q.Regions); err != nil {
				return nil, fmt.Errorf("hotspot regions: %w", err)
			}
		}
		return q, nil
	case KindCalculation:
		q := Calculation{Correct: textOf(d.CorrectAnswer), Tolerance: defaultTolerance}
		if v, ok := metaFloat(d.Meta, "tolerance"); ok && v >= 0 {
			q.Tolerance = v
		}
		if v, ok := metaFloat(d.Meta, "relative_tolerance"); ok && v > 0 {
			q.RelTolerance = v
		}
		q.Formula, _ = d.Meta["formula"].(string)
		q.Variables, _ = d.Meta["variables"].(map[string]any)
		return q, nil
	case KindCode:
		q := Code{Language: defaultCodeLanguage}
		if lang, _ := d.Meta["language"].(string); strings.TrimSpace(lang) != "" {
			q.Language = strings.ToLower(strings.TrimSpace(lang))
		}
		if raw, ok := d.Meta["tests"]; ok && raw != nil {
			if err := remarshal(raw, &q.Tests); err != nil {
				return nil, fmt.Errorf("code tests: %w", err)
			}
		}
		return q, nil
	case KindFileUpload:
		q := FileUpload{AllowedTypes: textsOf(d.Meta["allowed_types"])}
		if v, ok := metaFloat(d.Meta, "max_bytes"); ok {
			q.MaxBytes = int64(v)
		}
		return q, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, d.Type)
	}
}

// similarityThreshold accepts a ratio in (0,1] or a percentage in (1,100];
// anything else keeps def.
func similarityThreshold(v, def float64) float64 {
	switch {
	case v > 0 && v <= 1:
		return v
	case v > 1 && v <= 100:
		return v / 100
	}
	return def
}

// remarshal converts a generic JSON-ish value into a typed target.
func remarshal(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
