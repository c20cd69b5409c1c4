package compiler

import "strings"

// LabelKind is the role a narrative or comment label plays.
type LabelKind string

const (
	LabelNone       LabelKind = ""
	LabelExercise   LabelKind = "exercise"
	LabelEpisode    LabelKind = "episode"
	LabelStatement  LabelKind = "statement"
	LabelAnnotation LabelKind = "annotation"
	LabelHint       LabelKind = "hint"
	LabelAction     LabelKind = "action"
	LabelSolution   LabelKind = "solution"
	LabelFormula    LabelKind = "formula"
)

// Labels maps lowercased label text to its kind. It is built from a
// kind -> text table so that notebooks can be written in any language.
type Labels map[string]LabelKind

// EnglishLabels is the default label table.
var EnglishLabels = map[LabelKind]string{
	LabelExercise:   "Exercise",
	LabelEpisode:    "Episode",
	LabelStatement:  "Statement",
	LabelAnnotation: "Annotation",
	LabelHint:       "Hint",
	LabelAction:     "Action",
	LabelSolution:   "Solution",
	LabelFormula:    "Formula",
}

// NewLabels inverts a kind -> text table. Empty texts are ignored.
func NewLabels(texts map[LabelKind]string) Labels {
	labels := make(Labels, len(texts))
	for kind, text := range texts {
		if text = strings.TrimSpace(text); text != "" {
			labels[strings.ToLower(text)] = kind
		}
	}
	return labels
}

// DefaultLabels returns the English label table.
func DefaultLabels() Labels {
	return NewLabels(EnglishLabels)
}

// Kind returns the kind of label, LabelNone if unknown.
func (l Labels) Kind(label string) LabelKind {
	return l[strings.ToLower(label)]
}
