package compiler

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/notebook"
)

const (
	sqlMagic  = "%%sql"
	eofMarker = "raise EOFError"
)

// builder scans the cells once, left to right. The open segment is always
// the last one appended.
type builder struct {
	labels      Labels
	logger      *slog.Logger
	segments    []*Segment
	sectionPath []ir.Section
	salts       map[string]bool
	exercises   int
}

func newBuilder(labels Labels, logger *slog.Logger) *builder {
	return &builder{
		labels: labels,
		logger: logger,
		salts:  make(map[string]bool),
	}
}

func (b *builder) current() *Segment {
	if len(b.segments) == 0 {
		return nil
	}
	return b.segments[len(b.segments)-1]
}

func (b *builder) run(cells []ir.Cell) ([]*Segment, error) {
	for i, cell := range cells {
		if cell.IsEmpty() {
			continue
		}
		switch cell.Kind {
		case ir.CellMarkdown:
			if err := b.markdown(i, cell); err != nil {
				return nil, err
			}
		case ir.CellCode:
			stop, err := b.code(i, cell)
			if err != nil {
				return nil, err
			}
			if stop {
				b.logger.Debug("scan stopped", "cell", i, "remaining", len(cells)-i-1)
				return b.segments, nil
			}
		}
	}
	return b.segments, nil
}

func (b *builder) markdown(i int, cell ir.Cell) error {
	if depth, title, ok := notebook.ClassifyHeading(cell.FirstLine()); ok {
		subtitle := strings.TrimSpace(strings.Join(cell.Source[1:], ""))
		b.sectionPath = append(b.sectionPath[:min(depth, len(b.sectionPath))],
			ir.Section{Title: title, Subtitle: subtitle})
		return nil
	}

	source := cell.Text()
	label, salt, text := notebook.SplitLabel(source)
	if label == "" {
		return nil
	}
	if b.salts[salt] {
		return newError(ErrSaltReused, i, source, "Salt '%s' already used.", salt)
	}
	if salt != "" {
		b.salts[salt] = true
	}

	seg := b.current()
	switch kind := b.labels.Kind(label); kind {
	case LabelStatement:
		if seg == nil {
			return newError(ErrOrphanContent, i, source, "A statement must be preceded by an exercise or an episode.")
		}
		if seg.Statement != "" {
			return newError(ErrDuplicateStatement, i, source, "%s already has a statement.", seg.describe())
		}
		seg.Statement = text
	case LabelAnnotation:
		if seg == nil {
			return newError(ErrOrphanContent, i, source, "An annotation must be preceded by an exercise or an episode.")
		}
		seg.Solutions = append(seg.Solutions, ir.Annotation(text))
	case LabelExercise, LabelEpisode:
		b.open(i, kind, salt, text)
	default:
		return newError(ErrUnknownLabel, i, source, "Unknown label '%s'.", label)
	}
	return nil
}

func (b *builder) open(i int, kind LabelKind, salt, text string) {
	seg := &Segment{
		Kind:        ir.Kind(kind),
		Cell:        i,
		SectionPath: slices.Clone(b.sectionPath),
		Salt:        salt,
		Solutions:   ir.Entries{},
	}
	if seg.SectionPath == nil {
		seg.SectionPath = []ir.Section{}
	}
	if kind == LabelExercise {
		b.exercises++
		seg.TaskNumber = b.exercises
		seg.Statement = text
	} else {
		seg.Context = strings.TrimSpace(text)
	}
	// Subtitles are shown once, with the first task of their section.
	for j := range b.sectionPath {
		b.sectionPath[j].Subtitle = ""
	}
	b.segments = append(b.segments, seg)
	b.logger.Debug("segment opened", "kind", seg.Kind, "salt", salt, "cell", i)
}

func (b *builder) code(i int, cell ir.Cell) (stop bool, err error) {
	first := cell.FirstLine()
	if strings.HasPrefix(first, eofMarker) {
		return true, nil
	}

	source := cell.Text()
	if desc, variants, ok := notebook.ParseTweak(cell.Source); ok {
		seg := b.current()
		if seg == nil {
			return false, newError(ErrOrphanContent, i, source, "A tweak must be preceded by an exercise or an episode.")
		}
		if seg.Tweak != "" {
			return false, newError(ErrDuplicateTweak, i, source, "%s already has a tweak.", seg.describe())
		}
		seg.Tweak = desc
		seg.TweakVariants = variants
	}

	if !strings.HasPrefix(first, sqlMagic) {
		return false, nil
	}

	label, text, rawQuery, nextSalt := notebook.SplitSQLSource(strings.Join(cell.Source[1:], ""))
	kind := b.labels.Kind(label)
	if kind == LabelAction {
		return false, nil
	}
	query, formula, salt := notebook.SplitFormula(rawQuery)
	token, _ := notebook.FirstToken(b.logger, cell.Outputs)
	seg := b.current()

	if nextSalt != "" && (nextSalt == salt || (seg != nil && nextSalt == seg.Salt)) {
		return false, newError(ErrSelfReference, i, source, "Self-reference with salt %s.", nextSalt)
	}

	if kind == LabelHint {
		if token == "" {
			return false, newError(ErrHintWithoutToken, i, source, "Missing token for hint.")
		}
		if seg == nil {
			return false, newError(ErrOrphanContent, i, source, "A hint must be preceded by an exercise or an episode.")
		}
		// The wrong query is never shown but kept whole for debugging.
		seg.Hints = append(seg.Hints, HintDraft{Text: text, Query: rawQuery, Token: token})
		return false, nil
	}

	// Any other label is a solution: "Solution", "Variant", none...
	if seg == nil {
		return false, newError(ErrOrphanContent, i, source, "A solution must be preceded by an exercise or an episode.")
	}
	if seg.Formula == "" {
		if err := checkFirstSolution(i, source, seg, formula); err != nil {
			return false, err
		}
		seg.Formula = formula
		seg.defaultNextSalt = nextSalt
		seg.defaultToken = token
	}
	if formula != "" {
		if salt != seg.Salt {
			return false, newError(ErrSaltMismatch, i, source,
				"Salt mismatch: the formula uses salt %s in %s.", salt, seg.describe())
		}
		if notebook.Dequalify(formula) != notebook.Dequalify(seg.Formula) {
			return false, newError(ErrFormulaMismatch, i, source,
				"Formula mismatch in %s: %q differs from %q.", seg.describe(), formula, seg.Formula)
		}
	}

	if nextSalt == "" {
		nextSalt = seg.defaultNextSalt
	}
	if token == "" {
		token = seg.defaultToken
	}
	intro := text
	if label != "" {
		intro = label + ". " + text
	}
	seg.Solutions = append(seg.Solutions, &ir.Solution{
		Intro:      intro,
		Query:      query,
		ResultHead: notebook.ResultHead(b.logger, cell.Outputs),
		Token:      token,
	})
	seg.Redirects = append(seg.Redirects, Redirect{Token: token, NextSalt: nextSalt})
	return false, nil
}

// checkFirstSolution enforces what the first solution of a task must bring:
// a formula, a tweak exactly when the formula has a placeholder, and a
// statement already attached.
func checkFirstSolution(i int, source string, seg *Segment, formula string) error {
	if formula == "" {
		return newError(ErrMissingFormula, i, source, "Missing formula for %s.", seg.describe())
	}
	if strings.Contains(formula, notebook.Placeholder) {
		if seg.Tweak == "" {
			return newError(ErrMissingTweak, i, source, "Missing tweak for %s.", seg.describe())
		}
	} else if seg.Tweak != "" {
		return newError(ErrUnexpectedTweak, i, source, "Missing {{x}} in the formula of a first solution of %s.", seg.describe())
	}
	if seg.Statement == "" {
		return newError(ErrMissingStatement, i, source, "Missing statement cell for %s.", seg.describe())
	}
	return nil
}
