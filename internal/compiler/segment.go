package compiler

import "github.com/roach88/sqlab/internal/ir"

// Segment is the working form of one exercise or episode while the
// notebook is scanned. Only the builder mutates it.
type Segment struct {
	Kind          ir.Kind
	Cell          int // index of the opening cell
	TaskNumber    int // exercises only, episodes are numbered by the resolver
	SectionPath   []ir.Section
	Context       string
	Statement     string
	Salt          string
	Formula       string
	Tweak         string
	TweakVariants map[string]string
	Solutions     ir.Entries
	Redirects     []Redirect
	Hints         []HintDraft

	// Taken from the first solution and inherited by the following ones.
	defaultNextSalt string
	defaultToken    string
}

// Redirect records where one solution leads. There is one per real
// solution, in solution order.
type Redirect struct {
	Token    string
	NextSalt string
}

// HintDraft is a hint as found in the notebook, before it is hoisted into
// the records.
type HintDraft struct {
	Text  string
	Query string
	Token string
}

// describe names the segment in error messages, e.g. "exercise [042]".
func (s *Segment) describe() string {
	return string(s.Kind) + " [" + s.Salt + "]"
}
