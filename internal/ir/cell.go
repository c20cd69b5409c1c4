package ir

import "strings"

// CellKind distinguishes narrative cells from executable ones.
type CellKind string

const (
	CellMarkdown CellKind = "markdown"
	CellCode     CellKind = "code"
	CellRaw      CellKind = "raw"
)

// Cell is one notebook cell. Source keeps the notebook's line split, each
// line carrying its own trailing newline except possibly the last.
type Cell struct {
	Kind    CellKind `json:"cell_type"`
	Source  []string `json:"source"`
	Outputs []Output `json:"outputs,omitempty"`
}

// Output is one captured output of a code cell. HTML is the joined
// text/html payload, empty when the output carried none.
type Output struct {
	HTML string `json:"html,omitempty"`
}

// Text returns the whole source as one string.
func (c Cell) Text() string {
	return strings.Join(c.Source, "")
}

// FirstLine returns the first source line, or "" for an empty cell.
func (c Cell) FirstLine() string {
	if len(c.Source) == 0 {
		return ""
	}
	return c.Source[0]
}

// IsEmpty reports whether the cell has no source lines at all.
func (c Cell) IsEmpty() bool {
	return len(c.Source) == 0
}
