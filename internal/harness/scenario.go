package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlab/internal/compiler"
	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/testutil"
)

// Scenario describes a notebook and what compiling it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Labels overrides the English label table, kind -> label text.
	Labels map[string]string `yaml:"labels,omitempty"`

	// Cells are the notebook cells, in order.
	Cells []CellStep `yaml:"cells"`

	// Expect, when set, requires the compilation to fail.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the records, the lint report and the stored
	// token table of a successful compilation.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// CellStep is one notebook cell. Exactly one of Markdown, SQL and Code is
// set.
type CellStep struct {
	Markdown string `yaml:"markdown,omitempty"`

	// SQL is the source following the %%sql magic.
	SQL string `yaml:"sql,omitempty"`

	Code string `yaml:"code,omitempty"`

	// Token is the value of the token column of the executed query.
	Token string `yaml:"token,omitempty"`

	// HTML is a raw text/html output, for result tables without a token.
	HTML string `yaml:"html,omitempty"`
}

// ExpectClause specifies the expected compile error.
type ExpectClause struct {
	// Error is the expected error code (e.g. "E205").
	Error string `yaml:"error"`

	// Message is an optional substring of the error text.
	Message string `yaml:"message,omitempty"`
}

// Assertion validates one aspect of a successful compilation.
type Assertion struct {
	Type string `yaml:"type"`

	// Keys is the expected key order (used by keys).
	Keys []string `yaml:"keys,omitempty"`

	// Token selects a record, a warning or a token table row.
	Token string `yaml:"token,omitempty"`

	// Kind is the expected record kind (used by kind).
	Kind string `yaml:"kind,omitempty"`

	// Target is the token an alias or an exit leads to (used by alias).
	Target string `yaml:"target,omitempty"`

	// Code is the expected warning code (used by warning).
	Code string `yaml:"code,omitempty"`

	// Expect contains expected token table fields (used by token_row).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertKeys       = "keys"
	AssertKind       = "kind"
	AssertAlias      = "alias"
	AssertWarning    = "warning"
	AssertNoWarnings = "no_warnings"
	AssertTokenRow   = "token_row"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Cells) == 0 {
		return fmt.Errorf("cells list is required and must be non-empty")
	}
	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("either expect or assertions is required")
	}
	if s.Expect != nil {
		if s.Expect.Error == "" {
			return fmt.Errorf("expect: error is required")
		}
		if len(s.Assertions) > 0 {
			return fmt.Errorf("assertions cannot be combined with an expected error")
		}
	}

	for kind := range s.Labels {
		if !knownLabelKind(compiler.LabelKind(kind)) {
			return fmt.Errorf("labels: unknown label kind %q", kind)
		}
	}

	for i, cell := range s.Cells {
		if err := validateCell(i, cell); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateCell(index int, c CellStep) error {
	set := 0
	for _, text := range []string{c.Markdown, c.SQL, c.Code} {
		if text != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("cells[%d]: exactly one of markdown, sql or code is required", index)
	}
	if (c.Token != "" || c.HTML != "") && c.SQL == "" {
		return fmt.Errorf("cells[%d]: token and html apply to sql cells only", index)
	}
	if c.Token != "" && c.HTML != "" {
		return fmt.Errorf("cells[%d]: token and html are mutually exclusive", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertKeys:
		if len(a.Keys) == 0 {
			return fmt.Errorf("assertions[%d]: keys list is required for keys", index)
		}
	case AssertKind:
		if a.Token == "" || a.Kind == "" {
			return fmt.Errorf("assertions[%d]: token and kind are required for kind", index)
		}
	case AssertAlias:
		if a.Token == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: token and target are required for alias", index)
		}
	case AssertWarning:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for warning", index)
		}
	case AssertNoWarnings:
	case AssertTokenRow:
		if a.Token == "" {
			return fmt.Errorf("assertions[%d]: token is required for token_row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for token_row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownLabelKind(kind compiler.LabelKind) bool {
	_, ok := compiler.EnglishLabels[kind]
	return ok
}

// NotebookCells converts the cell steps to notebook cells.
func (s *Scenario) NotebookCells() []ir.Cell {
	cells := make([]ir.Cell, len(s.Cells))
	for i, step := range s.Cells {
		switch {
		case step.Markdown != "":
			cells[i] = testutil.Markdown(step.Markdown)
		case step.Code != "":
			cells[i] = testutil.Code(step.Code)
		default:
			cells[i] = testutil.SQL(step.SQL, step.Token)
			if step.HTML != "" {
				cells[i].Outputs = []ir.Output{{HTML: step.HTML}}
			}
		}
	}
	return cells
}

// LabelTable returns the labels the scenario is compiled with.
func (s *Scenario) LabelTable() compiler.Labels {
	texts := make(map[compiler.LabelKind]string, len(compiler.EnglishLabels))
	for kind, text := range compiler.EnglishLabels {
		texts[kind] = text
	}
	for kind, text := range s.Labels {
		texts[compiler.LabelKind(kind)] = text
	}
	return compiler.NewLabels(texts)
}
