// Package config loads the project configuration from sqlab.cue.
//
// The file is optional. Whatever it holds is unified with an embedded
// schema that supplies every default, so a project directory without
// sqlab.cue still yields a complete Config.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sqlab/internal/compiler"
)

// FileName is the configuration file looked up in a project directory.
const FileName = "sqlab.cue"

//go:embed schema.cue
var schemaSource []byte

// Error codes for configuration loading.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // Config file or directory unreadable
	ErrCodeBuildFailed = "E003" // CUE syntax or build error
	ErrCodeInvalid     = "E004" // Config does not satisfy the schema
)

// LoadError represents an error that occurred while loading sqlab.cue.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LabelTable is the text of each label in one language.
type LabelTable struct {
	Exercise   string `json:"exercise"`
	Episode    string `json:"episode"`
	Statement  string `json:"statement"`
	Annotation string `json:"annotation"`
	Hint       string `json:"hint"`
	Action     string `json:"action"`
	Solution   string `json:"solution"`
	Formula    string `json:"formula"`
}

// Output holds the paths of the generated artifacts.
type Output struct {
	Records string `json:"records"`
	Tokens  string `json:"tokens"`
	Graph   string `json:"graph"`
	PDF     string `json:"pdf"`
	SVG     string `json:"svg"`
}

// Render configures the graph layout program.
type Render struct {
	Binary  string   `json:"binary"`
	Formats []string `json:"formats"`
}

// Config is the decoded, fully defaulted configuration. Relative paths are
// relative to Dir.
type Config struct {
	Dir      string                `json:"-"`
	Language string                `json:"language"`
	Notebook string                `json:"notebook"`
	Database string                `json:"database"`
	Output   Output                `json:"output"`
	Render   Render                `json:"render"`
	Labels   map[string]string     `json:"labels"`
	Strings  map[string]LabelTable `json:"strings"`
}

// Load reads dir/sqlab.cue when present and returns the configuration.
func Load(dir string) (*Config, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("accessing project directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, err)
	}
	value := schema.LookupPath(cue.ParsePath("#Config"))

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	default:
		user := ctx.CompileBytes(data, cue.Filename(path))
		if err := user.Err(); err != nil {
			return nil, cueError(ErrCodeBuildFailed, err)
		}
		value = value.Unify(user)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeInvalid, err)
	}

	cfg := &Config{}
	if err := value.Decode(cfg); err != nil {
		return nil, cueError(ErrCodeInvalid, err)
	}
	cfg.Dir = dir
	return cfg, nil
}

// cueError keeps the first CUE error and its position.
func cueError(code string, err error) *LoadError {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	loadErr := &LoadError{Code: code, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}

// Path resolves a configured path against the project directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// LabelTable returns the label texts of the configured language with the
// per-label overrides applied.
func (c *Config) LabelTable() LabelTable {
	table, ok := c.Strings[c.Language]
	if !ok {
		table = c.Strings["en"]
	}
	for key, text := range c.Labels {
		switch key {
		case "exercise":
			table.Exercise = text
		case "episode":
			table.Episode = text
		case "statement":
			table.Statement = text
		case "annotation":
			table.Annotation = text
		case "hint":
			table.Hint = text
		case "action":
			table.Action = text
		case "solution":
			table.Solution = text
		case "formula":
			table.Formula = text
		}
	}
	return table
}

// CompilerLabels converts the label table for the segment builder.
func (c *Config) CompilerLabels() compiler.Labels {
	t := c.LabelTable()
	return compiler.NewLabels(map[compiler.LabelKind]string{
		compiler.LabelExercise:   t.Exercise,
		compiler.LabelEpisode:    t.Episode,
		compiler.LabelStatement:  t.Statement,
		compiler.LabelAnnotation: t.Annotation,
		compiler.LabelHint:       t.Hint,
		compiler.LabelAction:     t.Action,
		compiler.LabelSolution:   t.Solution,
		compiler.LabelFormula:    t.Formula,
	})
}
