package harness

import (
	"github.com/roach88/sqlab/internal/compiler"
	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/store"
	"github.com/roach88/sqlab/internal/tokentable"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the expected error or a clean
	// compilation, and every assertion satisfied.
	Pass bool `json:"pass"`

	// Err is the compile error, nil when the notebook compiled.
	Err *compiler.CompileError `json:"-"`

	// Records is the compiled dictionary, nil on compile error.
	Records *ir.Records `json:"-"`

	Warnings    []compiler.Warning `json:"warnings,omitempty"`
	Graph       string             `json:"-"`
	Tokens      []tokentable.Item  `json:"-"`
	Compilation store.Compilation  `json:"-"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
