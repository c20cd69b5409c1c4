package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/sqlab/internal/compiler"
	"github.com/roach88/sqlab/internal/config"
	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/notebook"
	"github.com/roach88/sqlab/internal/store"
)

// Error code constants for command-level failures. Configuration errors
// keep the codes of config.LoadError (E001-E004) and compile errors their
// own (E201-E403).
const (
	ErrCodeGeneric     = config.ErrCodeGeneric
	ErrCodeNotFound    = "E005" // Notebook or scenario path not found
	ErrCodeStoreFailed = "E006" // History database error
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeTestFailed  = "E008" // One or more scenarios failed
)

// codedError attaches an error code to a command failure.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }

func withCode(code string, err error) error {
	return &codedError{code: code, err: err}
}

// errorCode maps a failure to the code reported to the user.
func errorCode(err error) string {
	var loadErr *config.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	if compileErr, ok := compiler.AsCompileError(err); ok {
		return compileErr.Code
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return ErrCodeGeneric
}

// reportError prints the failure and returns the matching ExitError.
// Compile errors are failures of the notebook (exit code 1), anything else
// is a command error (exit code 2).
func reportError(formatter *OutputFormatter, err error) error {
	code := errorCode(err)
	message := err.Error()
	var details interface{}
	exit := ExitCommandError
	if compileErr, ok := compiler.AsCompileError(err); ok {
		message = compileErr.Message
		details = compileErr
		exit = ExitFailure
	}
	_ = formatter.Error(code, message, details)
	return WrapExitError(exit, fmt.Sprintf("%s: %s", code, message), nil)
}

// compilation is a compiled notebook with its project configuration.
type compilation struct {
	cfg      *config.Config
	notebook string
	records  *ir.Records
	warnings []compiler.Warning
}

// compileProject loads the configuration of the project directory, then
// compiles and lints the notebook given as first argument, or the
// configured one.
func compileProject(opts *RootOptions, args []string) (*compilation, error) {
	cfg, err := config.Load(opts.Dir)
	if err != nil {
		return nil, err
	}

	path := cfg.Path(cfg.Notebook)
	if len(args) > 0 {
		path = args[0]
	}
	logger := opts.Logger()
	logger.Debug("loading notebook", "path", path, "language", cfg.Language)

	cells, err := notebook.Load(path)
	if err != nil {
		return nil, withCode(ErrCodeNotFound, err)
	}

	records, err := compiler.New(cfg.CompilerLabels(), logger).Compile(cells)
	if err != nil {
		return nil, err
	}

	warnings := compiler.Lint(records)
	for _, w := range warnings {
		logger.Warn("lint", "code", w.Code, "salt", w.Salt, "token", w.Token, "message", w.Message)
	}
	return &compilation{cfg: cfg, notebook: path, records: records, warnings: warnings}, nil
}

// openStore opens the history database of the project, creating its
// directory.
func openStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.Path(cfg.Database)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, withCode(ErrCodeStoreFailed, fmt.Errorf("creating database directory: %w", err))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, withCode(ErrCodeStoreFailed, err)
	}
	return st, nil
}

// storeError codes a failed read of the history database: an unknown
// compilation is a missing path like any other.
func storeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return withCode(ErrCodeNotFound, err)
	}
	return withCode(ErrCodeStoreFailed, err)
}

// indentRecords renders records the way records.json stores them.
func indentRecords(records *ir.Records) ([]byte, error) {
	data, err := records.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFile writes data to path, creating its directory.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return withCode(ErrCodeWriteFailed, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return withCode(ErrCodeWriteFailed, err)
	}
	return nil
}
