package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool // lint warnings fail the validation
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool   `json:"valid"`
	Notebook string `json:"notebook"`
	Records  int    `json:"records"`
	Warnings int    `json:"warnings"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "✓ %s is valid (%d record(s))", r.Notebook, r.Records)
	} else {
		fmt.Fprintf(&b, "✗ %s has %d warning(s) (--strict)", r.Notebook, r.Warnings)
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [notebook]",
		Short: "Check a notebook without writing any output",
		Long: `Compile and lint the notebook without writing records, token table,
activity map or history.

Compile errors fail the validation. Lint warnings (dangling redirections,
redirection cycles, empty result heads, adventures without a first
episode) are reported, and fail the validation only with --strict.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat lint warnings as failures")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	c, err := compileProject(opts.RootOptions, args)
	if err != nil {
		return reportError(formatter, err)
	}

	result := ValidationResult{
		Valid:    !opts.Strict || len(c.warnings) == 0,
		Notebook: c.notebook,
		Records:  c.records.Len(),
		Warnings: len(c.warnings),
	}
	if err := formatter.Success(result, c.warnings); err != nil {
		return err
	}
	if !result.Valid {
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d warning(s)", len(c.warnings)))
	}
	return nil
}
