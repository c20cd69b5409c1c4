package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlab/internal/config"
	"github.com/roach88/sqlab/internal/tokentable"
)

// TokensOptions holds flags for the tokens command.
type TokensOptions struct {
	*RootOptions
	Compilation string // stored compilation ID; empty compiles the notebook
	Output      string // TSV file to write
}

// tokenTable prints as TSV in text mode and as a list of items in JSON.
type tokenTable []tokentable.Item

func (t tokenTable) String() string {
	var b strings.Builder
	if err := tokentable.WriteTSV(&b, t); err != nil {
		return err.Error()
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokensOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tokens [notebook]",
		Short: "Print the token table of a notebook",
		Long: `Print the token table: for each token, the activity, the task it is
produced by, the task it leads to and the kind of move.

Compiles the notebook, or reads a stored compilation with --compilation.

Examples:
  sqlab tokens
  sqlab tokens adventure.ipynb -o tokens.tsv
  sqlab tokens --compilation 0192f0c3-... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Compilation, "compilation", "", "read the token table of a stored compilation")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "also write the table to this TSV file")

	return cmd
}

func runTokens(opts *TokensOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Compilation != "" && len(args) > 0 {
		return reportError(formatter, errors.New("a notebook and --compilation are mutually exclusive"))
	}

	var items []tokentable.Item
	if opts.Compilation != "" {
		cfg, err := config.Load(opts.Dir)
		if err != nil {
			return reportError(formatter, err)
		}
		items, err = storedTokens(cmd.Context(), cfg, opts.Compilation)
		if err != nil {
			return reportError(formatter, err)
		}
	} else {
		c, err := compileProject(opts.RootOptions, args)
		if err != nil {
			return reportError(formatter, err)
		}
		items, err = tokentable.FromRecords(c.records)
		if err != nil {
			return reportError(formatter, err)
		}
	}

	if opts.Output != "" {
		var b strings.Builder
		if err := tokentable.WriteTSV(&b, items); err != nil {
			return reportError(formatter, err)
		}
		if err := writeFile(opts.Output, []byte(b.String())); err != nil {
			return reportError(formatter, err)
		}
	}

	return formatter.Success(tokenTable(items), nil)
}

// storedTokens reads the token table of a stored compilation.
func storedTokens(ctx context.Context, cfg *config.Config, id string) ([]tokentable.Item, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	items, err := st.ReadTokenTable(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return items, nil
}
