package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlab/internal/config"
	"github.com/roach88/sqlab/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Show string // compilation ID whose records are printed
}

// HistoryResult lists stored compilations.
type HistoryResult struct {
	Compilations []store.Compilation `json:"compilations"`
}

func (r HistoryResult) String() string {
	if len(r.Compilations) == 0 {
		return "No compilations stored."
	}
	var b strings.Builder
	for _, c := range r.Compilations {
		digest := c.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		fmt.Fprintf(&b, "%4d  %s  %s  %4d record(s)  %s  %s\n",
			c.Seq, c.ID, c.CreatedAt.Format(time.RFC3339), c.RecordCount, digest, c.SourcePath)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// storedRecords prints as indented records.json text, and embeds the same
// object in JSON responses.
type storedRecords struct {
	Compilation store.Compilation `json:"compilation"`
	Records     json.RawMessage   `json:"records"`
}

func (r storedRecords) String() string {
	return string(r.Records)
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [notebook]",
		Short: "List the compilations stored in the history database",
		Long: `List the compilations recorded by parse, oldest first, for one notebook
or for all of them. A compilation is recorded only when its records differ
from the previous one of the same notebook.

With --show, print the records of one compilation instead.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Show, "show", "", "print the records of a compilation")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := config.Load(opts.Dir)
	if err != nil {
		return reportError(formatter, err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return reportError(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if opts.Show != "" {
		c, err := st.Compilation(ctx, opts.Show)
		if err != nil {
			return reportError(formatter, storeError(err))
		}
		records, err := st.ReadRecords(ctx, opts.Show)
		if err != nil {
			return reportError(formatter, storeError(err))
		}
		data, err := indentRecords(records)
		if err != nil {
			return reportError(formatter, err)
		}
		return formatter.Success(storedRecords{Compilation: c, Records: data}, nil)
	}

	var source string
	if len(args) > 0 {
		source = args[0]
	}
	compilations, err := st.ListCompilations(ctx, source)
	if err != nil {
		return reportError(formatter, storeError(err))
	}
	return formatter.Success(HistoryResult{Compilations: compilations}, nil)
}
