package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlab/internal/graph"
	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/tokentable"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	NoStore  bool // skip the history database
	NoRender bool // skip Graphviz rendering
}

// ParseResult summarizes a parse run.
type ParseResult struct {
	Notebook     string `json:"notebook"`
	Records      int    `json:"records"`
	Exercises    int    `json:"exercises"`
	Episodes     int    `json:"episodes"`
	Hints        int    `json:"hints"`
	Tokens       int    `json:"tokens"`
	RecordsPath  string `json:"records_path"`
	TokensPath   string `json:"tokens_path"`
	GraphPath    string `json:"graph_path"`
	GraphChanged bool   `json:"graph_changed"`
	Compilation  string `json:"compilation,omitempty"`
	Stored       bool   `json:"stored"`
}

func (r ParseResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Compiled %s: %d record(s), %d exercise(s), %d episode(s), %d hint(s)\n",
		r.Notebook, r.Records, r.Exercises, r.Episodes, r.Hints)
	fmt.Fprintf(&b, "  records: %s\n", r.RecordsPath)
	fmt.Fprintf(&b, "  tokens:  %s (%d row(s))\n", r.TokensPath, r.Tokens)
	if r.GraphChanged {
		fmt.Fprintf(&b, "  graph:   %s\n", r.GraphPath)
	} else {
		fmt.Fprintf(&b, "  graph:   %s (unchanged)\n", r.GraphPath)
	}
	switch {
	case r.Compilation == "":
	case r.Stored:
		fmt.Fprintf(&b, "  stored as compilation %s", r.Compilation)
	default:
		fmt.Fprintf(&b, "  unchanged since compilation %s", r.Compilation)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse [notebook]",
		Short: "Compile a notebook into records, token table and activity map",
		Long: `Compile the notebook cells into the token-indexed records.

Writes records.json, the token table (TSV) and the activity map
description (Graphviz), renders the map when the description changed,
and stores the compilation in the history database unless nothing
changed since the last one.

The notebook defaults to the one named in sqlab.cue.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "do not record the compilation in the history database")
	cmd.Flags().BoolVar(&opts.NoRender, "no-render", false, "do not render the activity map")

	return cmd
}

func runParse(opts *ParseOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger()

	c, err := compileProject(opts.RootOptions, args)
	if err != nil {
		return reportError(formatter, err)
	}
	cfg := c.cfg

	items, err := tokentable.FromRecords(c.records)
	if err != nil {
		return reportError(formatter, err)
	}

	result := ParseResult{
		Notebook:    c.notebook,
		Records:     c.records.Len(),
		Tokens:      len(items),
		RecordsPath: cfg.Path(cfg.Output.Records),
		TokensPath:  cfg.Path(cfg.Output.Tokens),
		GraphPath:   cfg.Path(cfg.Output.Graph),
	}
	for _, task := range c.records.Tasks() {
		if task.Kind() == ir.KindExercise {
			result.Exercises++
		} else {
			result.Episodes++
		}
	}
	result.Hints = len(c.records.Hints())

	// The graph consumes the hint salts, which records.json leaves out.
	g, err := graph.Build(c.records)
	if err != nil {
		return reportError(formatter, err)
	}
	text, err := g.Render()
	if err != nil {
		return reportError(formatter, err)
	}
	if err := os.MkdirAll(filepath.Dir(result.GraphPath), 0o755); err != nil {
		return reportError(formatter, withCode(ErrCodeWriteFailed, err))
	}
	result.GraphChanged, err = graph.WriteIfChanged(result.GraphPath, text)
	if err != nil {
		return reportError(formatter, withCode(ErrCodeWriteFailed, err))
	}
	if result.GraphChanged && !opts.NoRender {
		renderer := &graph.Renderer{Binary: cfg.Render.Binary, Logger: logger}
		if err := renderer.Render(cmd.Context(), result.GraphPath, renderOutputs(cfg.Render.Formats, cfg.Path(cfg.Output.PDF), cfg.Path(cfg.Output.SVG))); err != nil {
			logger.Warn("activity map not rendered", "error", err)
		}
	}

	data, err := indentRecords(c.records)
	if err != nil {
		return reportError(formatter, err)
	}
	if err := writeFile(result.RecordsPath, data); err != nil {
		return reportError(formatter, err)
	}

	if err := os.MkdirAll(filepath.Dir(result.TokensPath), 0o755); err != nil {
		return reportError(formatter, withCode(ErrCodeWriteFailed, err))
	}
	if err := tokentable.Save(result.TokensPath, items); err != nil {
		return reportError(formatter, withCode(ErrCodeWriteFailed, err))
	}

	if !opts.NoStore {
		st, err := openStore(cfg)
		if err != nil {
			return reportError(formatter, err)
		}
		defer st.Close()

		stored, written, err := st.WriteCompilation(cmd.Context(), c.notebook, c.records, items)
		if err != nil {
			return reportError(formatter, withCode(ErrCodeStoreFailed, err))
		}
		result.Compilation = stored.ID
		result.Stored = written
		logger.Debug("compilation stored", "id", stored.ID, "seq", stored.Seq, "written", written)
	}

	return formatter.Success(result, c.warnings)
}

// renderOutputs maps each requested format to its image path.
func renderOutputs(formats []string, pdfPath, svgPath string) map[string]string {
	outputs := make(map[string]string, len(formats))
	for _, format := range formats {
		switch format {
		case "pdf":
			outputs[format] = pdfPath
		case "svg":
			outputs[format] = svgPath
		}
	}
	return outputs
}
