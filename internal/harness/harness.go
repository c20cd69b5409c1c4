package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/sqlab/internal/compiler"
	"github.com/roach88/sqlab/internal/graph"
	"github.com/roach88/sqlab/internal/ir"
	"github.com/roach88/sqlab/internal/store"
	"github.com/roach88/sqlab/internal/testutil"
	"github.com/roach88/sqlab/internal/tokentable"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and compilation IDs.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile the cells with the scenario labels
// 2. Check the expected error, or lint the records
// 3. Build the graph and the token table
// 4. Persist the compilation and check it reloads unchanged
// 5. Evaluate the assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDs("scenario")),
		store.WithClock(testutil.NewDeterministicClock()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	records, err := compiler.New(scenario.LabelTable(), h.logger).Compile(scenario.NotebookCells())
	if err != nil {
		compileErr, ok := compiler.AsCompileError(err)
		if !ok {
			return nil, fmt.Errorf("failed to compile: %w", err)
		}
		result.Err = compileErr
		checkExpectedError(result, scenario.Expect, compileErr)
		return result, nil
	}
	if scenario.Expect != nil {
		result.AddError(fmt.Sprintf("expected error %s, compilation succeeded", scenario.Expect.Error))
	}

	result.Records = records
	result.Warnings = compiler.Lint(records)

	items, err := tokentable.FromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("failed to build token table: %w", err)
	}
	result.Tokens = items

	g, err := graph.Build(records)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	if result.Graph, err = g.Render(); err != nil {
		return nil, fmt.Errorf("failed to render graph: %w", err)
	}

	compilation, _, err := h.store.WriteCompilation(ctx, scenario.Name, records, items)
	if err != nil {
		return nil, fmt.Errorf("failed to store compilation: %w", err)
	}
	result.Compilation = compilation

	reloaded, err := h.store.ReadRecords(ctx, compilation.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload records: %w", err)
	}
	if digest, err := ir.Digest(reloaded); err != nil {
		return nil, fmt.Errorf("failed to hash reloaded records: %w", err)
	} else if digest != compilation.Digest {
		result.AddError(fmt.Sprintf("stored records changed: digest %s, reloaded %s", compilation.Digest, digest))
	}

	actx := &AssertionContext{
		Store:       h.store,
		Ctx:         ctx,
		Compilation: compilation.ID,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"records", records.Len(),
		"warnings", len(result.Warnings),
		"pass", result.Pass,
	)
	return result, nil
}

func checkExpectedError(result *Result, expect *ExpectClause, err *compiler.CompileError) {
	if expect == nil {
		result.AddError(fmt.Sprintf("unexpected compile error: %v", err))
		return
	}
	if err.Code != expect.Error {
		result.AddError(fmt.Sprintf("expected error %s, got %v", expect.Error, err))
		return
	}
	if expect.Message != "" && !strings.Contains(err.Error(), expect.Message) {
		result.AddError(fmt.Sprintf("expected error message containing %q, got %q", expect.Message, err.Error()))
	}
}

// Snapshot renders the result for golden comparison: the compile error,
// or the record summary followed by the graph description and the token
// table.
func Snapshot(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	if result.Err != nil {
		buf.WriteString("error:\n")
		buf.WriteString(result.Err.Error())
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	}
	if result.Records == nil {
		return nil, fmt.Errorf("snapshot: no records")
	}

	buf.WriteString("records:\n")
	for _, token := range result.Records.Keys() {
		rec, _ := result.Records.Lookup(token)
		buf.WriteString(token)
		buf.WriteByte(' ')
		buf.WriteString(string(rec.Kind()))
		switch r := rec.(type) {
		case ir.Alias:
			buf.WriteString(" -> " + r.Target)
		case ir.Exit:
			buf.WriteString(" -> " + r.Entry)
		}
		buf.WriteByte('\n')
	}

	buf.WriteString("graph:\n")
	buf.WriteString(result.Graph)
	if !strings.HasSuffix(result.Graph, "\n") {
		buf.WriteByte('\n')
	}

	buf.WriteString("tokens:\n")
	if err := tokentable.WriteTSV(&buf, result.Tokens); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
