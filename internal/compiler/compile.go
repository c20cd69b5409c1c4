package compiler

import (
	"log/slog"

	"github.com/roach88/sqlab/internal/ir"
)

// Compiler turns notebook cells into records.
type Compiler struct {
	labels Labels
	logger *slog.Logger
}

// New creates a compiler. A nil logger falls back to slog.Default().
func New(labels Labels, logger *slog.Logger) *Compiler {
	if labels == nil {
		labels = DefaultLabels()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{labels: labels, logger: logger}
}

// Build runs the scan only.
func (c *Compiler) Build(cells []ir.Cell) ([]*Segment, error) {
	return newBuilder(c.labels, c.logger).run(cells)
}

// Compile scans the cells and resolves the tokens. Any error aborts the
// whole compilation: no partial records are returned.
func (c *Compiler) Compile(cells []ir.Cell) (*ir.Records, error) {
	segments, err := c.Build(cells)
	if err != nil {
		return nil, err
	}
	records, err := Resolve(segments)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("compiled",
		"cells", len(cells),
		"segments", len(segments),
		"records", records.Len(),
	)
	return records, nil
}
