package notebook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roach88/sqlab/internal/ir"
)

// multiline is an nbformat text field: a string or a list of lines.
type multiline []string

func (m *multiline) UnmarshalJSON(data []byte) error {
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*m = lines
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*m = splitLines(s)
	return nil
}

// splitLines splits s after each newline, as nbformat stores sources.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

type rawNotebook struct {
	NBFormat int       `json:"nbformat"`
	Cells    []rawCell `json:"cells"`
}

type rawCell struct {
	CellType string      `json:"cell_type"`
	Source   multiline   `json:"source"`
	Outputs  []rawOutput `json:"outputs"`
}

type rawOutput struct {
	Data map[string]json.RawMessage `json:"data"`
}

// Load reads a notebook file.
func Load(path string) ([]ir.Cell, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open notebook: %w", err)
	}
	defer f.Close()

	cells, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cells, nil
}

// Decode reads nbformat 4 JSON. Raw cells are kept with their own kind so
// that the builder can skip them.
func Decode(r io.Reader) ([]ir.Cell, error) {
	var nb rawNotebook
	if err := json.NewDecoder(r).Decode(&nb); err != nil {
		return nil, fmt.Errorf("decode notebook: %w", err)
	}
	if nb.NBFormat != 0 && nb.NBFormat < 4 {
		return nil, fmt.Errorf("unsupported nbformat %d", nb.NBFormat)
	}

	cells := make([]ir.Cell, 0, len(nb.Cells))
	for i, rc := range nb.Cells {
		cell := ir.Cell{
			Kind:   ir.CellKind(rc.CellType),
			Source: []string(rc.Source),
		}
		for j, ro := range rc.Outputs {
			out := ir.Output{}
			if raw, ok := ro.Data["text/html"]; ok {
				var html multiline
				if err := json.Unmarshal(raw, &html); err != nil {
					return nil, fmt.Errorf("cell %d output %d: %w", i, j, err)
				}
				out.HTML = strings.Join(html, "")
			}
			cell.Outputs = append(cell.Outputs, out)
		}
		cells = append(cells, cell)
	}
	return cells, nil
}
