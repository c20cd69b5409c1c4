package testutil

import (
	"encoding/json"

	"github.com/roach88/sqlab/internal/ir"
)

type nbOutput struct {
	OutputType string            `json:"output_type"`
	Data       map[string]string `json:"data"`
}

type nbCell struct {
	CellType string     `json:"cell_type"`
	Source   []string   `json:"source"`
	Outputs  []nbOutput `json:"outputs,omitempty"`
}

// Notebook encodes cells as an nbformat 4 document.
func Notebook(cells ...ir.Cell) []byte {
	doc := struct {
		NBFormat      int      `json:"nbformat"`
		NBFormatMinor int      `json:"nbformat_minor"`
		Cells         []nbCell `json:"cells"`
	}{NBFormat: 4, NBFormatMinor: 5, Cells: []nbCell{}}

	for _, c := range cells {
		cell := nbCell{CellType: string(c.Kind), Source: c.Source}
		if cell.Source == nil {
			cell.Source = []string{}
		}
		for _, out := range c.Outputs {
			cell.Outputs = append(cell.Outputs, nbOutput{
				OutputType: "execute_result",
				Data:       map[string]string{"text/html": out.HTML},
			})
		}
		doc.Cells = append(doc.Cells, cell)
	}

	data, err := json.MarshalIndent(doc, "", " ")
	if err != nil {
		panic(err)
	}
	return data
}
