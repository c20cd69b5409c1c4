package testutil

import (
	"fmt"
	"strings"

	"github.com/roach88/sqlab/internal/ir"
)

// Markdown builds a markdown cell. The text is split into source lines the
// way notebooks store them.
func Markdown(text string) ir.Cell {
	return ir.Cell{Kind: ir.CellMarkdown, Source: Lines(text)}
}

// Code builds a code cell without outputs.
func Code(text string) ir.Cell {
	return ir.Cell{Kind: ir.CellCode, Source: Lines(text)}
}

// SQL builds a %%sql cell. A non-empty token adds an executed output whose
// result table has a "token" column holding it.
func SQL(source, token string) ir.Cell {
	cell := ir.Cell{Kind: ir.CellCode, Source: Lines("%%sql\n" + source)}
	if token != "" {
		cell.Outputs = []ir.Output{{HTML: TokenTable(token)}}
	}
	return cell
}

// TokenTable renders a one-row result table as the SQL magic does.
func TokenTable(token string) string {
	return fmt.Sprintf("<table>\n    <tr>\n        <th>token</th>\n    </tr>\n    <tr>\n        <td>%s</td>\n    </tr>\n</table>", token)
}

// Lines splits text after each newline, keeping them.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.SplitAfter(strings.TrimSuffix(text, "\n"), "\n")
}
