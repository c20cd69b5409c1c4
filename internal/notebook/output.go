package notebook

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/sqlab/internal/ir"
)

// tokenColumn is the header naming the column that carries access codes.
const tokenColumn = "token"

// FirstToken returns the first value of the "token" column found in the
// captured result tables, or false when the cell was never executed or
// produced none. A nil logger falls back to slog.Default().
func FirstToken(logger *slog.Logger, outputs []ir.Output) (string, bool) {
	logger = orDefault(logger)
	for _, out := range outputs {
		if out.HTML == "" {
			continue
		}
		if token, ok := tokenInTable(logger, out.HTML); ok {
			return token, true
		}
	}
	return "", false
}

// tokenInTable walks the HTML tokens of a result table. It tolerates
// fragments without <tr> tags: a data cell right after a header cell
// starts a new row.
func tokenInTable(logger *slog.Logger, doc string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(doc))
	column := -1
	col := 0
	var cell strings.Builder
	inCell, lastCell := "", ""
	rows := false

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				logger.Debug("malformed result table", "error", z.Err())
			}
			return "", false

		case html.StartTagToken:
			name, _ := z.TagName()
			switch tag := string(name); tag {
			case "tr":
				col, rows = 0, true
			case "th", "td":
				if tag == "td" && lastCell == "th" && !rows {
					col = 0
				}
				inCell = tag
				cell.Reset()
			}

		case html.TextToken:
			if inCell != "" {
				cell.Write(z.Text())
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag != inCell {
				continue
			}
			text := strings.TrimSpace(cell.String())
			switch tag {
			case "th":
				if text == tokenColumn {
					column = col
				}
			case "td":
				if column >= 0 && col == column && allDigits(text) {
					return text, true
				}
			}
			col++
			lastCell, inCell = tag, ""
		}
	}
}

// maxHeadRows counts the header row.
const maxHeadRows = 3

// ResultHead truncates the first captured result table to its header and
// first rows, followed by a row count. It returns "" and logs a warning
// when the cell has no result table.
func ResultHead(logger *slog.Logger, outputs []ir.Output) string {
	for _, out := range outputs {
		if strings.HasPrefix(out.HTML, "<table>") {
			return truncateTable(out.HTML)
		}
	}
	orDefault(logger).Warn("no table in the output", "outputs", len(outputs))
	return ""
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func truncateTable(table string) string {
	const open = "<table>\n"
	if !strings.HasPrefix(table, open) {
		return table
	}
	n := strings.Count(table, "<tr>") - 1

	pos := len(open)
	for i := 0; i < maxHeadRows; i++ {
		start := strings.Index(table[pos:], "<tr>")
		if start < 0 {
			break
		}
		from := pos + start + len("<tr>") + 1
		if from > len(table) {
			break
		}
		end := strings.Index(table[from:], "</tr>\n")
		if end < 0 {
			break
		}
		pos = from + end + len("</tr>\n")
	}

	closing := strings.LastIndex(table, "</table>")
	if closing < pos {
		return table
	}
	return table[:pos] + "</table>" + rowCount(n) + table[closing+len("</table>"):]
}

func rowCount(n int) string {
	plural := "s"
	if n == 1 {
		plural = ""
	}
	return fmt.Sprintf("\nTotal: %d row%s affected.", n, plural)
}
