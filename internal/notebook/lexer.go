package notebook

import (
	"strings"
	"unicode/utf8"
)

// Placeholder is the literal that stands for the learner's current value
// in a stored formula.
const Placeholder = "(0)"

// ClassifyHeading recognizes a markdown heading line of one to three '#'
// followed by a space. Depth is the marker count minus one.
func ClassifyHeading(line string) (depth int, title string, ok bool) {
	s := scanner{src: line}
	n := s.skip('#')
	if n < 1 || n > 3 || !s.accept(" ") {
		return 0, "", false
	}
	rest := s.rest()
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return 0, "", false
	}
	return n - 1, strings.TrimSpace(rest), true
}

// SplitLabel parses a "**Label [salt].** body" prefix. The bracketed salt
// is optional. Text without such a prefix comes back as the body with an
// empty label.
func SplitLabel(text string) (label, salt, body string) {
	if !strings.HasPrefix(text, "**") {
		return "", "", text
	}
	// A label never contains '*', so the first one closes it.
	end := strings.IndexByte(text[2:], '*') + 2
	if end < 4 || !strings.HasPrefix(text[end:], "**") || text[end-1] != '.' {
		return "", "", text
	}
	label = text[2 : end-1]

	if i := strings.LastIndex(label, " ["); i > 0 && strings.HasSuffix(label, "]") {
		if digits := label[i+2 : len(label)-1]; allDigits(digits) {
			label, salt = label[:i], digits
		}
	}

	s := scanner{src: text, pos: end + 2}
	s.skip(' ')
	return label, salt, s.rest()
}

// SplitSQLSource splits the source of a %%sql cell (magic line removed)
// into the label and text of its leading comment block, the query, and the
// salt named by a trailing "--> ... [salt]" redirection line.
func SplitSQLSource(src string) (label, comment, query, nextSalt string) {
	lines := strings.SplitAfter(src, "\n")
	for i, line := range lines {
		lines[i] = markSectionBreak(line)
	}

	// Comment block: "--" plus a blank, each line newline-terminated.
	var parts []string
	n := 0
	for n < len(lines) && isCommentLine(lines[n]) {
		line := strings.TrimSuffix(lines[n], "\n")
		if n == 0 {
			s := scanner{src: line, pos: 3}
			if w := s.word(); w != "" && s.accept(".") {
				label = w
				s.accept(" ")
			} else {
				s.pos = 3
			}
			parts = append(parts, strings.TrimRight(s.rest(), " \t\r"))
		} else {
			parts = append(parts, strings.Trim(line[2:], " \t\r"))
		}
		n++
	}
	comment = strings.TrimSpace(strings.Join(parts, " "))

	body := lines[n:]
	for i := 1; i < len(body); i++ {
		if salt, ok := redirection(body[i]); ok {
			nextSalt = salt
			body = body[:i]
			break
		}
	}
	query = strings.TrimSpace(strings.Join(body, ""))
	return label, comment, query, nextSalt
}

func isCommentLine(line string) bool {
	return len(line) > 2 && strings.HasPrefix(line, "--") && isBlank(line[2]) &&
		strings.HasSuffix(line, "\n")
}

// markSectionBreak turns "-- _Section._" into "-- <br>_Section._" so that
// emphasized section titles start on their own line once rendered.
func markSectionBreak(line string) string {
	if !strings.HasPrefix(line, "-- _") {
		return line
	}
	text := strings.TrimSuffix(line[3:], "\n")
	if i := strings.LastIndex(text, "._"); i >= 2 {
		return "-- <br>" + line[3:]
	}
	return line
}

// redirection parses "--> anything [digits]" with optional trailing blanks.
func redirection(line string) (string, bool) {
	if len(line) < 4 || !strings.HasPrefix(line, "-->") || !isBlank(line[3]) {
		return "", false
	}
	line = strings.TrimRight(line, " \t\r\n")
	if !strings.HasSuffix(line, "]") {
		return "", false
	}
	open := strings.LastIndexByte(line, '[')
	if open < 4 {
		return "", false
	}
	digits := line[open+1 : len(line)-1]
	if !allDigits(digits) {
		return "", false
	}
	return digits, true
}

// SplitFormula separates the token-producing "salt_NNN(...) AS token"
// expression from the rest of a query. The query keeps what surrounds the
// formula, minus the separating comma. The formula's {{x}} placeholder is
// stored as Placeholder.
func SplitFormula(raw string) (query, formula, salt string) {
	for i := 1; i < len(raw); i++ {
		if !hasPrefixFold(raw[i:], "salt_") {
			continue
		}
		s := scanner{src: raw, pos: i + len("salt_")}
		digits := s.digits()
		if digits == "" || s.atEnd() {
			continue
		}
		end := formulaEnd(raw, s.pos+1)
		if end < 0 {
			continue
		}
		prefix := trimSeparator(raw[:i])
		if prefix == "" {
			prefix = raw[:1]
		}
		formula = strings.ReplaceAll(raw[i:end], "{{x}}", Placeholder)
		return prefix + raw[end:], formula, digits
	}
	return raw, "", ""
}

// formulaEnd returns the index just past the first "as<spaces>token"
// starting at or after from, or -1.
func formulaEnd(raw string, from int) int {
	for k := from; k < len(raw); k++ {
		if !hasPrefixFold(raw[k:], "as") {
			continue
		}
		s := scanner{src: raw, pos: k + 2}
		if s.skip(' ') == 0 {
			continue
		}
		if hasPrefixFold(s.rest(), "token") {
			return s.pos + len("token")
		}
	}
	return -1
}

// trimSeparator drops trailing blanks, then one comma, then blanks again.
func trimSeparator(s string) string {
	s = strings.TrimRightFunc(s, isSpace)
	s = strings.TrimSuffix(s, ",")
	return strings.TrimRightFunc(s, isSpace)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

// Dequalify rewrites single-letter qualified hash columns ("A.hash",
// "B_hash") to a bare "hash", so that formulas differing only by table
// alias compare equal.
func Dequalify(formula string) string {
	var b strings.Builder
	for i := 0; i < len(formula); {
		c := formula[i]
		if c >= 'A' && c <= 'Z' && i+6 <= len(formula) &&
			(formula[i+1] == '.' || formula[i+1] == '_') &&
			formula[i+2:i+6] == "hash" && !wordBefore(formula, i) {
			b.WriteString("hash")
			i += 6
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func wordBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

// ParseTweak recognizes "x = value # description" on the first line of a
// code cell. The following "# key: value" lines add named variants.
func ParseTweak(lines []string) (description string, variants map[string]string, ok bool) {
	if len(lines) == 0 {
		return "", nil, false
	}
	first := strings.TrimSuffix(lines[0], "\n")
	s := scanner{src: first}
	if !s.accept("x") {
		return "", nil, false
	}
	s.skip(' ')
	if !s.accept("=") {
		return "", nil, false
	}
	rest := s.rest()
	for k := strings.LastIndexByte(rest, '#'); k >= 1; k = strings.LastIndexByte(rest[:k], '#') {
		if desc := strings.TrimLeft(rest[k+1:], " "); desc != "" {
			description = desc
			ok = true
			break
		}
	}
	if !ok {
		return "", nil, false
	}

	for _, line := range lines[1:] {
		if key, value, found := parseVariant(line); found {
			if variants == nil {
				variants = make(map[string]string)
			}
			variants[strings.ToLower(key)] = value
		}
	}
	return description, variants, true
}

func parseVariant(line string) (key, value string, ok bool) {
	s := scanner{src: strings.TrimSuffix(line, "\n")}
	if !s.accept("# ") {
		return "", "", false
	}
	key = s.word()
	if key == "" || !s.accept(": ") || s.atEnd() {
		return "", "", false
	}
	return key, strings.TrimSpace(s.rest()), true
}
