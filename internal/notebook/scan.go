package notebook

import (
	"unicode"
	"unicode/utf8"
)

// scanner is a byte cursor over a single string.
type scanner struct {
	src string
	pos int
}

func (s *scanner) atEnd() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.pos]
}

// accept consumes lit if the input continues with it.
func (s *scanner) accept(lit string) bool {
	if len(s.src)-s.pos >= len(lit) && s.src[s.pos:s.pos+len(lit)] == lit {
		s.pos += len(lit)
		return true
	}
	return false
}

// skip consumes a run of b and returns its length.
func (s *scanner) skip(b byte) int {
	start := s.pos
	for !s.atEnd() && s.src[s.pos] == b {
		s.pos++
	}
	return s.pos - start
}

// digits consumes a run of ASCII digits.
func (s *scanner) digits() string {
	start := s.pos
	for !s.atEnd() && isDigit(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

// word consumes a run of letters, digits and underscores.
func (s *scanner) word() string {
	start := s.pos
	for !s.atEnd() {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if !isWordRune(r) {
			break
		}
		s.pos += size
	}
	return s.src[start:s.pos]
}

func (s *scanner) rest() string { return s.src[s.pos:] }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isBlank(b byte) bool { return b == ' ' || b == '\t' }

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// hasPrefixFold reports whether s starts with the lowercase ASCII prefix,
// ignoring ASCII case.
func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != prefix[i] {
			return false
		}
	}
	return true
}
