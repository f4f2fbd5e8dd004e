package toml

import (
	"strconv"
	"strings"
)

// scanner splits a document into tokens
// Structural characters are ASCII, so it walks bytes; multi-byte runes only appear inside strings
type scanner struct {
	src  []byte
	off  int
	line int
	col  int
}

func newScanner(src []byte) *scanner {
	return &scanner{src: src, line: 1, col: 1}
}

func (s *scanner) advance(n int) {
	for ; n > 0 && s.off < len(s.src); n-- {
		if s.src[s.off] == '\n' {
			s.line++
			s.col = 1
		} else {
			s.col++
		}
		s.off++
	}
}

func (s *scanner) at() token {
	return token{line: s.line, col: s.col}
}

// skipBlank drops spaces, tabs, carriage returns and comments, stopping at a newline
func (s *scanner) skipBlank() {
	for s.off < len(s.src) {
		switch s.src[s.off] {
		case ' ', '\t', '\r':
			s.advance(1)
		case '#':
			for s.off < len(s.src) && s.src[s.off] != '\n' {
				s.advance(1)
			}
		default:
			return
		}
	}
}

func (s *scanner) next() (token, error) {
	s.skipBlank()
	t := s.at()
	if s.off >= len(s.src) {
		t.kind = kindEOF
		return t, nil
	}

	c := s.src[s.off]
	if c == '\n' {
		s.advance(1)
		t.kind, t.text = kindNewline, "\n"
		return t, nil
	}
	if k, ok := punct[c]; ok {
		s.advance(1)
		t.kind, t.text = k, string(c)
		return t, nil
	}

	switch {
	case c == '"':
		return s.basicString(t)
	case c == '\'':
		return s.literalString(t)
	case isBareByte(c) || c == '+':
		return s.word(t)
	}
	return t, errorAt(t, "unexpected character %q", c)
}

// basicString reads "..." and resolves escapes through strconv
func (s *scanner) basicString(t token) (token, error) {
	end := s.off + 1
	for ; end < len(s.src); end++ {
		switch s.src[end] {
		case '\\':
			end++
			continue
		case '\n':
			return t, errorAt(t, "newline in string")
		case '"':
			raw := string(s.src[s.off : end+1])
			text, err := strconv.Unquote(raw)
			if err != nil {
				return t, errorAt(t, "invalid escape in %s", raw)
			}
			s.advance(end + 1 - s.off)
			t.kind, t.text = kindString, text
			return t, nil
		}
	}
	return t, errorAt(t, "unterminated string")
}

// literalString reads '...' verbatim
func (s *scanner) literalString(t token) (token, error) {
	for end := s.off + 1; end < len(s.src); end++ {
		switch s.src[end] {
		case '\n':
			return t, errorAt(t, "newline in string")
		case '\'':
			t.kind, t.text = kindString, string(s.src[s.off+1:end])
			s.advance(end + 1 - s.off)
			return t, nil
		}
	}
	return t, errorAt(t, "unterminated string")
}

// word reads a bare key, boolean or number
// A dot continues the word only after a numeric start, so 1.5 is one token and a.b is three
func (s *scanner) word(t token) (token, error) {
	start := s.off
	numeric := looksNumeric(s.src[start:])
	for s.off < len(s.src) {
		c := s.src[s.off]
		if isBareByte(c) || c == '+' || (c == '.' && numeric) {
			s.advance(1)
			continue
		}
		break
	}
	t.text = string(s.src[start:s.off])

	switch {
	case t.text == "true" || t.text == "false":
		t.kind = kindBool
	case numeric:
		t.kind = numberKind(t.text)
	case strings.ContainsRune(t.text, '+'):
		return t, errorAt(t, "invalid bare key %q", t.text)
	default:
		t.kind = kindBare
	}
	return t, nil
}

func looksNumeric(b []byte) bool {
	if len(b) > 0 && (b[0] == '+' || b[0] == '-') {
		b = b[1:]
	}
	return len(b) > 0 && b[0] >= '0' && b[0] <= '9'
}

func numberKind(text string) kind {
	digits := strings.TrimLeft(text, "+-")
	if len(digits) > 1 && digits[0] == '0' && strings.ContainsRune("xXoObB", rune(digits[1])) {
		return kindInteger
	}
	if strings.ContainsAny(digits, ".eE") {
		return kindFloat
	}
	return kindInteger
}

func isBareByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
}
