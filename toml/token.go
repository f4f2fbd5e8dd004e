package toml

import "fmt"

// kind classifies a scanned token
type kind uint8

const (
	kindEOF kind = iota
	kindNewline
	kindBare    // bare key or unrecognised word
	kindString  // basic or literal string, escapes already resolved
	kindInteger // decimal, 0x, 0o or 0b with optional underscores
	kindFloat
	kindBool
	kindEqual
	kindDot
	kindComma
	kindLBracket
	kindRBracket
	kindLBrace
	kindRBrace
)

var punct = map[byte]kind{
	'=': kindEqual,
	'.': kindDot,
	',': kindComma,
	'[': kindLBracket,
	']': kindRBracket,
	'{': kindLBrace,
	'}': kindRBrace,
}

// token is one lexeme with the 1-based position of its first byte
type token struct {
	kind kind
	text string
	line int
	col  int
}

func (t token) describe() string {
	switch t.kind {
	case kindEOF:
		return "end of file"
	case kindNewline:
		return "end of line"
	}
	if len(t.text) > 20 {
		return fmt.Sprintf("%q...", t.text[:20])
	}
	return fmt.Sprintf("%q", t.text)
}

// SyntaxError reports malformed input at a byte column
// errors.Is(err, ErrSyntax) holds for every SyntaxError
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("toml %d:%d: %s", e.Line, e.Col, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func errorAt(t token, format string, args ...any) error {
	return &SyntaxError{Line: t.line, Col: t.col, Msg: fmt.Sprintf(format, args...)}
}
