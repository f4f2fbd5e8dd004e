package toml

import (
	"fmt"
	"strconv"
	"strings"
)

// parser builds the generic document tree: map[string]any for tables,
// []map[string]any for arrays of tables, []any for arrays,
// and int64, float64, string or bool for scalars
type parser struct {
	sc    *scanner
	tok   token
	root  map[string]any
	table map[string]any

	// Header paths already opened with [name]; array elements carry their index
	defined map[string]struct{}
}

func parse(data []byte) (map[string]any, error) {
	p := &parser{
		sc:      newScanner(data),
		root:    make(map[string]any),
		defined: make(map[string]struct{}),
	}
	p.table = p.root
	if err := p.advance(); err != nil {
		return nil, err
	}

	for p.tok.kind != kindEOF {
		if p.tok.kind == kindNewline {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}

		var err error
		if p.tok.kind == kindLBracket {
			err = p.header()
		} else {
			err = p.keyValue(p.table)
		}
		if err != nil {
			return nil, err
		}
		if p.tok.kind != kindNewline && p.tok.kind != kindEOF {
			return nil, p.unexpected("end of line")
		}
	}
	return p.root, nil
}

func (p *parser) advance() (err error) {
	p.tok, err = p.sc.next()
	return err
}

func (p *parser) expect(k kind, what string) error {
	if p.tok.kind != k {
		return p.unexpected(what)
	}
	return p.advance()
}

func (p *parser) unexpected(what string) error {
	return errorAt(p.tok, "expected %s, got %s", what, p.tok.describe())
}

func (p *parser) skipNewlines() error {
	for p.tok.kind == kindNewline {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// header handles [name] and [[name]]
func (p *parser) header() error {
	at := p.tok
	if err := p.advance(); err != nil {
		return err
	}
	array := p.tok.kind == kindLBracket
	if array {
		if err := p.advance(); err != nil {
			return err
		}
	}

	keys, err := p.key()
	if err != nil {
		return err
	}
	if err := p.expect(kindRBracket, "']'"); err != nil {
		return err
	}
	if array {
		if err := p.expect(kindRBracket, "']'"); err != nil {
			return err
		}
	}
	return p.open(at, keys, array)
}

// open walks from the root to the named table, creating it as needed, and makes it current
// Intermediate arrays of tables resolve to their last element
func (p *parser) open(at token, keys []string, array bool) error {
	cur := p.root
	path := ""
	for i, k := range keys {
		path = joinPath(path, k)
		last := i == len(keys)-1

		if last && array {
			list, isList := cur[k].([]map[string]any)
			if _, exists := cur[k]; exists && !isList {
				return errorAt(at, "%s is not an array of tables", path)
			}
			t := make(map[string]any)
			cur[k] = append(list, t)
			p.table = t
			return nil
		}

		switch v := cur[k].(type) {
		case nil:
			t := make(map[string]any)
			cur[k] = t
			cur = t
		case map[string]any:
			cur = v
		case []map[string]any:
			if last {
				return errorAt(at, "%s is an array of tables", path)
			}
			cur = v[len(v)-1]
			path = fmt.Sprintf("%s[%d]", path, len(v)-1)
		default:
			return errorAt(at, "%s is already a value", path)
		}
	}

	if _, dup := p.defined[path]; dup {
		return errorAt(at, "table %s defined twice", path)
	}
	p.defined[path] = struct{}{}
	p.table = cur
	return nil
}

// key reads a dotted key; digits and booleans are valid bare keys
func (p *parser) key() ([]string, error) {
	var keys []string
	for {
		switch p.tok.kind {
		case kindBare, kindString, kindInteger, kindBool:
			keys = append(keys, p.tok.text)
		default:
			return nil, p.unexpected("key")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != kindDot {
			return keys, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) keyValue(table map[string]any) error {
	at := p.tok
	keys, err := p.key()
	if err != nil {
		return err
	}
	if err := p.expect(kindEqual, "'='"); err != nil {
		return err
	}
	val, err := p.value()
	if err != nil {
		return err
	}
	return assign(at, table, keys, val)
}

func assign(at token, table map[string]any, keys []string, val any) error {
	for _, k := range keys[:len(keys)-1] {
		switch v := table[k].(type) {
		case nil:
			t := make(map[string]any)
			table[k] = t
			table = t
		case map[string]any:
			table = v
		default:
			return errorAt(at, "%s is not a table", k)
		}
	}
	k := keys[len(keys)-1]
	if _, dup := table[k]; dup {
		return errorAt(at, "duplicate key %s", strings.Join(keys, "."))
	}
	table[k] = val
	return nil
}

func (p *parser) value() (any, error) {
	t := p.tok
	var val any
	switch t.kind {
	case kindString:
		val = t.text
	case kindBool:
		val = t.text == "true"
	case kindInteger:
		n, err := parseInteger(t.text)
		if err != nil {
			return nil, errorAt(t, "invalid integer %q", t.text)
		}
		val = n
	case kindFloat:
		f, err := strconv.ParseFloat(strings.ReplaceAll(t.text, "_", ""), 64)
		if err != nil {
			return nil, errorAt(t, "invalid float %q", t.text)
		}
		val = f
	case kindLBracket:
		return p.array()
	case kindLBrace:
		return p.inlineTable()
	default:
		return nil, p.unexpected("value")
	}
	return val, p.advance()
}

// parseInteger accepts sign, base prefix and underscores; leading zeros are rejected
func parseInteger(text string) (int64, error) {
	clean := strings.ReplaceAll(text, "_", "")
	digits := strings.TrimLeft(clean, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] >= '0' && digits[1] <= '9' {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(clean, 0, 64)
}

// array allows newlines and a trailing comma between elements
func (p *parser) array() ([]any, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	list := make([]any, 0)
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if p.tok.kind == kindRBracket {
			break
		}

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		list = append(list, v)

		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if p.tok.kind == kindComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.kind != kindRBracket {
			return nil, p.unexpected("',' or ']'")
		}
	}
	return list, p.advance()
}

// inlineTable reads { k = v, ... } on a single line
func (p *parser) inlineTable() (map[string]any, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	t := make(map[string]any)
	if p.tok.kind == kindRBrace {
		return t, p.advance()
	}
	for {
		if err := p.keyValue(t); err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case kindComma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case kindRBrace:
			return t, p.advance()
		default:
			return nil, p.unexpected("',' or '}'")
		}
	}
}
