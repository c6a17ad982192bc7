package solrtest

import (
	"fmt"
	"strings"

	"mercator-hq/archivist/pkg/record"
)

// matcher evaluates a parsed query against a document.
type matcher func(record.Record) bool

// parseQuery compiles the query subset the archiver emits: *:*, field:term,
// field:"phrase", inclusive/exclusive ranges with * bounds, AND, OR and
// parentheses.
func parseQuery(q string) (matcher, error) {
	toks, err := tokenize(q)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	m, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected %q in %q", p.toks[p.pos].text, q)
	}
	return m, nil
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(q string) ([]token, error) {
	var toks []token
	rs := []rune(q)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			i++
		case strings.ContainsRune("()[]{}:", r):
			toks = append(toks, token{tokPunct, string(r)})
			i++
		case r == '"':
			var b strings.Builder
			i++
			closed := false
			for i < len(rs) {
				if rs[i] == '\\' && i+1 < len(rs) {
					b.WriteRune(rs[i+1])
					i += 2
					continue
				}
				if rs[i] == '"' {
					closed = true
					i++
					break
				}
				b.WriteRune(rs[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated phrase in %q", q)
			}
			toks = append(toks, token{tokQuoted, b.String()})
		default:
			start := i
			for i < len(rs) && !strings.ContainsRune(" \t\n()[]{}:\"", rs[i]) {
				i++
			}
			toks = append(toks, token{tokWord, string(rs[start:i])})
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (token, error) {
	t, ok := p.peek()
	if !ok {
		return token{}, fmt.Errorf("unexpected end of query")
	}
	p.pos++
	return t, nil
}

func (p *parser) expect(text string) error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.text != text {
		return fmt.Errorf("expected %q, got %q", text, t.text)
	}
	return nil
}

func (p *parser) keyword(word string) bool {
	t, ok := p.peek()
	if ok && t.kind == tokWord && t.text == word {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expr() (matcher, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(doc record.Record) bool { return l(doc) || r(doc) }
	}
	return left, nil
}

func (p *parser) and() (matcher, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(doc record.Record) bool { return l(doc) && r(doc) }
	}
	return left, nil
}

func (p *parser) unary() (matcher, error) {
	t, ok := p.peek()
	if ok && t.kind == tokPunct && t.text == "(" {
		p.pos++
		m, err := p.expr()
		if err != nil {
			return nil, err
		}
		return m, p.expect(")")
	}
	return p.clause()
}

func (p *parser) clause() (matcher, error) {
	field, err := p.next()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	t, err := p.next()
	if err != nil {
		return nil, err
	}

	if field.text == "*" && t.text == "*" {
		return func(record.Record) bool { return true }, nil
	}
	if t.kind == tokWord && t.text == "*" {
		return func(doc record.Record) bool {
			_, ok := doc.Get(field.text)
			return ok
		}, nil
	}

	switch {
	case t.kind == tokPunct && (t.text == "[" || t.text == "{"):
		return p.rangeClause(field.text, t.text == "[")
	case t.kind == tokQuoted || t.kind == tokWord:
		want := t.text
		return func(doc record.Record) bool {
			return anyValue(doc, field.text, func(v string) bool { return v == want })
		}, nil
	}
	return nil, fmt.Errorf("unexpected %q after %s:", t.text, field.text)
}

func (p *parser) rangeClause(field string, lowerIncl bool) (matcher, error) {
	lower, err := p.bound()
	if err != nil {
		return nil, err
	}
	if !p.keyword("TO") {
		return nil, fmt.Errorf("expected TO in range on %s", field)
	}
	upper, err := p.bound()
	if err != nil {
		return nil, err
	}
	closing, err := p.next()
	if err != nil {
		return nil, err
	}
	if closing.text != "]" && closing.text != "}" {
		return nil, fmt.Errorf("unterminated range on %s", field)
	}
	upperIncl := closing.text == "]"

	return func(doc record.Record) bool {
		return anyValue(doc, field, func(v string) bool {
			if lower != nil {
				if c := strings.Compare(v, *lower); c < 0 || (c == 0 && !lowerIncl) {
					return false
				}
			}
			if upper != nil {
				if c := strings.Compare(v, *upper); c > 0 || (c == 0 && !upperIncl) {
					return false
				}
			}
			return true
		})
	}, nil
}

// bound returns nil for an open (*) bound.
func (p *parser) bound() (*string, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.kind == tokWord && t.text == "*" {
		return nil, nil
	}
	if t.kind == tokPunct {
		return nil, fmt.Errorf("unexpected %q in range", t.text)
	}
	v := t.text
	return &v, nil
}

func anyValue(doc record.Record, field string, pred func(string) bool) bool {
	v, ok := doc.Get(field)
	if !ok {
		return false
	}
	if v.Kind() == record.KindList {
		for _, item := range v.Items() {
			if pred(item.String()) {
				return true
			}
		}
		return false
	}
	return pred(v.String())
}
