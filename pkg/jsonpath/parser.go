package jsonpath

import (
	"fmt"
	"regexp"
	"strconv"
)

// SyntaxError 表示表达式无法解析。
type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid jsonpath %q at offset %d: %s", e.Expr, e.Pos, e.Msg)
}

type parser struct {
	expr   string
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Expr: p.expr, Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, got %s", what, t)
	}
	return t, nil
}

// parseRoot 解析顶层路径。省略 `$` 的写法按从根开始处理。
func (p *parser) parseRoot() ([]step, error) {
	t := p.peek()
	switch t.kind {
	case tokRoot:
		p.next()
		return p.parseSegments()
	case tokIdent, tokString:
		p.next()
		steps := []step{fieldStep{names: []string{t.text}}}
		rest, err := p.parseSegments()
		if err != nil {
			return nil, err
		}
		return append(steps, rest...), nil
	default:
		return nil, p.errorf(t, "expected '$', got %s", t)
	}
}

func (p *parser) parseSegments() ([]step, error) {
	var steps []step
	for {
		t := p.peek()
		switch t.kind {
		case tokDot:
			p.next()
			s, err := p.parseMember()
			if err != nil {
				return nil, err
			}
			steps = append(steps, s)
		case tokDotDot:
			p.next()
			s, err := p.parseMember()
			if err != nil {
				return nil, err
			}
			steps = append(steps, descendantStep{inner: s})
		case tokLBracket:
			p.next()
			s, err := p.parseBracket()
			if err != nil {
				return nil, err
			}
			steps = append(steps, s)
		default:
			return steps, nil
		}
	}
}

func (p *parser) parseMember() (step, error) {
	t := p.next()
	switch t.kind {
	case tokIdent, tokString:
		return fieldStep{names: []string{t.text}}, nil
	case tokStar:
		return wildcardStep{}, nil
	case tokLBracket:
		return p.parseBracket()
	default:
		return nil, p.errorf(t, "expected field name, got %s", t)
	}
}

// parseBracket 解析 `[` 之后的内容，包括结尾的 `]`。
func (p *parser) parseBracket() (step, error) {
	t := p.peek()
	var (
		s   step
		err error
	)
	switch t.kind {
	case tokStar:
		p.next()
		s = wildcardStep{}
	case tokQuestion:
		p.next()
		var cond boolExpr
		cond, err = p.parseOr()
		if err == nil {
			s = filterStep{cond: cond}
		}
	case tokString, tokIdent:
		s, err = p.parseNames()
	case tokNumber, tokColon:
		s, err = p.parseIndexOrSlice()
	default:
		return nil, p.errorf(t, "unexpected %s inside brackets", t)
	}
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) parseNames() (step, error) {
	var names []string
	for {
		t := p.next()
		if t.kind != tokString && t.kind != tokIdent {
			return nil, p.errorf(t, "expected field name, got %s", t)
		}
		names = append(names, t.text)
		if p.peek().kind != tokComma {
			return fieldStep{names: names}, nil
		}
		p.next()
	}
}

func (p *parser) parseIndexOrSlice() (step, error) {
	var parts [3]*int
	idx := 0
	sawColon := false
	var indices []int
	for {
		t := p.peek()
		switch t.kind {
		case tokNumber:
			p.next()
			n, err := strconv.Atoi(t.text)
			if err != nil {
				return nil, p.errorf(t, "invalid index %s", t)
			}
			if parts[idx] != nil {
				return nil, p.errorf(t, "unexpected %s", t)
			}
			parts[idx] = &n
		case tokColon:
			p.next()
			if len(indices) > 0 {
				return nil, p.errorf(t, "cannot mix index list and slice")
			}
			sawColon = true
			idx++
			if idx > 2 {
				return nil, p.errorf(t, "too many ':' in slice")
			}
		case tokComma:
			p.next()
			if sawColon || parts[0] == nil {
				return nil, p.errorf(t, "unexpected ','")
			}
			indices = append(indices, *parts[0])
			parts[0] = nil
		default:
			if sawColon {
				return sliceStep{start: parts[0], end: parts[1], step: parts[2]}, nil
			}
			if parts[0] == nil {
				return nil, p.errorf(t, "expected index, got %s", t)
			}
			return indexStep{indices: append(indices, *parts[0])}, nil
		}
	}
}

func (p *parser) parseOr() (boolExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (boolExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (boolExpr, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{inner: inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (boolExpr, error) {
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		if t := p.peek(); t.kind == tokCompare {
			return nil, p.errorf(t, "cannot compare a grouped condition")
		}
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	opTok := p.peek()
	if opTok.kind != tokCompare {
		return existsExpr{operand: left}, nil
	}
	p.next()
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	cmp := compareExpr{left: left, right: right, op: opTok.text}
	if cmp.op == "=~" {
		lit, ok := right.(literal)
		if !ok {
			return nil, p.errorf(opTok, "right side of =~ must be a string literal")
		}
		pattern, ok := lit.value.(string)
		if !ok {
			return nil, p.errorf(opTok, "right side of =~ must be a string literal")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, p.errorf(opTok, "invalid regular expression %q: %v", pattern, err)
		}
		cmp.re = re
	}
	return cmp, nil
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokCurrent:
		steps, err := p.parseSegments()
		if err != nil {
			return nil, err
		}
		return pathOperand{relative: true, steps: steps}, nil
	case tokRoot:
		steps, err := p.parseSegments()
		if err != nil {
			return nil, err
		}
		return pathOperand{steps: steps}, nil
	case tokString:
		return literal{value: t.text}, nil
	case tokNumber:
		if n, err := strconv.ParseInt(t.text, 10, 64); err == nil {
			return literal{value: float64(n), isInt: true}, nil
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid number %s", t)
		}
		return literal{value: f}, nil
	case tokIdent:
		switch t.text {
		case "true":
			return literal{value: true}, nil
		case "false":
			return literal{value: false}, nil
		case "null", "None":
			return literal{value: nil}, nil
		}
		return nil, p.errorf(t, "unexpected identifier %s, relative paths must start with '@'", t)
	default:
		return nil, p.errorf(t, "expected operand, got %s", t)
	}
}
