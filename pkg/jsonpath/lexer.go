package jsonpath

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokRoot
	tokCurrent
	tokDot
	tokDotDot
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokStar
	tokComma
	tokColon
	tokQuestion
	tokIdent
	tokString
	tokNumber
	tokCompare
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", t.text)
}

// lex 将表达式切分为 token，字符串字面量在此阶段完成反转义。
func lex(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '$':
			tokens = append(tokens, token{kind: tokRoot, text: "$", pos: i})
			i++
		case c == '@':
			tokens = append(tokens, token{kind: tokCurrent, text: "@", pos: i})
			i++
		case c == '.':
			if i+1 < len(expr) && expr[i+1] == '.' {
				tokens = append(tokens, token{kind: tokDotDot, text: "..", pos: i})
				i += 2
				continue
			}
			tokens = append(tokens, token{kind: tokDot, text: ".", pos: i})
			i++
		case c == '[':
			tokens = append(tokens, token{kind: tokLBracket, text: "[", pos: i})
			i++
		case c == ']':
			tokens = append(tokens, token{kind: tokRBracket, text: "]", pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == '*':
			tokens = append(tokens, token{kind: tokStar, text: "*", pos: i})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == ':':
			tokens = append(tokens, token{kind: tokColon, text: ":", pos: i})
			i++
		case c == '?':
			tokens = append(tokens, token{kind: tokQuestion, text: "?", pos: i})
			i++
		case c == '\'' || c == '"':
			s, next, err := lexString(expr, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: s, pos: i})
			i = next
		case isDigit(c) || (c == '-' && i+1 < len(expr) && isDigit(expr[i+1])):
			next := lexNumber(expr, i)
			tokens = append(tokens, token{kind: tokNumber, text: expr[i:next], pos: i})
			i = next
		case isIdentStart(c):
			start := i
			for i < len(expr) && isIdentPart(expr[i]) {
				i++
			}
			word := expr[start:i]
			switch word {
			case "and":
				tokens = append(tokens, token{kind: tokAnd, text: word, pos: start})
			case "or":
				tokens = append(tokens, token{kind: tokOr, text: word, pos: start})
			case "not":
				tokens = append(tokens, token{kind: tokNot, text: word, pos: start})
			default:
				tokens = append(tokens, token{kind: tokIdent, text: word, pos: start})
			}
		default:
			op, ok := lexOperator(expr, i)
			if !ok {
				return nil, &SyntaxError{Expr: expr, Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			tokens = append(tokens, op)
			i += len(op.text)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(expr)})
	return tokens, nil
}

func lexOperator(expr string, i int) (token, bool) {
	two := ""
	if i+1 < len(expr) {
		two = expr[i : i+2]
	}
	switch two {
	case "==", "!=", "<=", ">=", "=~":
		return token{kind: tokCompare, text: two, pos: i}, true
	case "&&":
		return token{kind: tokAnd, text: two, pos: i}, true
	case "||":
		return token{kind: tokOr, text: two, pos: i}, true
	}
	switch expr[i] {
	case '=':
		return token{kind: tokCompare, text: "==", pos: i}, true
	case '<', '>':
		return token{kind: tokCompare, text: expr[i : i+1], pos: i}, true
	case '!':
		return token{kind: tokNot, text: "!", pos: i}, true
	case '&':
		return token{kind: tokAnd, text: "&", pos: i}, true
	case '|':
		return token{kind: tokOr, text: "|", pos: i}, true
	}
	return token{}, false
}

func lexString(expr string, start int) (string, int, error) {
	quote := expr[start]
	var sb strings.Builder
	i := start + 1
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == '\\' && i+1 < len(expr):
			i++
			switch expr[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				// \' \" \\ 以及正则中的 \d 等保持原样语义
				if expr[i] != quote && expr[i] != '\\' {
					sb.WriteByte('\\')
				}
				sb.WriteByte(expr[i])
			}
			i++
		case c == quote:
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", 0, &SyntaxError{Expr: expr, Pos: start, Msg: "unterminated string literal"}
}

func lexNumber(expr string, i int) int {
	if expr[i] == '-' {
		i++
	}
	for i < len(expr) && isDigit(expr[i]) {
		i++
	}
	if i+1 < len(expr) && expr[i] == '.' && isDigit(expr[i+1]) {
		i++
		for i < len(expr) && isDigit(expr[i]) {
			i++
		}
	}
	if i < len(expr) && (expr[i] == 'e' || expr[i] == 'E') {
		j := i + 1
		if j < len(expr) && (expr[j] == '+' || expr[j] == '-') {
			j++
		}
		if j < len(expr) && isDigit(expr[j]) {
			i = j
			for i < len(expr) && isDigit(expr[i]) {
				i++
			}
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '-'
}
