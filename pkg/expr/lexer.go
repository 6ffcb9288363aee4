package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokTrue
	tokFalse
	tokLParen
	tokRParen
	tokNot
	tokAnd
	tokOr
	tokEq
	tokNeq
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokTrue:
		return "true"
	case tokFalse:
		return "false"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokNot:
		return "'!'"
	case tokAnd:
		return "'&&'"
	case tokOr:
		return "'||'"
	case tokEq:
		return "'=='"
	case tokNeq:
		return "'!='"
	}
	return "unknown"
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isIdentStart(r rune) bool {
	return r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r))
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || r == '-' || (r >= '0' && r <= '9')
}

func lex(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case r == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case r == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokNeq, "!=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokNot, "!", i})
				i++
			}
		case r == '=':
			if i+1 >= len(runes) || runes[i+1] != '=' {
				return nil, fmt.Errorf("position %d: expected '=='", i)
			}
			tokens = append(tokens, token{tokEq, "==", i})
			i += 2
		case r == '&':
			if i+1 >= len(runes) || runes[i+1] != '&' {
				return nil, fmt.Errorf("position %d: expected '&&'", i)
			}
			tokens = append(tokens, token{tokAnd, "&&", i})
			i += 2
		case r == '|':
			if i+1 >= len(runes) || runes[i+1] != '|' {
				return nil, fmt.Errorf("position %d: expected '||'", i)
			}
			tokens = append(tokens, token{tokOr, "||", i})
			i += 2
		case r == '"' || r == '\'':
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					sb.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if c == r {
					closed = true
					i++
					break
				}
				sb.WriteRune(c)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("position %d: unterminated string", start)
			}
			tokens = append(tokens, token{tokString, sb.String(), start})
		case isIdentStart(r):
			start := i
			for i < len(runes) && isIdentPart(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			switch word {
			case "true":
				tokens = append(tokens, token{tokTrue, word, start})
			case "false":
				tokens = append(tokens, token{tokFalse, word, start})
			default:
				tokens = append(tokens, token{tokIdent, word, start})
			}
		default:
			return nil, fmt.Errorf("position %d: unexpected character %q", i, r)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(runes)})
	return tokens, nil
}
