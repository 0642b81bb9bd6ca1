package expr

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp // operators and punctuation
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expr: %s at offset %d", e.Msg, e.Pos)
}

var twoCharOps = []string{"<=", ">=", "==", "!=", "&&", "||"}

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			// e or E begins an exponent only if digits follow, after an optional
			// sign. Otherwise the number ends before the letter.
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					i = j
					for i < len(src) && isDigit(src[i]) {
						i++
					}
				}
			}
			v, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, &ParseError{Pos: start, Msg: fmt.Sprintf("bad number %q", src[start:i])}
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], num: v, pos: start})
		case isLetter(c):
			start := i
			for i < len(src) && (isLetter(src[i]) || isDigit(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: strings.ToLower(src[start:i]), pos: start})
		default:
			if i+1 < len(src) {
				two := src[i : i+2]
				matched := false
				for _, op := range twoCharOps {
					if two == op {
						toks = append(toks, token{kind: tokOp, text: op, pos: i})
						i += 2
						matched = true
						break
					}
				}
				if matched {
					continue
				}
			}
			if !strings.ContainsRune("+-*/%^()<>,?:!", rune(c)) {
				return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' }
