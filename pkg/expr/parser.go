package expr

import (
	"fmt"
	"math"
	"slices"
)

// Parse compiles a formula. Variables are the single letters a..i and t
// (time); pi is the only named constant.
func Parse(src string) (*Expression, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, maxVar: -1}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
	}

	return &Expression{
		src:     src,
		root:    root,
		maxVar:  p.maxVar,
		useTime: p.useTime,
	}, nil
}

// MustParse is Parse for formulas known to be valid at compile time.
func MustParse(src string) *Expression {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	toks    []token
	pos     int
	maxVar  int
	useTime bool
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) accept(op string) bool {
	if tok := p.peek(); tok.kind == tokOp && tok.text == op {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(op string) error {
	if !p.accept(op) {
		tok := p.peek()
		return &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("expected %q", op)}
	}
	return nil
}

// expr := or ('?' expr ':' expr)?
func (p *parser) parseExpr() (node, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return cond, nil
	}
	yes, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	no, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &condNode{cond: cond, yes: yes, no: no}, nil
}

// binary operator levels, loosest first
var precedence = [][]string{
	{"||"},
	{"&&"},
	{"==", "!=", "<", ">", "<=", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseBinary(level int) (node, error) {
	if level == len(precedence) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || !slices.Contains(precedence[level], tok.text) {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tok.text, l: left, r: right}
	}
}

// unary := ('-' | '!' | '+') unary | power
func (p *parser) parseUnary() (node, error) {
	if p.accept("-") {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if n, ok := x.(numNode); ok {
			return -n, nil
		}
		return &unaryNode{op: '-', x: x}, nil
	}
	if p.accept("+") {
		return p.parseUnary()
	}
	if p.accept("!") {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: '!', x: x}, nil
	}
	return p.parsePower()
}

// power := term ('^' unary)?   right associative through unary
func (p *parser) parsePower() (node, error) {
	base, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if !p.accept("^") {
		return base, nil
	}
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: "^", l: base, r: exp}, nil
}

func (p *parser) parseTerm() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return numNode(tok.num), nil
	case tokIdent:
		if p.accept("(") {
			return p.parseCall(tok)
		}
		return p.resolveName(tok)
	case tokOp:
		if tok.text == "(" {
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	case tokEOF:
		return nil, &ParseError{Pos: tok.pos, Msg: "unexpected end of expression"}
	}
	return nil, &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
}

func (p *parser) resolveName(tok token) (node, error) {
	switch {
	case tok.text == "t":
		p.useTime = true
		return timeNode{}, nil
	case tok.text == "pi":
		return numNode(math.Pi), nil
	case len(tok.text) == 1 && tok.text[0] >= 'a' && tok.text[0] < 'a'+NumVars:
		idx := int(tok.text[0] - 'a')
		if idx > p.maxVar {
			p.maxVar = idx
		}
		return varNode(idx), nil
	}
	return nil, &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("unknown variable %q", tok.text)}
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, &ParseError{Pos: name.pos, Msg: fmt.Sprintf("unknown function %q", name.text)}
	}

	var args []node
	if !p.accept(")") {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.accept(")") {
				break
			}
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}

	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, &ParseError{Pos: name.pos, Msg: fmt.Sprintf("%s: wrong number of arguments (%d)", fn.name, len(args))}
	}
	if fn.name == "pwl" && len(args)%2 == 0 {
		return nil, &ParseError{Pos: name.pos, Msg: "pwl: breakpoints must come in x,y pairs"}
	}
	return &callNode{fn: fn, args: args}, nil
}
