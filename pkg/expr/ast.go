package expr

import (
	"math"
)

// NumVars is the number of named input variables, a through i.
const NumVars = 9

// State carries everything an expression may read.
type State struct {
	Values [NumVars]float64
	T      float64
}

type node interface {
	eval(s *State) float64
}

type numNode float64

func (n numNode) eval(*State) float64 { return float64(n) }

type varNode int

func (n varNode) eval(s *State) float64 { return s.Values[n] }

type timeNode struct{}

func (timeNode) eval(s *State) float64 { return s.T }

type unaryNode struct {
	op byte // '-' or '!'
	x  node
}

func (n *unaryNode) eval(s *State) float64 {
	v := n.x.eval(s)
	if n.op == '!' {
		return boolValue(v == 0)
	}
	return -v
}

type binaryNode struct {
	op   string
	l, r node
}

func (n *binaryNode) eval(s *State) float64 {
	a := n.l.eval(s)
	// short circuit
	switch n.op {
	case "&&":
		if a == 0 {
			return 0
		}
		return boolValue(n.r.eval(s) != 0)
	case "||":
		if a != 0 {
			return 1
		}
		return boolValue(n.r.eval(s) != 0)
	}

	b := n.r.eval(s)
	switch n.op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	case "%":
		return math.Mod(a, b)
	case "^":
		return math.Pow(a, b)
	case "<":
		return boolValue(a < b)
	case ">":
		return boolValue(a > b)
	case "<=":
		return boolValue(a <= b)
	case ">=":
		return boolValue(a >= b)
	case "==":
		return boolValue(a == b)
	case "!=":
		return boolValue(a != b)
	}
	return math.NaN()
}

type condNode struct {
	cond, yes, no node
}

func (n *condNode) eval(s *State) float64 {
	if n.cond.eval(s) != 0 {
		return n.yes.eval(s)
	}
	return n.no.eval(s)
}

type callNode struct {
	fn   *function
	args []node
}

func (n *callNode) eval(s *State) float64 {
	var buf [8]float64
	vals := buf[:0]
	for _, a := range n.args {
		vals = append(vals, a.eval(s))
	}
	return n.fn.call(vals)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Expression is a parsed formula. It is immutable and safe to share.
type Expression struct {
	src     string
	root    node
	maxVar  int
	useTime bool
}

func (e *Expression) Eval(s *State) float64 {
	return e.root.eval(s)
}

func (e *Expression) String() string { return e.src }

// Inputs returns one more than the highest variable index referenced.
func (e *Expression) Inputs() int { return e.maxVar + 1 }

func (e *Expression) UsesTime() bool { return e.useTime }
