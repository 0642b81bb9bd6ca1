package expr

import (
	"math"

	"golang.org/x/exp/constraints"
)

type function struct {
	name    string
	minArgs int
	maxArgs int // -1 for variadic
	call    func(a []float64) float64
}

var functions = map[string]*function{}

func register(name string, minArgs, maxArgs int, call func(a []float64) float64) {
	functions[name] = &function{name: name, minArgs: minArgs, maxArgs: maxArgs, call: call}
}

func unary(f func(float64) float64) func(a []float64) float64 {
	return func(a []float64) float64 { return f(a[0]) }
}

func init() {
	register("sin", 1, 1, unary(math.Sin))
	register("cos", 1, 1, unary(math.Cos))
	register("tan", 1, 1, unary(math.Tan))
	register("asin", 1, 1, unary(math.Asin))
	register("acos", 1, 1, unary(math.Acos))
	register("atan", 1, 1, unary(math.Atan))
	register("sinh", 1, 1, unary(math.Sinh))
	register("cosh", 1, 1, unary(math.Cosh))
	register("tanh", 1, 1, unary(math.Tanh))
	register("abs", 1, 1, unary(math.Abs))
	register("exp", 1, 1, unary(math.Exp))
	register("log", 1, 1, unary(math.Log))
	register("sqrt", 1, 1, unary(math.Sqrt))
	register("floor", 1, 1, unary(math.Floor))
	register("ceil", 1, 1, unary(math.Ceil))
	register("pow", 2, 2, func(a []float64) float64 { return math.Pow(a[0], a[1]) })
	register("mod", 2, 2, func(a []float64) float64 { return math.Mod(a[0], a[1]) })
	register("min", 2, -1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m
	})
	register("max", 2, -1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m
	})
	register("clamp", 3, 3, func(a []float64) float64 { return Clamp(a[0], a[1], a[2]) })
	register("step", 1, 2, func(a []float64) float64 {
		x := a[0]
		if len(a) == 2 {
			x -= a[1]
		}
		return boolValue(x >= 0)
	})
	register("select", 3, 3, func(a []float64) float64 {
		if a[0] > 0 {
			return a[1]
		}
		return a[2]
	})
	register("triangle", 1, 1, func(a []float64) float64 {
		x := posMod(a[0], 2*math.Pi) / math.Pi
		if x < 1 {
			return -1 + 2*x
		}
		return 3 - 2*x
	})
	register("sawtooth", 1, 1, func(a []float64) float64 {
		return posMod(a[0], 2*math.Pi)/math.Pi - 1
	})
	register("pwl", 3, -1, pwl)
}

// Clamp limits x to [lo, hi].
func Clamp[T constraints.Float](x, lo, hi T) T {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func posMod[T constraints.Float](x, m T) T {
	r := T(math.Mod(float64(x), float64(m)))
	if r < 0 {
		r += m
	}
	return r
}

// pwl(x, x0,y0, x1,y1, ...) interpolates linearly between breakpoints and
// holds the end values outside them.
func pwl(a []float64) float64 {
	x, pts := a[0], a[1:]
	if x < pts[0] {
		return pts[1]
	}
	for i := 2; i+1 < len(pts); i += 2 {
		x0, y0, x1, y1 := pts[i-2], pts[i-1], pts[i], pts[i+1]
		if x < x1 {
			if x1 == x0 {
				return y1
			}
			return y0 + (x-x0)*(y1-y0)/(x1-x0)
		}
	}
	return pts[len(pts)-1]
}
