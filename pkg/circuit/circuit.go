package circuit

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/edp1096/circuitsim/pkg/matrix"
)

type nodeLink struct {
	elm  Element
	post int
}

// Circuit owns the MNA system. Unified index 0 is ground, 1..nodeCount-1 are
// nodes (external then internal), and nodeCount+k is voltage source k. The
// matrix row for unified index i is i-1.
//
// A Circuit is not safe for concurrent use.
type Circuit struct {
	Time           float64
	TimeStep       float64
	DcAnalysisFlag bool
	Converged      bool
	SubIterations  int
	Factorizations int

	cfg    Config
	logger *slog.Logger

	elements []Element
	posts    [][]int // external node of each post, as wired by the caller

	nodeCount int // including ground
	vsCount   int
	size      int

	origMatrix    [][]float64
	origRightSide []float64
	matrix        [][]float64
	rightSide     []float64

	nodeVoltages []float64
	links        [][]nodeLink // elements attached to each node
	vsOwners     []Element

	nonLinearRows    []bool
	rightSideChanges []bool
	circuitNonLinear bool

	solver matrix.Solver

	needsAnalyze    bool
	stamped         bool
	stampedTimeStep float64
	stampedDC       bool
	stamping        bool // true while elements run Stamp
	factored        bool // cached factorization matches matrix
	solved          bool // node voltages hold the solution of the factored system
}

func New(cfg Config) *Circuit {
	cfg = cfg.withDefaults()
	return &Circuit{
		cfg:       cfg,
		logger:    cfg.Logger,
		TimeStep:  5e-6,
		Converged: true,
	}
}

func (c *Circuit) Config() Config { return c.cfg }

func (c *Circuit) Logger() *slog.Logger { return c.logger }

// AddElement wires e's posts to the given external nodes (0 is ground).
func (c *Circuit) AddElement(e Element, nodes ...int) error {
	if len(nodes) != e.PostCount() {
		return fmt.Errorf("element %s: expected %d nodes, got %d", e.GetName(), e.PostCount(), len(nodes))
	}
	for _, n := range nodes {
		if n < 0 {
			return fmt.Errorf("element %s: negative node %d", e.GetName(), n)
		}
	}
	for _, other := range c.elements {
		if other == e {
			return fmt.Errorf("element %s: already in circuit", e.GetName())
		}
	}

	c.elements = append(c.elements, e)
	c.posts = append(c.posts, append([]int(nil), nodes...))
	c.needsAnalyze = true
	return nil
}

func (c *Circuit) RemoveElement(e Element) bool {
	for i, other := range c.elements {
		if other == e {
			c.elements = append(c.elements[:i], c.elements[i+1:]...)
			c.posts = append(c.posts[:i], c.posts[i+1:]...)
			c.needsAnalyze = true
			return true
		}
	}
	return false
}

// Invalidate forces re-analysis and a re-stamp before the next iteration.
// Call it after changing an element parameter or a shared model.
func (c *Circuit) Invalidate() {
	c.needsAnalyze = true
	c.stamped = false
}

// Restamp rebuilds the fixed contributions before the next iteration. Call
// it after changing a value an element writes in Stamp.
func (c *Circuit) Restamp() { c.stamped = false }

func (c *Circuit) Elements() []Element { return c.elements }

func (c *Circuit) FindElement(name string) Element {
	for _, e := range c.elements {
		if strings.EqualFold(e.GetName(), name) {
			return e
		}
	}
	return nil
}

func (c *Circuit) NodeCount() int { return c.nodeCount }

func (c *Circuit) VoltageSourceCount() int { return c.vsCount }

func (c *Circuit) MatrixSize() int { return c.size }

// NonLinear reports whether the last stamp needs a refactor every sub-iteration.
func (c *Circuit) NonLinear() bool { return c.circuitNonLinear }

// VoltageSourceNode is the unified index of voltage source vs, usable as a
// row or column in StampMatrix and StampRightSide.
func (c *Circuit) VoltageSourceNode(vs int) int { return c.nodeCount + vs }

// SolveTime is the time the solution being computed represents.
func (c *Circuit) SolveTime() float64 {
	if c.DcAnalysisFlag {
		return c.Time
	}
	return c.Time + c.TimeStep
}

func (c *Circuit) NodeVoltage(n int) float64 {
	if n <= 0 || n >= len(c.nodeVoltages) {
		return 0
	}
	return c.nodeVoltages[n]
}

// Analyze assigns internal nodes and voltage sources and allocates the
// system. DoIteration calls it when the topology changed.
func (c *Circuit) Analyze() error {
	if err := c.analyze(); err != nil {
		return err
	}
	c.needsAnalyze = false
	return nil
}

func (c *Circuit) analyze() error {
	c.nodeCount = 1
	for _, nodes := range c.posts {
		for _, n := range nodes {
			if n+1 > c.nodeCount {
				c.nodeCount = n + 1
			}
		}
	}

	c.vsCount = 0
	c.vsOwners = c.vsOwners[:0]
	for i, e := range c.elements {
		for p, n := range c.posts[i] {
			e.SetNode(p, n)
		}
		for k := 0; k < e.InternalNodeCount(); k++ {
			e.SetNode(e.PostCount()+k, c.nodeCount)
			c.nodeCount++
		}
		for k := 0; k < e.VoltageSourceCount(); k++ {
			e.SetVoltageSource(k, c.vsCount)
			c.vsOwners = append(c.vsOwners, e)
			c.vsCount++
		}
	}

	c.links = make([][]nodeLink, c.nodeCount)
	for _, e := range c.elements {
		for p := 0; p < e.PostCount()+e.InternalNodeCount(); p++ {
			n := e.GetNode(p)
			c.links[n] = append(c.links[n], nodeLink{elm: e, post: p})
			if n == 0 {
				e.SetNodeVoltage(p, 0)
			}
		}
	}

	c.size = c.nodeCount - 1 + c.vsCount
	c.origMatrix = newSquare(c.size)
	c.matrix = newSquare(c.size)
	c.origRightSide = make([]float64, c.size)
	c.rightSide = make([]float64, c.size)
	c.nonLinearRows = make([]bool, c.size)
	c.rightSideChanges = make([]bool, c.size)
	c.nodeVoltages = make([]float64, c.nodeCount)

	if c.solver != nil {
		c.solver.Destroy()
	}
	solver, err := matrix.New(c.cfg.Backend)
	if err != nil {
		return err
	}
	c.solver = solver

	c.stamped = false
	c.factored = false
	c.needsAnalyze = false
	c.logger.Debug("circuit analyzed", "nodes", c.nodeCount, "voltageSources", c.vsCount, "size", c.size)
	return nil
}

// stamp rebuilds the original matrix from every element's fixed contributions.
func (c *Circuit) stamp() {
	for i := range c.origMatrix {
		clear(c.origMatrix[i])
	}
	clear(c.origRightSide)
	clear(c.nonLinearRows)
	clear(c.rightSideChanges)
	c.circuitNonLinear = false

	c.stamping = true
	for _, e := range c.elements {
		e.Stamp(c)
		if e.NonLinear() {
			c.circuitNonLinear = true
		}
	}
	c.stamping = false

	c.stamped = true
	c.stampedTimeStep = c.TimeStep
	c.stampedDC = c.DcAnalysisFlag
	c.factored = false
	c.solved = false
}

// Reset returns time to zero and clears every element's state.
func (c *Circuit) Reset() {
	c.Time = 0
	c.SubIterations = 0
	c.Converged = true
	clear(c.nodeVoltages)
	c.solved = false
	for _, e := range c.elements {
		e.Reset()
	}
}

func newSquare(n int) [][]float64 {
	data := make([]float64, n*n)
	m := make([][]float64, n)
	for i := range m {
		m[i] = data[i*n : (i+1)*n]
	}
	return m
}
