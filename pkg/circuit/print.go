package circuit

import (
	"fmt"
	"io"
)

// PrintSystem writes the stamped linear system, one equation per row. Rows
// rebuilt every sub-iteration are tagged [nl], rows whose right side changes
// every step are tagged [rhs].
func (c *Circuit) PrintSystem(w io.Writer) error {
	if c.needsAnalyze || c.solver == nil {
		if err := c.analyze(); err != nil {
			return err
		}
	}
	if !c.stamped {
		c.stamp()
	}

	fmt.Fprintf(w, "Circuit Equations (%dx%d):\n", c.size, c.size)
	fmt.Fprintln(w, "Node equations 1..n, followed by voltage source equations")
	for i := 0; i < c.size; i++ {
		label := fmt.Sprintf("n%d", i+1)
		if i+1 >= c.nodeCount {
			label = fmt.Sprintf("vs%d", i+1-c.nodeCount)
		}
		fmt.Fprintf(w, "%-5s:", label)
		for j, v := range c.origMatrix[i] {
			if v != 0 {
				fmt.Fprintf(w, "  %+g*x%d", v, j+1)
			}
		}
		fmt.Fprintf(w, " = %g", c.origRightSide[i])
		if c.nonLinearRows[i] {
			fmt.Fprint(w, " [nl]")
		}
		if c.rightSideChanges[i] {
			fmt.Fprint(w, " [rhs]")
		}
		fmt.Fprintln(w)
	}
	return nil
}
