package device

import (
	"fmt"
	"math"

	"github.com/edp1096/circuitsim/internal/consts"
	"github.com/edp1096/circuitsim/pkg/circuit"
)

type TransistorParams struct {
	Beta float64
	PNP  bool
}

const (
	bjtLeakage      = 1e-13
	bjtReverseAlpha = 0.5
)

// BJT is an Ebers-Moll transistor with posts (base, collector, emitter).
type BJT struct {
	BaseDevice
	Params TransistorParams

	pnp     float64
	fgain   float64
	vcrit   float64
	lastvbc float64
	lastvbe float64

	ib, ic, ie float64 // flowing into the transistor
}

var _ circuit.Element = (*BJT)(nil)

func NewBJT(name string, p TransistorParams) (*BJT, error) {
	if p.Beta == 0 {
		p.Beta = 100
	}
	if !(p.Beta > 0) {
		return nil, fmt.Errorf("transistor %s: beta must be positive, got %g", name, p.Beta)
	}
	q := &BJT{BaseDevice: newBaseDevice(name, KindBJT, 3), Params: p}
	q.setup()
	return q, nil
}

func (q *BJT) setup() {
	q.pnp = 1
	if q.Params.PNP {
		q.pnp = -1
	}
	q.fgain = q.Params.Beta / (q.Params.Beta + 1)
	q.vcrit = consts.VT * math.Log(consts.VT/(math.Sqrt2*bjtLeakage))
}

func (q *BJT) NonLinear() bool { return true }

func (q *BJT) Reset() {
	q.BaseDevice.Reset()
	q.setup()
	q.lastvbc, q.lastvbe = 0, 0
	q.ib, q.ic, q.ie = 0, 0, 0
}

func (q *BJT) Stamp(c *circuit.Circuit) {
	q.setup()
	for _, n := range q.Nodes[:3] {
		c.StampNonLinear(n)
	}
}

func (q *BJT) limitStep(vnew, vold float64) (float64, bool) {
	if vnew > q.vcrit && math.Abs(vnew-vold) > 2*consts.VT {
		if vold > 0 {
			arg := 1 + (vnew-vold)/consts.VT
			if arg > 0 {
				return vold + consts.VT*math.Log(arg), true
			}
			return q.vcrit, true
		}
		return consts.VT * math.Log(vnew/consts.VT), true
	}
	return vnew, false
}

func (q *BJT) DoStep(c *circuit.Circuit) {
	vbc := finite(q.Volts[0] - q.Volts[1])
	vbe := finite(q.Volts[0] - q.Volts[2])
	if math.Abs(vbc-q.lastvbc) > consts.JunctionVoltageTol || math.Abs(vbe-q.lastvbe) > consts.JunctionVoltageTol {
		c.Converged = false
	}

	gmin := 0.0
	if c.SubIterations > consts.GminStepStart {
		gmin = math.Exp(-9 * math.Ln10 * (1 - float64(c.SubIterations)/consts.TransistorGminStepSpan))
		if gmin > consts.GminStepMax {
			gmin = consts.GminStepMax
		}
	}

	pnp := q.pnp
	v, limited := q.limitStep(pnp*vbc, pnp*q.lastvbc)
	vbc = pnp * v
	if limited {
		c.Converged = false
	}
	v, limited = q.limitStep(pnp*vbe, pnp*q.lastvbe)
	vbe = pnp * v
	if limited {
		c.Converged = false
	}
	q.lastvbc, q.lastvbe = vbc, vbe

	vdcoef := 1 / consts.VT
	pcoef := vdcoef * pnp
	expbc := math.Exp(vbc * pcoef)
	expbe := math.Exp(vbe * pcoef)
	rgain := bjtReverseAlpha
	L := bjtLeakage

	q.ie = pnp * L * (-(expbe-1)/q.fgain + (expbc - 1))
	q.ic = pnp * L * ((expbe - 1) - (expbc-1)/rgain)
	q.ib = -(q.ie + q.ic)

	gee := -L * vdcoef * expbe / q.fgain
	gec := L * vdcoef * expbc
	gce := -gee * q.fgain
	gcc := -gec / rgain

	b, col, e := q.Nodes[0], q.Nodes[1], q.Nodes[2]

	c.StampMatrix(b, b, -gee-gec-gce-gcc+2*gmin)
	c.StampMatrix(b, col, gec+gcc-gmin)
	c.StampMatrix(b, e, gee+gce-gmin)
	c.StampMatrix(col, b, gce+gcc-gmin)
	c.StampMatrix(col, col, -gcc+gmin)
	c.StampMatrix(col, e, -gce)
	c.StampMatrix(e, b, gee+gec-gmin)
	c.StampMatrix(e, col, -gec)
	c.StampMatrix(e, e, -gee+gmin)

	c.StampRightSide(b, -q.ib-(gec+gcc)*vbc-(gee+gce)*vbe)
	c.StampRightSide(col, -q.ic+gce*vbe+gcc*vbc)
	c.StampRightSide(e, -q.ie+gee*vbe+gec*vbc)
}

func (q *BJT) Ib() float64 { return q.ib }
func (q *BJT) Ic() float64 { return q.ic }
func (q *BJT) Ie() float64 { return q.ie }

func (q *BJT) GetCurrentIntoNode(n int) float64 {
	switch n {
	case 0:
		return -q.ib
	case 1:
		return -q.ic
	default:
		return -q.ie
	}
}
