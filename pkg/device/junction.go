package device

import (
	"math"

	"github.com/edp1096/circuitsim/internal/consts"
	"github.com/edp1096/circuitsim/pkg/circuit"
)

// Junction is the pn-junction shared by Diode and the MOSFET body diodes.
type Junction struct {
	Model *DiodeModel

	lastVoltDiff float64
}

func (j *Junction) Reset() { j.lastVoltDiff = 0 }

func (j *Junction) Stamp(c *circuit.Circuit, anode, cathode int) {
	c.StampNonLinear(anode)
	c.StampNonLinear(cathode)
}

// LimitStep damps the Newton update of the junction voltage so the
// exponential cannot overflow. It reports whether vnew was changed.
func (j *Junction) LimitStep(vnew, vold float64) (float64, bool) {
	m := j.Model
	if vnew > m.vcrit && math.Abs(vnew-vold) > 2*m.vscale {
		if vold > 0 {
			arg := 1 + (vnew-vold)/m.vscale
			if arg > 0 {
				return vold + m.vscale*math.Log(arg), true
			}
			return m.vcrit, true
		}
		return m.vscale * math.Log(vnew/m.vscale), true
	}

	if vnew < 0 && m.zoffset != 0 {
		// same rule on the breakdown branch, mirrored around -zoffset
		vn := -vnew - m.zoffset
		vo := -vold - m.zoffset
		if vn > m.vzcrit && math.Abs(vn-vo) > 2*consts.VT {
			if vo > 0 {
				arg := 1 + (vn-vo)/consts.VT
				if arg > 0 {
					vn = vo + consts.VT*math.Log(arg)
				} else {
					vn = m.vzcrit
				}
			} else {
				vn = consts.VT * math.Log(vn/consts.VT)
			}
			return -(vn + m.zoffset), true
		}
	}
	return vnew, false
}

// Gmin is the shunt conductance for the given sub-iteration. Past
// GminStepStart it grows geometrically so a stuck solve can find a path.
func (j *Junction) Gmin(subIterations int, span float64) float64 {
	gmin := math.Max(j.Model.SaturationCurrent*consts.JunctionGminScale, consts.JunctionGminFloor)
	if subIterations > consts.GminStepStart {
		gmin = math.Exp(-9 * math.Ln10 * (1 - float64(subIterations)/span))
		if gmin > consts.GminStepMax {
			gmin = consts.GminStepMax
		}
	}
	return gmin
}

// Linearize returns the companion conductance and current so that
// geq*v + nc equals the junction current at v.
func (j *Junction) Linearize(v, gmin float64) (geq, nc float64) {
	m := j.Model
	is := m.SaturationCurrent
	if v >= 0 || m.BreakdownVoltage == 0 {
		eval := math.Exp(v * m.vdcoef)
		geq = m.vdcoef*is*eval + gmin
		nc = (eval-1)*is - geq*v
		return geq, nc
	}
	ef := math.Exp(v * m.vdcoef)
	ez := math.Exp((-v - m.zoffset) * m.vzcoef)
	geq = is*(m.vdcoef*ef+m.vzcoef*ez) + gmin
	nc = is*(ef-ez-1) - geq*v
	return geq, nc
}

func (j *Junction) DoStep(c *circuit.Circuit, anode, cathode int, voltdiff float64) {
	if math.IsNaN(voltdiff) {
		voltdiff = 0
	}
	if math.Abs(voltdiff-j.lastVoltDiff) > consts.JunctionVoltageTol {
		c.Converged = false
	}
	voltdiff, limited := j.LimitStep(voltdiff, j.lastVoltDiff)
	if limited {
		c.Converged = false
	}
	j.lastVoltDiff = voltdiff

	geq, nc := j.Linearize(voltdiff, j.Gmin(c.SubIterations, consts.DiodeGminStepSpan))
	c.StampConductance(anode, cathode, geq)
	c.StampCurrentSource(anode, cathode, nc)
}

func (j *Junction) Current(voltdiff float64) float64 {
	return j.Model.Current(voltdiff)
}
