package device

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/edp1096/circuitsim/internal/consts"
)

// ModelParam is a parsed .model card.
type ModelParam struct {
	Type   string
	Name   string
	Params map[string]float64
}

type DiodeParams struct {
	SaturationCurrent   float64 // Is (A)
	SeriesResistance    float64 // Rs (ohm), 0 for none
	EmissionCoefficient float64 // N
	BreakdownVoltage    float64 // Vz (V), 0 disables the zener branch
}

// DiodeModel is shared by every diode that names it. Elements read the
// derived constants on each use, so an update takes effect on the next step.
type DiodeModel struct {
	Name string
	DiodeParams

	vscale  float64 // N*Vt
	vdcoef  float64 // 1/vscale
	vzcoef  float64 // 1/Vt
	zoffset float64 // shifts the breakdown branch so I(-Vz) = ZenerCurrent
	vcrit   float64
	vzcrit  float64
}

var builtinDiodeModels = map[string]DiodeParams{
	"default":       {SaturationCurrent: 1.7143528192808883e-7, EmissionCoefficient: 2},
	"default-zener": {SaturationCurrent: 1.7143528192808883e-7, EmissionCoefficient: 2, BreakdownVoltage: 5.6},
	"1N4148":        {SaturationCurrent: 4.352e-9, SeriesResistance: 0.6458, EmissionCoefficient: 1.906},
	"1N4004":        {SaturationCurrent: 18.8e-9, SeriesResistance: 28.6e-3, EmissionCoefficient: 2},
	"1N5711":        {SaturationCurrent: 315e-9, SeriesResistance: 2.8, EmissionCoefficient: 2.03},
	"1N4733":        {SaturationCurrent: 1.2e-11, SeriesResistance: 0.5, EmissionCoefficient: 1.5, BreakdownVoltage: 5.1},
}

func newDiodeModel(name string, p DiodeParams) (*DiodeModel, error) {
	m := &DiodeModel{Name: name}
	if err := m.set(p); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DiodeModel) set(p DiodeParams) error {
	if p.SaturationCurrent <= 0 {
		return fmt.Errorf("diode model %s: saturation current must be positive", m.Name)
	}
	if p.SaturationCurrent >= -consts.ZenerCurrent {
		return fmt.Errorf("diode model %s: saturation current too large", m.Name)
	}
	if p.EmissionCoefficient <= 0 {
		p.EmissionCoefficient = 1
	}
	if p.SeriesResistance < 0 || p.BreakdownVoltage < 0 {
		return fmt.Errorf("diode model %s: negative parameter", m.Name)
	}
	m.DiodeParams = p

	m.vscale = p.EmissionCoefficient * consts.VT
	m.vdcoef = 1 / m.vscale
	m.vzcoef = 1 / consts.VT
	m.vcrit = m.vscale * math.Log(m.vscale/(math.Sqrt2*p.SaturationCurrent))
	m.vzcrit = consts.VT * math.Log(consts.VT/(math.Sqrt2*p.SaturationCurrent))
	m.zoffset = 0
	if p.BreakdownVoltage > 0 {
		m.zoffset = p.BreakdownVoltage - math.Log(-(1+consts.ZenerCurrent/p.SaturationCurrent))/m.vzcoef
	}
	return nil
}

// Current is the junction current at forward voltage v.
func (m *DiodeModel) Current(v float64) float64 {
	is := m.SaturationCurrent
	if v >= 0 || m.BreakdownVoltage == 0 {
		return is * (math.Exp(v*m.vdcoef) - 1)
	}
	return is * (math.Exp(v*m.vdcoef) - math.Exp((-v-m.zoffset)*m.vzcoef) - 1)
}

// SimulationContext holds the named diode models of one simulation. Built-in
// models are created the first time they are asked for.
type SimulationContext struct {
	diodeModels map[string]*DiodeModel
}

func NewSimulationContext() *SimulationContext {
	return &SimulationContext{diodeModels: make(map[string]*DiodeModel)}
}

func modelKey(name string) string { return strings.ToLower(name) }

// DiodeModel looks a model up by name, case-insensitively.
func (s *SimulationContext) DiodeModel(name string) (*DiodeModel, error) {
	if name == "" {
		name = "default"
	}
	key := modelKey(name)
	if m, ok := s.diodeModels[key]; ok {
		return m, nil
	}
	for builtin, p := range builtinDiodeModels {
		if modelKey(builtin) == key {
			m, err := newDiodeModel(builtin, p)
			if err != nil {
				return nil, err
			}
			s.diodeModels[key] = m
			return m, nil
		}
	}
	return nil, fmt.Errorf("unknown diode model %q", name)
}

// DefineDiodeModel creates the model, or replaces the parameters of an
// existing one in place. Circuits using it must be invalidated when Rs
// toggles between zero and non-zero, since that changes their node count.
func (s *SimulationContext) DefineDiodeModel(name string, p DiodeParams) (*DiodeModel, error) {
	key := modelKey(name)
	if m, ok := s.diodeModels[key]; ok {
		if err := m.set(p); err != nil {
			return nil, err
		}
		return m, nil
	}
	m, err := newDiodeModel(name, p)
	if err != nil {
		return nil, err
	}
	s.diodeModels[key] = m
	return m, nil
}

// UpdateDiodeModel changes the parameters of a model already in use.
func (s *SimulationContext) UpdateDiodeModel(name string, p DiodeParams) error {
	m, err := s.DiodeModel(name)
	if err != nil {
		return err
	}
	return m.set(p)
}

// DiodeModelNames lists the built-in and defined model names.
func (s *SimulationContext) DiodeModelNames() []string {
	names := make(map[string]string)
	for n := range builtinDiodeModels {
		names[modelKey(n)] = n
	}
	for k, m := range s.diodeModels {
		names[k] = m.Name
	}
	return slices.Sorted(maps.Values(names))
}

// DiodeParamsFromModel reads is/rs/n/bv from a .model card over the
// defaults of base.
func DiodeParamsFromModel(mp ModelParam, base DiodeParams) DiodeParams {
	p := base
	for k, v := range mp.Params {
		switch strings.ToLower(k) {
		case "is":
			p.SaturationCurrent = v
		case "rs":
			p.SeriesResistance = v
		case "n":
			p.EmissionCoefficient = v
		case "bv", "vz":
			p.BreakdownVoltage = v
		}
	}
	return p
}
