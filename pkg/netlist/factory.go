package netlist

import (
	"fmt"
	"math"
	"strings"

	"github.com/edp1096/circuitsim/pkg/circuit"
	"github.com/edp1096/circuitsim/pkg/device"
	"github.com/edp1096/circuitsim/pkg/expr"
	"github.com/edp1096/circuitsim/pkg/util"
)

// CreateDevice builds the element for one card. Nodes are returned in the
// element's post order, which differs from card order for Q, M and the
// controlled sources.
func CreateDevice(elem Element, models map[string]device.ModelParam, ctx *device.SimulationContext, method util.IntegrationMethod) (circuit.Element, []string, error) {
	switch elem.Type {
	case "R":
		r, err := device.NewResistor(elem.Name, elem.Value)
		return r, elem.Nodes, err

	case "C":
		cp, err := device.NewCapacitor(elem.Name, elem.Value, method)
		if err != nil {
			return nil, nil, err
		}
		if cp.InitialVoltage, err = floatParam(elem, "ic", 0); err != nil {
			return nil, nil, err
		}
		return cp, elem.Nodes, nil

	case "L":
		l, err := device.NewInductor(elem.Name, elem.Value, method)
		if err != nil {
			return nil, nil, err
		}
		if l.InitialCurrent, err = floatParam(elem, "ic", 0); err != nil {
			return nil, nil, err
		}
		return l, elem.Nodes, nil

	case "I":
		return device.NewCurrentSource(elem.Name, elem.Value), elem.Nodes, nil

	case "V":
		v, err := createVoltageSource(elem)
		return v, elem.Nodes, err

	case "D":
		model, err := ctx.DiodeModel(elem.Params["model"])
		if err != nil {
			return nil, nil, fmt.Errorf("diode %s: %w", elem.Name, err)
		}
		return device.NewDiode(elem.Name, model), elem.Nodes, nil

	case "Q":
		p := device.TransistorParams{Beta: 100}
		if name, ok := elem.Params["model"]; ok {
			mp, err := lookupModel(models, name, "NPN", "PNP")
			if err != nil {
				return nil, nil, fmt.Errorf("transistor %s: %w", elem.Name, err)
			}
			p.PNP = mp.Type == "PNP"
			if bf, ok := mp.Params["bf"]; ok {
				p.Beta = bf
			}
		}
		q, err := device.NewBJT(elem.Name, p)
		// card order is collector base emitter
		return q, []string{elem.Nodes[1], elem.Nodes[0], elem.Nodes[2]}, err

	case "M":
		mp, err := lookupModel(models, elem.Params["model"], "NMOS", "PMOS")
		if err != nil {
			return nil, nil, fmt.Errorf("mosfet %s: %w", elem.Name, err)
		}
		p := device.MosfetParams{
			PNP:          mp.Type == "PMOS",
			BodyDiode:    true,
			BodyTerminal: len(elem.Nodes) == 4,
		}
		if vto, ok := mp.Params["vto"]; ok {
			p.Vt = math.Abs(vto)
		}
		if kp, ok := mp.Params["kp"]; ok {
			p.Beta = kp
		}
		if bd, ok := mp.Params["bodydiode"]; ok {
			p.BodyDiode = bd != 0
		}
		if p.BodyTerminal {
			p.BodyDiode = true
		}
		var body *device.DiodeModel
		if p.BodyDiode {
			if body, err = ctx.DiodeModel("default"); err != nil {
				return nil, nil, err
			}
		}
		m, err := device.NewMosfet(elem.Name, p, body)
		// card order is drain gate source [body]
		nodes := []string{elem.Nodes[1], elem.Nodes[2], elem.Nodes[0]}
		if p.BodyTerminal {
			nodes = append(nodes, elem.Nodes[3])
		}
		return m, nodes, err

	case "G", "E":
		e, err := expr.Parse(elem.Expr)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", elem.Name, err)
		}
		inputs := elem.Nodes[2:]
		// inputs first, then out+ out-
		nodes := append(append([]string{}, inputs...), elem.Nodes[0], elem.Nodes[1])
		if elem.Type == "G" {
			g, err := device.NewVCCS(elem.Name, e, len(inputs))
			return g, nodes, err
		}
		v, err := device.NewVCVS(elem.Name, e, len(inputs))
		return v, nodes, err

	case "F", "H":
		e, err := expr.Parse(elem.Expr)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", elem.Name, err)
		}
		// sense+ sense- out+ out-
		nodes := []string{elem.Nodes[2], elem.Nodes[3], elem.Nodes[0], elem.Nodes[1]}
		if elem.Type == "F" {
			f, err := device.NewCCCS(elem.Name, e)
			return f, nodes, err
		}
		h, err := device.NewCCVS(elem.Name, e)
		return h, nodes, err
	}
	return nil, nil, fmt.Errorf("unsupported device type: %s", elem.Type)
}

func createVoltageSource(elem Element) (*device.VoltageSource, error) {
	args := elem.Params["args"]

	switch elem.Params["type"] {
	case "dc":
		return device.NewDCVoltageSource(elem.Name, elem.Value), nil

	case "sin":
		v, err := parseValues(args, "SIN")
		if err != nil {
			return nil, err
		}
		if len(v) < 3 || len(v) > 4 {
			return nil, fmt.Errorf("SIN needs offset, amplitude, frequency and an optional phase")
		}
		v = append(v, 0)
		return device.NewSinVoltageSource(elem.Name, v[0], v[1], v[2], v[3]), nil

	case "square", "triangle", "sawtooth":
		v, err := parseValues(args, strings.ToUpper(elem.Params["type"]))
		if err != nil {
			return nil, err
		}
		if len(v) < 3 || len(v) > 5 {
			return nil, fmt.Errorf("%s needs bias, amplitude, frequency, optional phase and duty", elem.Params["type"])
		}
		v = append(v, 0, 0)
		vtype := map[string]device.SourceType{
			"square":   device.SQUARE,
			"triangle": device.TRIANGLE,
			"sawtooth": device.SAWTOOTH,
		}[elem.Params["type"]]
		return device.NewPeriodicVoltageSource(elem.Name, vtype, v[0], v[1], v[2], v[3], v[4])

	case "pulse":
		v, err := parseValues(args, "PULSE")
		if err != nil {
			return nil, err
		}
		if len(v) != 7 {
			return nil, fmt.Errorf("insufficient PULSE parameters")
		}
		return device.NewPulseVoltageSource(elem.Name, v[0], v[1], v[2], v[3], v[4], v[5], v[6]), nil

	case "pwl":
		v, err := parseValues(args, "PWL")
		if err != nil {
			return nil, err
		}
		if len(v) < 4 || len(v)%2 != 0 {
			return nil, fmt.Errorf("insufficient or invalid PWL parameters, need pairs of time-value")
		}
		times := make([]float64, len(v)/2)
		values := make([]float64, len(v)/2)
		for i := range times {
			times[i], values[i] = v[2*i], v[2*i+1]
		}
		return device.NewPWLVoltageSource(elem.Name, times, values)

	case "expr":
		e, err := expr.Parse(elem.Expr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", elem.Name, err)
		}
		return device.NewExprVoltageSource(elem.Name, e)
	}
	return nil, fmt.Errorf("unsupported voltage source type: %s", elem.Params["type"])
}

func lookupModel(models map[string]device.ModelParam, name string, types ...string) (device.ModelParam, error) {
	mp, ok := models[strings.ToLower(name)]
	if !ok {
		return mp, fmt.Errorf("undefined model %q", name)
	}
	for _, t := range types {
		if mp.Type == t {
			return mp, nil
		}
	}
	return mp, fmt.Errorf("model %q has type %s, want one of %s", name, mp.Type, strings.Join(types, ", "))
}

func floatParam(elem Element, key string, def float64) (float64, error) {
	s, ok := elem.Params[key]
	if !ok {
		return def, nil
	}
	v, err := ParseValue(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid %s: %w", elem.Name, key, err)
	}
	return v, nil
}
