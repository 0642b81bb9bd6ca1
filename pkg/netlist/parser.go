package netlist

import (
	"bufio"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/edp1096/circuitsim/pkg/analysis"
	"github.com/edp1096/circuitsim/pkg/device"
)

type AnalysisType int

const (
	AnalysisOP AnalysisType = iota
	AnalysisTRAN
	AnalysisDC
)

type NetlistData struct {
	Elements  []Element                    // Circuit elements
	Nodes     map[string]int               // Node name and index, ground is 0
	Models    map[string]device.ModelParam // Model parameters
	Analysis  AnalysisType                 // Analysis type
	TranParam struct {
		TStep  float64 // timestep
		TStop  float64 // stop time
		TStart float64 // first stored time
		UIC    bool    // Use Initial Conditions
	}
	DCParam []analysis.Sweep // .dc sources, outer sweep first
	Options Options
	Title   string // Circuit title
}

type Element struct {
	Type   string            // Part type (R, L, C, V, etc.)
	Name   string            // Part name
	Nodes  []string          // Node names
	Value  float64           // Part value
	Expr   string            // {formula} of sources and behavioral elements
	Params map[string]string // Parameter values
}

// unitMap holds the decimal exponent of each scale suffix.
var unitMap = map[string]int{
	"t":   12,  // tera
	"g":   9,   // giga
	"meg": 6,   // mega
	"k":   3,   // kilo
	"m":   -3,  // milli
	"u":   -6,  // micro
	"n":   -9,  // nano
	"p":   -12, // pico
	"f":   -15, // femto
}

var (
	valueRe = regexp.MustCompile(`(?i)^([-+]?(?:\d+\.?\d*|\.\d+)(?:e[-+]?\d+)?)(meg|[tgkmunpf])?[a-z]*$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

func IsGround(node string) bool {
	return node == "0" || strings.EqualFold(node, "gnd")
}

func Parse(input string) (*NetlistData, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	netlistData := &NetlistData{
		Nodes:  map[string]int{"0": 0},
		Models: make(map[string]device.ModelParam),
	}

	// Title or comment
	if scanner.Scan() {
		netlistData.Title = strings.TrimPrefix(scanner.Text(), "*")
		netlistData.Title = strings.TrimSpace(netlistData.Title)
	}

	var currentLine string
	lineNo, startNo := 1, 1
	flush := func() error {
		if currentLine == "" {
			return nil
		}
		err := parseLine(netlistData, currentLine)
		currentLine = ""
		if err != nil {
			return fmt.Errorf("line %d: %w", startNo, err)
		}
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Inline comment
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		if len(line) == 0 || strings.HasPrefix(line, "*") {
			continue
		}

		// Line continue
		if strings.HasPrefix(line, "+") {
			if currentLine == "" {
				return nil, fmt.Errorf("line %d: continuation without a card", lineNo)
			}
			currentLine += " " + strings.TrimSpace(line[1:])
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		if strings.EqualFold(line, ".end") {
			break
		}
		currentLine, startNo = line, lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return netlistData, nil
}

func parseLine(netlistData *NetlistData, line string) error {
	line = spaceRe.ReplaceAllString(line, " ")

	if strings.HasPrefix(line, ".") {
		return parseDotOperator(netlistData, line)
	}

	element, err := parseElement(line)
	if err != nil {
		return err
	}
	for _, other := range netlistData.Elements {
		if strings.EqualFold(other.Name, element.Name) {
			return fmt.Errorf("duplicate element name %s", element.Name)
		}
	}

	// node names are case-insensitive
	for i, node := range element.Nodes {
		element.Nodes[i] = strings.ToLower(node)
	}

	netlistData.Elements = append(netlistData.Elements, *element)
	for _, node := range element.Nodes {
		if IsGround(node) {
			continue
		}
		if _, exists := netlistData.Nodes[node]; !exists {
			netlistData.Nodes[node] = len(netlistData.Nodes)
		}
	}
	return nil
}

// Parse .op, .tran, .dc, .options, .model
func parseDotOperator(netlistData *NetlistData, line string) error {
	var err error

	fields := strings.Fields(line)

	switch strings.ToLower(fields[0]) {
	case ".model":
		return parseModel(netlistData, fields[1:])

	case ".options", ".option":
		return netlistData.Options.parse(fields[1:])

	case ".op":
		netlistData.Analysis = AnalysisOP

	case ".tran":
		netlistData.Analysis = AnalysisTRAN
		if len(fields) < 3 {
			return fmt.Errorf("insufficient tran parameters, need at least tstep and tstop")
		}
		netlistData.TranParam.TStep, err = ParseValue(fields[1])
		if err != nil {
			return fmt.Errorf("invalid tstep: %w", err)
		}
		netlistData.TranParam.TStop, err = ParseValue(fields[2])
		if err != nil {
			return fmt.Errorf("invalid tstop: %w", err)
		}

		for i := 3; i < len(fields); i++ {
			if strings.EqualFold(fields[i], "uic") {
				netlistData.TranParam.UIC = true
				continue
			}
			if i == 3 {
				netlistData.TranParam.TStart, err = ParseValue(fields[i])
				if err != nil {
					return fmt.Errorf("invalid tstart: %w", err)
				}
			}
		}

	case ".dc":
		// .dc src start stop incr [src2 start2 stop2 incr2]
		if len(fields) != 5 && len(fields) != 9 {
			return fmt.Errorf("dc: need source, start, stop and increment for one or two sources")
		}
		netlistData.Analysis = AnalysisDC
		netlistData.DCParam = netlistData.DCParam[:0]
		for i := 1; i < len(fields); i += 4 {
			sw := analysis.Sweep{Source: fields[i]}
			for j, v := range []*float64{&sw.Start, &sw.Stop, &sw.Increment} {
				if *v, err = ParseValue(fields[i+1+j]); err != nil {
					return fmt.Errorf("dc %s: %w", sw.Source, err)
				}
			}
			netlistData.DCParam = append(netlistData.DCParam, sw)
		}

	case ".title":
		netlistData.Title = strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	default:
		return fmt.Errorf("unsupported control card: %s", fields[0])
	}

	return nil
}

// parseModel reads ".model name TYPE(key=value ...)" with or without the
// parentheses.
func parseModel(netlistData *NetlistData, fields []string) error {
	if len(fields) < 2 {
		return fmt.Errorf("insufficient model parameters")
	}

	modelName := fields[0]
	rest := strings.Join(fields[1:], " ")
	rest = strings.ReplaceAll(rest, "(", " ")
	rest = strings.ReplaceAll(rest, ")", " ")
	rest = strings.ReplaceAll(rest, " =", "=")
	rest = strings.ReplaceAll(rest, "= ", "=")
	words := strings.Fields(rest)
	if len(words) == 0 {
		return fmt.Errorf("model %s: missing type", modelName)
	}

	modelType := strings.ToUpper(words[0])
	switch modelType {
	case "D", "NPN", "PNP", "NMOS", "PMOS":
	default:
		return fmt.Errorf("unsupported model type: %s", modelType)
	}

	params := make(map[string]float64)
	for _, pair := range words[1:] {
		parts := strings.Split(pair, "=")
		if len(parts) != 2 {
			return fmt.Errorf("invalid model parameter %q", pair)
		}

		paramName := strings.ToLower(strings.TrimSpace(parts[0]))
		value, err := ParseValue(strings.TrimSpace(parts[1]))
		if err != nil {
			return fmt.Errorf("invalid parameter value %s: %w", pair, err)
		}
		params[paramName] = value
	}

	netlistData.Models[strings.ToLower(modelName)] = device.ModelParam{
		Type:   modelType,
		Name:   modelName,
		Params: params,
	}

	return nil
}

// Parse circuit element
func parseElement(line string) (*Element, error) {
	elem := &Element{Params: make(map[string]string)}

	// A {formula} may hold spaces; cut it out before splitting fields.
	if open := strings.Index(line, "{"); open >= 0 {
		end := strings.LastIndex(line, "}")
		if end < open {
			return nil, fmt.Errorf("unterminated expression: %s", line)
		}
		elem.Expr = strings.TrimSpace(line[open+1 : end])
		if strings.TrimSpace(line[end+1:]) != "" {
			return nil, fmt.Errorf("unexpected text after expression: %s", line)
		}
		line = line[:open]
	}

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("invalid element format: %s", line)
	}
	elem.Name = fields[0]
	elem.Type = strings.ToUpper(fields[0][:1])

	// key=value pairs may follow anywhere after the nodes
	var words []string
	for _, f := range fields[1:] {
		if k, v, ok := strings.Cut(f, "="); ok {
			elem.Params[strings.ToLower(k)] = v
			continue
		}
		words = append(words, f)
	}

	switch elem.Type {
	case "R", "C", "L":
		if len(words) != 3 {
			return nil, fmt.Errorf("%s: need two nodes and a value", elem.Name)
		}
		elem.Nodes = words[:2]
		value, err := ParseValue(words[2])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", elem.Name, err)
		}
		elem.Value = value

	case "V":
		return parseVoltageSource(elem, words)

	case "I":
		if len(words) < 3 {
			return nil, fmt.Errorf("insufficient current source parameters")
		}
		elem.Nodes = words[:2]
		args := words[2:]
		if strings.EqualFold(args[0], "dc") {
			args = args[1:]
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: only DC current sources are supported", elem.Name)
		}
		value, err := ParseValue(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", elem.Name, err)
		}
		elem.Value = value

	case "D":
		if len(words) < 2 || len(words) > 3 {
			return nil, fmt.Errorf("%s: need anode, cathode and an optional model", elem.Name)
		}
		elem.Nodes = words[:2]
		if len(words) > 2 {
			elem.Params["model"] = words[2]
		}

	case "Q":
		// collector base emitter [model]
		if len(words) < 3 || len(words) > 4 {
			return nil, fmt.Errorf("%s: need collector, base, emitter and an optional model", elem.Name)
		}
		elem.Nodes = words[:3]
		if len(words) > 3 {
			elem.Params["model"] = words[3]
		}

	case "M":
		// drain gate source [body] model
		if len(words) < 4 || len(words) > 5 {
			return nil, fmt.Errorf("%s: need drain, gate, source, optional body and a model", elem.Name)
		}
		elem.Nodes = words[:len(words)-1]
		elem.Params["model"] = words[len(words)-1]

	case "G", "E":
		// out+ out- in1 [in2 ...] {formula}
		if elem.Expr == "" || len(words) < 2 {
			return nil, fmt.Errorf("%s: need output nodes, input nodes and a {formula}", elem.Name)
		}
		elem.Nodes = words

	case "F", "H":
		// out+ out- sense+ sense- {formula}
		if elem.Expr == "" || len(words) != 4 {
			return nil, fmt.Errorf("%s: need output nodes, sense nodes and a {formula}", elem.Name)
		}
		elem.Nodes = words

	default:
		return nil, fmt.Errorf("unsupported element type: %s", elem.Name)
	}

	return elem, nil
}

func parseVoltageSource(elem *Element, words []string) (*Element, error) {
	if len(words) < 2 {
		return nil, fmt.Errorf("insufficient voltage source parameters")
	}
	elem.Nodes = words[:2]

	if elem.Expr != "" {
		if len(words) != 2 {
			return nil, fmt.Errorf("%s: unexpected values before expression", elem.Name)
		}
		elem.Params["type"] = "expr"
		return elem, nil
	}

	remaining := strings.Join(words[2:], " ")
	remaining = strings.ReplaceAll(remaining, "(", " ( ") // Append whitespace around parentheses
	remaining = strings.ReplaceAll(remaining, ")", " ) ")
	args := strings.Fields(remaining)
	if len(args) == 0 {
		return nil, fmt.Errorf("missing voltage source type")
	}

	switch kind := strings.ToUpper(args[0]); kind {
	case "DC":
		if len(args) < 2 {
			return nil, fmt.Errorf("missing DC value")
		}
		elem.Params["type"] = "dc"
		value, err := ParseValue(args[1])
		if err != nil {
			return nil, err
		}
		elem.Value = value

	case "SIN", "PULSE", "PWL", "SQUARE", "TRIANGLE", "SAWTOOTH":
		elem.Params["type"] = strings.ToLower(kind)
		elem.Params["args"] = strings.Trim(strings.Join(args[1:], " "), "() ")

	default:
		value, err := ParseValue(args[0])
		if err != nil {
			return nil, fmt.Errorf("unsupported voltage source type: %s", args[0])
		}
		elem.Params["type"] = "dc"
		elem.Value = value
	}

	return elem, nil
}

// ParseValue - Parse value and factor. 1k -> 1000, 10meg -> 1e7, 5ms -> 0.005
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	mantissa, suffix := matches[1], strings.ToLower(matches[2])
	if suffix == "" {
		return strconv.ParseFloat(mantissa, 64)
	}

	// factor; folding it into the exponent keeps 10u exactly 10e-6
	exp := unitMap[suffix]
	if strings.ContainsAny(mantissa, "eE") {
		num, err := strconv.ParseFloat(mantissa, 64)
		return num * math.Pow10(exp), err
	}
	return strconv.ParseFloat(mantissa+"e"+strconv.Itoa(exp), 64)
}

func parseValues(params string, what string) ([]float64, error) {
	words := strings.Fields(params)
	values := make([]float64, len(words))
	for i, w := range words {
		v, err := ParseValue(w)
		if err != nil {
			return nil, fmt.Errorf("invalid %s parameter %d: %w", what, i+1, err)
		}
		values[i] = v
	}
	return values, nil
}
