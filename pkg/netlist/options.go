package netlist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edp1096/circuitsim/pkg/circuit"
	"github.com/edp1096/circuitsim/pkg/matrix"
	"github.com/edp1096/circuitsim/pkg/util"
)

// Options holds the .options card. Zero values leave the configuration alone.
type Options struct {
	MaxSubIterations int     // itl=
	MaxCurrent       float64 // maxcurrent=
	Method           string  // method=trap|euler
	Backend          string  // backend=sparse|dense
}

func (o *Options) parse(fields []string) error {
	for _, f := range fields {
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			return fmt.Errorf("invalid option %q, want key=value", f)
		}

		switch strings.ToLower(key) {
		case "itl":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid itl %q", val)
			}
			o.MaxSubIterations = n
		case "maxcurrent":
			v, err := ParseValue(val)
			if err != nil || v <= 0 {
				return fmt.Errorf("invalid maxcurrent %q", val)
			}
			o.MaxCurrent = v
		case "method":
			if _, err := util.ParseIntegrationMethod(val); err != nil {
				return err
			}
			o.Method = val
		case "backend":
			if _, err := matrix.ParseBackend(val); err != nil {
				return err
			}
			o.Backend = val
		default:
			return fmt.Errorf("unknown option %q", key)
		}
	}
	return nil
}

// Apply writes the options that were set into cfg.
func (o Options) Apply(cfg *circuit.Config) error {
	if o.MaxSubIterations > 0 {
		cfg.MaxSubIterations = o.MaxSubIterations
	}
	if o.MaxCurrent > 0 {
		cfg.MaxCurrent = o.MaxCurrent
	}
	if o.Method != "" {
		m, err := util.ParseIntegrationMethod(o.Method)
		if err != nil {
			return err
		}
		cfg.Method = m
	}
	if o.Backend != "" {
		b, err := matrix.ParseBackend(o.Backend)
		if err != nil {
			return err
		}
		cfg.Backend = b
	}
	return nil
}
