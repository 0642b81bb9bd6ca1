package circuit

import (
	"log/slog"

	"github.com/edp1096/circuitsim/internal/consts"
	"github.com/edp1096/circuitsim/pkg/matrix"
	"github.com/edp1096/circuitsim/pkg/util"
)

type Config struct {
	MaxSubIterations int     // Newton passes per timestep
	MaxCurrent       float64 // Runaway bound (A)
	Backend          matrix.Backend
	Method           util.IntegrationMethod // default for new reactive elements
	Logger           *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxSubIterations: consts.MaxSubIterations,
		MaxCurrent:       consts.MaxCurrent,
		Backend:          matrix.BackendSparse,
		Method:           util.Trapezoidal,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.MaxSubIterations <= 0 {
		cfg.MaxSubIterations = def.MaxSubIterations
	}
	if cfg.MaxCurrent <= 0 {
		cfg.MaxCurrent = def.MaxCurrent
	}
	if cfg.Backend == "" {
		cfg.Backend = def.Backend
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}
