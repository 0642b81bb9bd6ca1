package consts

const (
	CHARGE    = 1.6021918e-19 // Elementary charge (C)
	BOLTZMANN = 1.3806226e-23 // Boltzmann constant (J/K)
	KELVIN    = 273.15        // Kelvin temperature (K)
)

// Thermal voltage at room temperature used by every junction model.
const VT = 0.025865

// Solver limits
const (
	MaxSubIterations = 5000 // Newton passes per timestep before giving up
	MaxCurrent       = 1e12 // Runaway bound on any post current (A)
)

// Companion model resistances for DC operating point
const (
	CapacitorDCResistance = 1e8
	InductorDCResistance  = 1e-3
)

// Junction convergence tuning. These are empirical; changing them alters
// convergence on edge-case circuits.
const (
	JunctionVoltageTol     = 0.01  // Max junction voltage change (V) between sub-iterations
	JunctionGminScale      = 0.01  // Diode gmin as fraction of Is
	JunctionGminFloor      = 1e-12 // Lower bound for diode gmin
	GminStepStart          = 100   // Sub-iteration where gmin escalation begins
	DiodeGminStepSpan      = 3000.0
	TransistorGminStepSpan = 300.0
	GminStepMax            = 0.1
	ZenerCurrent           = -0.005 // Reverse current (A) at breakdown voltage
)

// MOSFET tuning
const (
	MosfetMaxStep        = 0.5  // Per sub-iteration clamp on source/drain voltage (V)
	MosfetLeakage        = 1e-8 // Gds in cutoff and saturation
	MosfetAbsTol         = 0.01
	MosfetRelTol         = 0.001
	MosfetRelTolStart    = 10
	MosfetLooseStart     = 100
	MosfetLooseRate      = 0.0001
	MosfetHighBetaScale  = 100
	MosfetHighBetaCutoff = 1
)

// Behavioral source tuning
const (
	FiniteDiffStep   = 1e-6 // Central difference perturbation
	MinDerivative    = 1e-6 // Jacobian entries smaller than this are raised to it
	BehavioralTolLo  = 0.001
	BehavioralTolMid = 0.01
	BehavioralTolHi  = 0.1
	BehavioralMidAt  = 10
	BehavioralHiAt   = 200
)
