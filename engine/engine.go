// Package engine defines the interface to the external simulation engine:
// the deterministic, parameter-and-seed-keyed functions that produce initial
// conditions, perturbed density fields, coeval cubes, light-cones and
// luminosity functions. The orchestration layer (package mcmc) treats every
// artifact as opaque; it only decides when each one is (re)computed.
//
// Implementations own their disk cache. Callers signal cache intent through
// the Regenerate/Write/CacheDir request fields and must never assume
// exclusive access to the cache directory.
package engine

import "fmt"

// InitialConditions is the seed- and cosmology-keyed starting point of every
// simulation. Seed always records the seed actually used, even when the
// request left it to the engine to choose.
type InitialConditions struct {
	Seed    int64       `yaml:"seed"`
	User    UserParams  `yaml:"user_params"`
	Cosmo   CosmoParams `yaml:"cosmo_params"`
	Density []float64   `yaml:"density"`
}

// PerturbedField is the density field evolved to one redshift.
type PerturbedField struct {
	Redshift float64   `yaml:"redshift"`
	Seed     int64     `yaml:"seed"`
	Density  []float64 `yaml:"density"`
	Velocity []float64 `yaml:"velocity"`
}

// Coeval is one simulated observable snapshot at a single redshift.
type Coeval struct {
	Redshift       float64   `yaml:"redshift"`
	Seed           int64     `yaml:"seed"`
	BrightnessTemp []float64 `yaml:"brightness_temp"`
	XHBox          []float64 `yaml:"xH_box"`
	Density        []float64 `yaml:"density"`
	Velocity       []float64 `yaml:"velocity"`
}

// Field returns the named output field of the cube. Unknown names are a
// configuration error surfaced to the caller.
func (c *Coeval) Field(name string) ([]float64, error) {
	switch name {
	case "brightness_temp":
		return c.BrightnessTemp, nil
	case "xH_box":
		return c.XHBox, nil
	case "density":
		return c.Density, nil
	case "velocity":
		return c.Velocity, nil
	default:
		return nil, fmt.Errorf("%q is not a field of Coeval", name)
	}
}

// CoevalFieldNames lists the field names Coeval.Field accepts.
func CoevalFieldNames() []string {
	return []string{"brightness_temp", "xH_box", "density", "velocity"}
}

// LightCone is a single product spanning a continuous redshift range.
type LightCone struct {
	Redshift       float64   `yaml:"redshift"`
	MaxRedshift    float64   `yaml:"max_redshift"`
	Seed           int64     `yaml:"seed"`
	NodeRedshifts  []float64 `yaml:"node_redshifts"`
	BrightnessTemp []float64 `yaml:"brightness_temp"`
}

// LuminosityFunction holds the derived statistic per redshift: UV magnitude
// bins, halo masses and the luminosity function itself. Invalid bins are
// flagged NaN in LF; filtering them is the caller's concern.
type LuminosityFunction struct {
	Muv   [][]float64 `yaml:"Muv"`
	Mhalo [][]float64 `yaml:"mhalo"`
	LF    [][]float64 `yaml:"lfunc"`
}

// InitialConditionsRequest asks for the initial conditions box. A nil Seed
// lets the engine choose: it may adopt the seed of a cached box matching the
// parameters (when Regenerate is false), otherwise it draws one at random.
type InitialConditionsRequest struct {
	User       UserParams
	Cosmo      CosmoParams
	Seed       *int64
	Regenerate bool
	Write      bool
	CacheDir   string
}

// PerturbFieldRequest asks for the density field at one redshift, evolved
// from the given initial conditions.
type PerturbFieldRequest struct {
	Redshift   float64
	Init       *InitialConditions
	Regenerate bool
	Write      bool
	CacheDir   string
}

// CoevalRequest asks for one cube per redshift. Init and Perturbed may be
// pre-computed artifacts to reuse; when nil the engine computes them itself
// (through its cache).
type CoevalRequest struct {
	Redshifts  []float64
	User       UserParams
	Flags      FlagOptions
	Astro      AstroParams
	Cosmo      CosmoParams
	Init       *InitialConditions
	Perturbed  []*PerturbedField
	Seed       *int64
	Regenerate bool
	Write      bool
	CacheDir   string
}

// LightConeRequest asks for a light-cone from Redshift up to MaxRedshift
// (engine default when nil).
type LightConeRequest struct {
	Redshift    float64
	MaxRedshift *float64
	User        UserParams
	Flags       FlagOptions
	Astro       AstroParams
	Cosmo       CosmoParams
	Seed        *int64
	Regenerate  bool
	Write       bool
	CacheDir    string
}

// LuminosityFunctionRequest asks for the luminosity function at each
// redshift, binned into NBins UV-magnitude bins.
type LuminosityFunctionRequest struct {
	Redshifts []float64
	User      UserParams
	Flags     FlagOptions
	Astro     AstroParams
	Cosmo     CosmoParams
	NBins     int
}

// NewSimulatorFunc is set by an implementation sub-package's init()
// (engine/synthetic), giving interface-only consumers a default engine
// without an import cycle.
var NewSimulatorFunc func(cells int) Simulator

// Simulator is the external simulation engine. Implementations must be
// deterministic in (parameters, seed) and safe for concurrent use: the
// orchestration layer may evaluate many parameter vectors at once.
type Simulator interface {
	InitialConditions(req InitialConditionsRequest) (*InitialConditions, error)
	PerturbField(req PerturbFieldRequest) (*PerturbedField, error)
	RunCoeval(req CoevalRequest) ([]*Coeval, error)
	RunLightCone(req LightConeRequest) (*LightCone, error)
	LuminosityFunction(req LuminosityFunctionRequest) (*LuminosityFunction, error)
}
