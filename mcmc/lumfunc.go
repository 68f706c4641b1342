package mcmc

import (
	"math"
	randv2 "math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/reionmc/reionmc/engine"
)

// Noise is a per-redshift noise specification for mock generation: it
// resolves the statistic's independent-variable array to one standard
// deviation per bin.
type Noise interface {
	StdDev(muv []float64) ([]float64, error)
}

// ScalarNoise is a single standard deviation shared by every bin.
type ScalarNoise float64

// StdDev broadcasts the scalar to every bin.
func (s ScalarNoise) StdDev(muv []float64) ([]float64, error) {
	out := make([]float64, len(muv))
	for i := range out {
		out[i] = float64(s)
	}
	return out, nil
}

// NoiseFunc computes per-bin standard deviations from the UV magnitude array.
type NoiseFunc func(muv []float64) []float64

// StdDev evaluates the callable.
func (f NoiseFunc) StdDev(muv []float64) ([]float64, error) {
	out := f(muv)
	if len(out) != len(muv) {
		return nil, configErrorf("noise function returned %d values for %d bins", len(out), len(muv))
	}
	return out, nil
}

// FixedNoise is a fixed per-bin standard deviation array.
type FixedNoise []float64

// StdDev checks the array against the bin count.
func (a FixedNoise) StdDev(muv []float64) ([]float64, error) {
	if len(a) != len(muv) {
		return nil, configErrorf("fixed noise array has %d values for %d bins", len(a), len(muv))
	}
	return []float64(a), nil
}

// LFBundle is the filtered luminosity-function statistic stored in the
// context: the primary statistic plus its co-indexed auxiliary arrays, one
// entry per redshift.
type LFBundle struct {
	Muv   [][]float64 `yaml:"Muv"`
	Mhalo [][]float64 `yaml:"mhalo"`
	LF    [][]float64 `yaml:"lfunc"`
}

// CoreLuminosityFunction produces a model luminosity function at each
// configured redshift directly from the parameter overlay, with no
// initial-conditions staging, and optionally layers Gaussian noise onto it
// for synthetic observations.
type CoreLuminosityFunction struct {
	CoreBase
	kernel simKernel

	name     string
	nMuvBins int
	noise    []Noise
	mockSeed uint64
}

// LuminosityFunctionConfig configures a CoreLuminosityFunction.
type LuminosityFunctionConfig struct {
	SimConfig

	// Name disambiguates the context entry when several instances coexist;
	// the statistic is stored under "luminosity_function"+Name.
	Name string

	// NBins is the number of UV magnitude bins. Defaults to 100.
	NBins int

	// Noise is the per-redshift noise specification: one entry per redshift,
	// or a single entry broadcast to all. Empty means mock generation is
	// unavailable.
	Noise []Noise

	// MockSeed seeds the noise draws. Zero draws a process-random seed.
	MockSeed uint64
}

// NewCoreLuminosityFunction validates the configuration and builds the stage.
func NewCoreLuminosityFunction(cfg LuminosityFunctionConfig) (*CoreLuminosityFunction, error) {
	k, err := newSimKernel(cfg.SimConfig)
	if err != nil {
		return nil, err
	}
	if n := len(cfg.Noise); n > 1 && n != len(k.redshifts) {
		return nil, configErrorf("noise specification has %d entries for %d redshifts", n, len(k.redshifts))
	}
	nbins := cfg.NBins
	if nbins == 0 {
		nbins = 100
	}
	seed := cfg.MockSeed
	if seed == 0 {
		seed = randv2.Uint64()
	}
	c := &CoreLuminosityFunction{
		kernel:   k,
		name:     cfg.Name,
		nMuvBins: nbins,
		noise:    cfg.Noise,
		mockSeed: seed,
	}
	c.Store = cfg.Store
	return c, nil
}

// ContextKey is the name the filtered statistic is stored under.
func (c *CoreLuminosityFunction) ContextKey() string {
	return "luminosity_function" + c.name
}

// Setup folds chain truths into the fiducials. No artifacts are staged: the
// statistic is computed directly from parameters.
func (c *CoreLuminosityFunction) Setup() error {
	return c.kernel.applyChainDefaults(&c.ModuleBase)
}

// DefiningAttributes exports the constructor-declared fields for equality.
func (c *CoreLuminosityFunction) DefiningAttributes() Attributes {
	attrs := c.kernel.definingAttributes()
	attrs["name"] = c.name
	attrs["n_muv_bins"] = c.nMuvBins
	attrs["sigma"] = c.noise
	attrs["store"] = c.Store
	return attrs
}

// resolvedNoise returns one noise entry per redshift, broadcasting a single
// entry, or nil when no noise is configured.
func (c *CoreLuminosityFunction) resolvedNoise() []Noise {
	switch len(c.noise) {
	case 0:
		return nil
	case 1:
		out := make([]Noise, len(c.kernel.redshifts))
		for i := range out {
			out[i] = c.noise[0]
		}
		return out
	default:
		return c.noise
	}
}

// BuildModelData computes the luminosity function per redshift, drops bins
// flagged invalid (NaN) while keeping the auxiliary arrays index-aligned, and
// stores the filtered bundle in the context.
func (c *CoreLuminosityFunction) BuildModelData(ctx *Context) error {
	if err := c.ensureSetup(); err != nil {
		return err
	}
	astro, cosmo, err := c.kernel.overlayParams(ctx.GetParams())
	if err != nil {
		return err
	}

	res, err := c.kernel.sim.LuminosityFunction(engine.LuminosityFunctionRequest{
		Redshifts: c.kernel.redshifts,
		User:      c.kernel.user,
		Flags:     c.kernel.flags,
		Astro:     astro,
		Cosmo:     cosmo,
		NBins:     c.nMuvBins,
	})
	if err != nil {
		return errors.Wrap(err, "computing luminosity function")
	}

	bundle := &LFBundle{
		Muv:   make([][]float64, len(c.kernel.redshifts)),
		Mhalo: make([][]float64, len(c.kernel.redshifts)),
		LF:    make([][]float64, len(c.kernel.redshifts)),
	}
	for i := range c.kernel.redshifts {
		for j, lf := range res.LF[i] {
			if math.IsNaN(lf) {
				continue
			}
			bundle.Muv[i] = append(bundle.Muv[i], res.Muv[i][j])
			bundle.Mhalo[i] = append(bundle.Mhalo[i], res.Mhalo[i][j])
			bundle.LF[i] = append(bundle.LF[i], lf)
		}
	}
	ctx.Add(c.ContextKey(), bundle)
	return nil
}

// ConvertModelToMock adds one elementwise Normal(0, sigma) draw to the
// retained statistic values. A stochastic mock is meaningless without a
// dispersion model, so a missing noise specification is fatal.
func (c *CoreLuminosityFunction) ConvertModelToMock(ctx *Context) error {
	noise := c.resolvedNoise()
	if noise == nil {
		return configErrorf("cannot create a mock without a noise specification")
	}
	v, ok := ctx.Get(c.ContextKey())
	if !ok {
		return errors.Errorf("context entry %s missing; BuildModelData must run first", c.ContextKey())
	}
	bundle, ok := v.(*LFBundle)
	if !ok {
		return errors.Errorf("context entry %s holds %T, want *LFBundle", c.ContextKey(), v)
	}

	src := randv2.NewPCG(c.mockSeed, 0x9e3779b97f4a7c15)
	for i, n := range noise {
		std, err := n.StdDev(bundle.Muv[i])
		if err != nil {
			return err
		}
		for j := range bundle.LF[i] {
			draw := distuv.Normal{Mu: 0, Sigma: std[j], Src: src}.Rand()
			bundle.LF[i][j] += draw
		}
	}
	ctx.Add(c.ContextKey(), bundle)
	return nil
}
