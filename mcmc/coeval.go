package mcmc

import (
	randv2 "math/rand/v2"

	"github.com/pkg/errors"

	"github.com/reionmc/reionmc/engine"
)

// Redshift is the normalized redshift input: a scalar and a single-element
// sequence are equivalent. The discrimination is resolved once, at
// construction.
type Redshift struct {
	values []float64
}

// SingleRedshift normalizes a scalar redshift to a one-element sequence.
func SingleRedshift(z float64) Redshift { return Redshift{values: []float64{z}} }

// Redshifts normalizes a redshift sequence, preserving order.
func Redshifts(zs ...float64) Redshift {
	v := make([]float64, len(zs))
	copy(v, zs)
	return Redshift{values: v}
}

// Values returns the ordered redshift sequence.
func (r Redshift) Values() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// IOOptions control where full simulation artifacts are cached and whether
// they are persisted during sampling.
type IOOptions struct {
	// CacheDir is where the engine reads and writes full data sets. Empty
	// means the engine's default.
	CacheDir string
	// CacheMCMC persists artifacts computed during sampling iterations, not
	// just at setup.
	CacheMCMC bool
}

// SimConfig is the construction-time configuration shared by every staged
// pipeline variant.
type SimConfig struct {
	// Redshift at which to evaluate, normalized to an ordered sequence.
	Redshift Redshift

	// Fiducial parameter sets. Nil means the package defaults. Sampled
	// parameters whose names match fields of the astro or cosmo sets
	// override them per iteration.
	UserParams  *engine.UserParams
	FlagOptions *engine.FlagOptions
	AstroParams *engine.AstroParams
	CosmoParams *engine.CosmoParams

	// Regenerate forces recomputation even when matching cached data exists.
	Regenerate bool

	// ChangeSeedEveryIter draws a fresh initial-conditions seed on every
	// iteration. Contradicts InitialConditionsSeed; the fixed seed loses.
	ChangeSeedEveryIter bool

	// InitialConditionsSeed fixes the seed all iterations are based on. Nil
	// lets the engine choose (possibly adopting a cached box's seed).
	InitialConditionsSeed *int64

	// Simulator is the external engine handle. Required.
	Simulator engine.Simulator

	// Store maps output names to extraction functions persisted with the
	// chain each iteration.
	Store map[string]StoreFunc

	CacheDir  string
	CacheMCMC bool
}

// simKernel is the pipeline skeleton shared by the coeval, light-cone and
// derived-statistic variants: parameter overlay, seed management and the
// setup-time artifact cache. Variants supply the build step.
type simKernel struct {
	redshifts           []float64
	user                engine.UserParams
	flags               engine.FlagOptions
	astro               engine.AstroParams
	cosmo               engine.CosmoParams
	regenerate          bool
	changeSeedEveryIter bool
	seed                *int64
	io                  IOOptions
	sim                 engine.Simulator

	// Decided at setup.
	cosmoSampled bool

	// Pinned at setup under the fixed-seed, no-sampled-cosmology policy and
	// read-only thereafter.
	cachedInit    *engine.InitialConditions
	cachedPerturb []*engine.PerturbedField
}

func newSimKernel(cfg SimConfig) (simKernel, error) {
	if cfg.Simulator == nil {
		return simKernel{}, configErrorf("a Simulator is required")
	}
	zs := cfg.Redshift.Values()
	if len(zs) == 0 {
		return simKernel{}, configErrorf("at least one redshift is required")
	}

	k := simKernel{
		redshifts:           zs,
		user:                engine.DefaultUserParams(),
		astro:               engine.DefaultAstroParams(),
		cosmo:               engine.DefaultCosmoParams(),
		regenerate:          cfg.Regenerate,
		changeSeedEveryIter: cfg.ChangeSeedEveryIter,
		seed:                cfg.InitialConditionsSeed,
		io:                  IOOptions{CacheDir: cfg.CacheDir, CacheMCMC: cfg.CacheMCMC},
		sim:                 cfg.Simulator,
	}
	if cfg.UserParams != nil {
		k.user = *cfg.UserParams
	}
	if cfg.FlagOptions != nil {
		k.flags = *cfg.FlagOptions
	}
	if cfg.AstroParams != nil {
		k.astro = *cfg.AstroParams
	}
	if cfg.CosmoParams != nil {
		k.cosmo = *cfg.CosmoParams
	}

	if k.seed != nil && k.changeSeedEveryIter {
		pkgLog.Warn("initial conditions seed set while changing seeds every iteration; unsetting the seed")
		k.seed = nil
	}
	return k, nil
}

// definingAttributes exports the kernel's share of a variant's defining
// fields.
func (k *simKernel) definingAttributes() Attributes {
	return Attributes{
		"redshift":                k.redshifts,
		"user_params":             k.user,
		"flag_options":            k.flags,
		"astro_params":            k.astro,
		"cosmo_params":            k.cosmo,
		"regenerate":              k.regenerate,
		"change_seed_every_iter":  k.changeSeedEveryIter,
		"initial_conditions_seed": k.seed,
		"cache_dir":               k.io.CacheDir,
		"cache_mcmc":              k.io.CacheMCMC,
	}
}

// applyChainDefaults folds the chain's initial parameter values into the
// fiducial astro and cosmo sets and records whether any sampled parameter is
// cosmological. Sampled names matching a cosmology field always feed the
// cosmology overlay; the match is logged so a naming collision is visible.
func (k *simKernel) applyChainDefaults(m *ModuleBase) error {
	chain, err := m.Chain()
	if err != nil {
		return err
	}
	initial := chain.InitialContext().GetParams().AsMap()

	astro, _, err := engine.Overlay(k.astro, initial)
	if err != nil {
		return err
	}
	cosmo, consumed, err := engine.Overlay(k.cosmo, initial)
	if err != nil {
		return err
	}
	k.astro, k.cosmo = astro, cosmo

	if len(consumed) > 0 {
		k.cosmoSampled = true
		pkgLog.Infof("sampled parameters %v feed the cosmology; initial conditions will be recomputed per iteration", consumed)
	}
	return nil
}

// stageArtifacts precomputes the initial conditions and per-redshift
// perturbed fields once, at setup, when neither the seed nor the cosmology
// changes across iterations. The pinned artifacts are reused by identity on
// every iteration and treated as read-only.
func (k *simKernel) stageArtifacts() error {
	if k.changeSeedEveryIter || k.cosmoSampled {
		return nil
	}
	pkgLog.Info("initializing init and perturb boxes for the entire chain")

	ic, err := k.sim.InitialConditions(engine.InitialConditionsRequest{
		User:       k.user,
		Cosmo:      k.cosmo,
		Seed:       k.seed,
		Regenerate: k.regenerate,
		Write:      true,
		CacheDir:   k.io.CacheDir,
	})
	if err != nil {
		return errors.Wrap(err, "computing initial conditions")
	}
	k.seed = &ic.Seed

	perturbed := make([]*engine.PerturbedField, 0, len(k.redshifts))
	for _, z := range k.redshifts {
		pf, err := k.sim.PerturbField(engine.PerturbFieldRequest{
			Redshift:   z,
			Init:       ic,
			Regenerate: k.regenerate,
			Write:      true,
			CacheDir:   k.io.CacheDir,
		})
		if err != nil {
			return errors.Wrapf(err, "computing perturbed field at z=%v", z)
		}
		perturbed = append(perturbed, pf)
	}
	k.cachedInit = ic
	k.cachedPerturb = perturbed
	pkgLog.Info("initialization done")
	return nil
}

// currentInitAndPerturb returns the artifact pair for this iteration: the
// setup-time pinned pair when available, otherwise a fresh computation
// through the engine's own parameter-keyed disk cache.
func (k *simKernel) currentInitAndPerturb(cosmo engine.CosmoParams) (*engine.InitialConditions, []*engine.PerturbedField, error) {
	if k.cachedInit != nil {
		return k.cachedInit, k.cachedPerturb, nil
	}

	seed := k.seed
	if k.changeSeedEveryIter {
		s := randv2.Int64()
		seed = &s
	}

	ic, err := k.sim.InitialConditions(engine.InitialConditionsRequest{
		User:       k.user,
		Cosmo:      cosmo,
		Seed:       seed,
		Regenerate: false,
		Write:      k.io.CacheMCMC,
		CacheDir:   k.io.CacheDir,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "computing initial conditions")
	}

	perturbed := make([]*engine.PerturbedField, 0, len(k.redshifts))
	for _, z := range k.redshifts {
		pf, err := k.sim.PerturbField(engine.PerturbFieldRequest{
			Redshift:   z,
			Init:       ic,
			Regenerate: false,
			Write:      k.io.CacheMCMC,
			CacheDir:   k.io.CacheDir,
		})
		if err != nil {
			return nil, nil, errors.Wrapf(err, "computing perturbed field at z=%v", z)
		}
		perturbed = append(perturbed, pf)
	}
	return ic, perturbed, nil
}

// overlayParams builds the astro and cosmo parameter structures for one
// iteration: fiducial values updated only for names present in both the
// fiducial structure and the sampled set. Unrecognized names are ignored.
func (k *simKernel) overlayParams(pv ParamValues) (engine.AstroParams, engine.CosmoParams, error) {
	sampled := pv.AsMap()
	astro, _, err := engine.Overlay(k.astro, sampled)
	if err != nil {
		return astro, k.cosmo, err
	}
	cosmo, _, err := engine.Overlay(k.cosmo, sampled)
	return astro, cosmo, err
}

// CoreCoeval produces one simulated cube per configured redshift each
// iteration, staging initial conditions and perturbed fields according to the
// seed/caching policy.
type CoreCoeval struct {
	CoreBase
	kernel simKernel

	// ctxVariables names the cube fields copied into the context per
	// redshift.
	ctxVariables []string
}

// CoevalConfig configures a CoreCoeval.
type CoevalConfig struct {
	SimConfig

	// CtxVariables selects which cube fields are stored in the context every
	// iteration, each as an ordered per-redshift list. Defaults to
	// brightness_temp and xH_box. Keeping the list short reduces the data
	// shipped to sampler worker processes.
	CtxVariables []string
}

// NewCoreCoeval validates the configuration and builds the stage.
func NewCoreCoeval(cfg CoevalConfig) (*CoreCoeval, error) {
	k, err := newSimKernel(cfg.SimConfig)
	if err != nil {
		return nil, err
	}
	vars := cfg.CtxVariables
	if len(vars) == 0 {
		vars = []string{"brightness_temp", "xH_box"}
	}
	c := &CoreCoeval{kernel: k, ctxVariables: vars}
	c.Store = cfg.Store
	return c, nil
}

// Setup folds chain truths into the fiducials and, when the policy allows,
// pins the initial-conditions/perturbed-field pair for the whole chain.
func (c *CoreCoeval) Setup() error {
	if err := c.kernel.applyChainDefaults(&c.ModuleBase); err != nil {
		return err
	}
	return c.kernel.stageArtifacts()
}

// RequiredCores declares no dependencies: coeval cores sit at the head of a
// chain.
func (c *CoreCoeval) RequiredCores() []CoreGroup { return nil }

// DefiningAttributes exports the constructor-declared fields for equality.
func (c *CoreCoeval) DefiningAttributes() Attributes {
	attrs := c.kernel.definingAttributes()
	attrs["ctx_variables"] = c.ctxVariables
	attrs["store"] = c.Store
	return attrs
}

// BuildModelData computes the per-redshift cubes for the context's current
// parameters and stores each configured field as an ordered per-redshift
// list.
func (c *CoreCoeval) BuildModelData(ctx *Context) error {
	if err := c.ensureSetup(); err != nil {
		return err
	}
	astro, cosmo, err := c.kernel.overlayParams(ctx.GetParams())
	if err != nil {
		return err
	}

	init, perturbed, err := c.kernel.currentInitAndPerturb(cosmo)
	if err != nil {
		return err
	}

	coevals, err := c.kernel.sim.RunCoeval(engine.CoevalRequest{
		Redshifts:  c.kernel.redshifts,
		User:       c.kernel.user,
		Flags:      c.kernel.flags,
		Astro:      astro,
		Cosmo:      cosmo,
		Init:       init,
		Perturbed:  perturbed,
		Seed:       c.kernel.seed,
		Regenerate: c.kernel.regenerate,
		Write:      c.kernel.io.CacheMCMC,
		CacheDir:   c.kernel.io.CacheDir,
	})
	if err != nil {
		return errors.Wrap(err, "running coeval simulation")
	}

	for _, name := range c.ctxVariables {
		fields := make([][]float64, 0, len(coevals))
		for _, cube := range coevals {
			f, err := cube.Field(name)
			if err != nil {
				return configErrorf("ctx variable %q is not a field of the coeval result", name)
			}
			fields = append(fields, f)
		}
		ctx.Add(name, fields)
	}
	return nil
}
