package mcmc

import (
	"github.com/pkg/errors"

	"github.com/reionmc/reionmc/engine"
)

// CoreLightCone produces a single light-cone spanning a continuous redshift
// range instead of per-redshift cubes. It shares the coeval kernel's
// parameter-overlay and setup contract; only the first configured redshift is
// used, as the light-cone's starting point.
type CoreLightCone struct {
	CoreBase
	kernel simKernel

	maxRedshift *float64
}

// LightConeConfig configures a CoreLightCone.
type LightConeConfig struct {
	SimConfig

	// MaxRedshift is the upper end of the light-cone; nil means the engine
	// default.
	MaxRedshift *float64

	// CtxVariables does not apply to the light-cone variant. A non-empty
	// value is ignored with a warning.
	CtxVariables []string
}

// NewCoreLightCone validates the configuration and builds the stage.
func NewCoreLightCone(cfg LightConeConfig) (*CoreLightCone, error) {
	if len(cfg.CtxVariables) > 0 {
		pkgLog.Warn("ctx variables do not apply to the light-cone stage; ignoring them")
	}
	k, err := newSimKernel(cfg.SimConfig)
	if err != nil {
		return nil, err
	}
	c := &CoreLightCone{kernel: k, maxRedshift: cfg.MaxRedshift}
	c.Store = cfg.Store
	return c, nil
}

// Setup applies the identical policy as the coeval stage, including the
// setup-time artifact staging that warms the engine cache and fixes the seed.
func (c *CoreLightCone) Setup() error {
	if err := c.kernel.applyChainDefaults(&c.ModuleBase); err != nil {
		return err
	}
	return c.kernel.stageArtifacts()
}

// DefiningAttributes exports the constructor-declared fields for equality.
func (c *CoreLightCone) DefiningAttributes() Attributes {
	attrs := c.kernel.definingAttributes()
	attrs["max_redshift"] = c.maxRedshift
	attrs["store"] = c.Store
	return attrs
}

// BuildModelData computes the light-cone for the context's current parameters
// and stores it under "lightcone".
func (c *CoreLightCone) BuildModelData(ctx *Context) error {
	if err := c.ensureSetup(); err != nil {
		return err
	}
	astro, cosmo, err := c.kernel.overlayParams(ctx.GetParams())
	if err != nil {
		return err
	}

	seed := c.kernel.seed
	if c.kernel.changeSeedEveryIter {
		seed = nil
	}
	lc, err := c.kernel.sim.RunLightCone(engine.LightConeRequest{
		Redshift:    c.kernel.redshifts[0],
		MaxRedshift: c.maxRedshift,
		User:        c.kernel.user,
		Flags:       c.kernel.flags,
		Astro:       astro,
		Cosmo:       cosmo,
		Seed:        seed,
		Regenerate:  c.kernel.regenerate,
		Write:       c.kernel.io.CacheMCMC,
		CacheDir:    c.kernel.io.CacheDir,
	})
	if err != nil {
		return errors.Wrap(err, "running light-cone simulation")
	}
	ctx.Add("lightcone", lc)
	return nil
}
