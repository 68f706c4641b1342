// Package synthetic provides a deterministic stand-in for the external
// simulation engine. Artifacts are small Gaussian boxes derived from a PCG
// stream keyed by the parameter fingerprint and seed, so identical requests
// always reproduce bit-identical results; an on-disk YAML cache keyed the
// same way makes recomputation cheap across iterations and restarts.
package synthetic

import (
	"hash/fnv"
	"math"
	randv2 "math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/reionmc/reionmc/engine"
)

// Engine implements engine.Simulator. Safe for concurrent use: every call
// derives its own RNG stream and the disk cache tolerates concurrent
// readers and writers.
type Engine struct {
	// Cells is the linear size of the generated boxes. The cube of it is the
	// artifact length, so keep it small in tests.
	Cells int

	log *logrus.Entry
}

// New creates a synthetic engine with the given box resolution.
func New(cells int) *Engine {
	if cells <= 0 {
		cells = 8
	}
	return &Engine{Cells: cells, log: logrus.WithField("component", "synthetic-engine")}
}

func (e *Engine) boxLen() int { return e.Cells * e.Cells * e.Cells }

// fingerprintSeed hashes a cache key into a 64-bit stream selector.
func fingerprintSeed(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

// stream returns the deterministic PCG for one (kind, params, seed) triple.
func stream(kind, fingerprint string, seed int64) *randv2.Rand {
	sel := fingerprintSeed(kind + "|" + fingerprint)
	return randv2.New(randv2.NewPCG(sel, uint64(seed)))
}

func gaussianBox(rng *randv2.Rand, n int, scale float64) []float64 {
	box := make([]float64, n)
	for i := range box {
		box[i] = rng.NormFloat64() * scale
	}
	return box
}

// InitialConditions computes (or loads) the initial density box. A nil seed
// adopts the seed of a cached box matching the parameters when Regenerate is
// false, otherwise a fresh random seed is drawn.
func (e *Engine) InitialConditions(req engine.InitialConditionsRequest) (*engine.InitialConditions, error) {
	fp := engine.Fingerprint(req.User) + engine.Fingerprint(req.Cosmo)

	var seed int64
	switch {
	case req.Seed != nil:
		seed = *req.Seed
	default:
		if !req.Regenerate {
			if s, ok := lookupSeed(req.CacheDir, fp); ok {
				seed = s
				break
			}
		}
		seed = randv2.Int64()
	}

	key := cacheKey("init", fp, seed)
	if !req.Regenerate {
		var cached engine.InitialConditions
		if loadCached(req.CacheDir, key, &cached) {
			return &cached, nil
		}
	}

	rng := stream("init", fp, seed)
	ic := &engine.InitialConditions{
		Seed:    seed,
		User:    req.User,
		Cosmo:   req.Cosmo,
		Density: gaussianBox(rng, e.boxLen(), req.Cosmo.Sigma8),
	}
	if req.Write {
		writeCached(req.CacheDir, key, ic, e.log)
		recordSeed(req.CacheDir, fp, seed, e.log)
	}
	return ic, nil
}

// PerturbField evolves the initial density box to one redshift.
func (e *Engine) PerturbField(req engine.PerturbFieldRequest) (*engine.PerturbedField, error) {
	fp := engine.Fingerprint(req.Init.User) + engine.Fingerprint(req.Init.Cosmo) + engine.Fingerprint(req.Redshift)
	key := cacheKey("perturb", fp, req.Init.Seed)
	if !req.Regenerate {
		var cached engine.PerturbedField
		if loadCached(req.CacheDir, key, &cached) {
			return &cached, nil
		}
	}

	growth := 1 / (1 + req.Redshift)
	rng := stream("perturb", fp, req.Init.Seed)
	pf := &engine.PerturbedField{
		Redshift: req.Redshift,
		Seed:     req.Init.Seed,
		Density:  make([]float64, len(req.Init.Density)),
		Velocity: gaussianBox(rng, len(req.Init.Density), 0.1*growth),
	}
	for i, d := range req.Init.Density {
		pf.Density[i] = d * growth
	}
	if req.Write {
		writeCached(req.CacheDir, key, pf, e.log)
	}
	return pf, nil
}

// RunCoeval produces one cube per requested redshift. Supplied initial
// conditions and perturbed fields are reused; missing ones are computed
// through the cache first.
func (e *Engine) RunCoeval(req engine.CoevalRequest) ([]*engine.Coeval, error) {
	init := req.Init
	perturbed := req.Perturbed
	if init == nil {
		var err error
		init, err = e.InitialConditions(engine.InitialConditionsRequest{
			User: req.User, Cosmo: req.Cosmo, Seed: req.Seed,
			Regenerate: req.Regenerate, Write: req.Write, CacheDir: req.CacheDir,
		})
		if err != nil {
			return nil, err
		}
	}
	if perturbed == nil {
		for _, z := range req.Redshifts {
			pf, err := e.PerturbField(engine.PerturbFieldRequest{
				Redshift: z, Init: init,
				Regenerate: req.Regenerate, Write: req.Write, CacheDir: req.CacheDir,
			})
			if err != nil {
				return nil, err
			}
			perturbed = append(perturbed, pf)
		}
	}

	out := make([]*engine.Coeval, 0, len(req.Redshifts))
	for i, z := range req.Redshifts {
		fp := engine.Fingerprint(req.User) + engine.Fingerprint(req.Cosmo) +
			engine.Fingerprint(req.Astro) + engine.Fingerprint(req.Flags) + engine.Fingerprint(z)
		key := cacheKey("coeval", fp, init.Seed)

		var cached engine.Coeval
		if !req.Regenerate && loadCached(req.CacheDir, key, &cached) {
			out = append(out, &cached)
			continue
		}

		cube := e.ionize(z, init, perturbed[i], req.Astro)
		if req.Write {
			writeCached(req.CacheDir, key, cube, e.log)
		}
		out = append(out, cube)
	}
	return out, nil
}

// ionize turns a perturbed field into an observable cube. The model is a
// toy: ionized fraction follows a logistic in the local density weighted by
// the ionizing efficiency, brightness temperature scales with the neutral
// density.
func (e *Engine) ionize(z float64, init *engine.InitialConditions, pf *engine.PerturbedField, astro engine.AstroParams) *engine.Coeval {
	n := len(pf.Density)
	cube := &engine.Coeval{
		Redshift:       z,
		Seed:           init.Seed,
		BrightnessTemp: make([]float64, n),
		XHBox:          make([]float64, n),
		Density:        pf.Density,
		Velocity:       pf.Velocity,
	}
	zeta := astro.HIIEffFactor / 30.0
	for i, d := range pf.Density {
		ion := 1 / (1 + math.Exp(-zeta*(d+astro.FEsc10)))
		cube.XHBox[i] = 1 - ion
		cube.BrightnessTemp[i] = 27 * cube.XHBox[i] * (1 + d) * math.Sqrt((1+z)/10)
	}
	return cube
}

// RunLightCone stitches per-node cubes into a single light-cone product.
func (e *Engine) RunLightCone(req engine.LightConeRequest) (*engine.LightCone, error) {
	maxZ := req.Redshift + 3
	if req.MaxRedshift != nil {
		maxZ = *req.MaxRedshift
	}
	var nodes []float64
	for z := req.Redshift; z <= maxZ; z += 0.5 {
		nodes = append(nodes, z)
	}

	cubes, err := e.RunCoeval(engine.CoevalRequest{
		Redshifts: nodes,
		User:      req.User, Flags: req.Flags, Astro: req.Astro, Cosmo: req.Cosmo,
		Seed:       req.Seed,
		Regenerate: req.Regenerate, Write: req.Write, CacheDir: req.CacheDir,
	})
	if err != nil {
		return nil, err
	}

	lc := &engine.LightCone{
		Redshift:      req.Redshift,
		MaxRedshift:   maxZ,
		Seed:          cubes[0].Seed,
		NodeRedshifts: nodes,
	}
	for _, cube := range cubes {
		lc.BrightnessTemp = append(lc.BrightnessTemp, cube.BrightnessTemp...)
	}
	return lc, nil
}

// LuminosityFunction computes the derived statistic per redshift. Bins whose
// luminosity function falls below a floor are flagged NaN, mirroring the
// invalid samples a real engine produces at the bright end.
func (e *Engine) LuminosityFunction(req engine.LuminosityFunctionRequest) (*engine.LuminosityFunction, error) {
	out := &engine.LuminosityFunction{
		Muv:   make([][]float64, len(req.Redshifts)),
		Mhalo: make([][]float64, len(req.Redshifts)),
		LF:    make([][]float64, len(req.Redshifts)),
	}
	fstar := math.Pow(10, req.Astro.FStar10)
	for i, z := range req.Redshifts {
		muv := make([]float64, req.NBins)
		mhalo := make([]float64, req.NBins)
		lf := make([]float64, req.NBins)
		for j := 0; j < req.NBins; j++ {
			m := -24 + 16*float64(j)/float64(req.NBins-1)
			muv[j] = m
			mhalo[j] = 12 - 0.4*(m+20)
			phi := math.Log10(fstar) - 0.4*(req.Astro.AlphaStar+1)*(m+20) - math.Pow(10, -0.4*(m+20.5))/(1+z)
			if phi < -12 {
				phi = math.NaN()
			}
			lf[j] = phi
		}
		out.Muv[i] = muv
		out.Mhalo[i] = mhalo
		out.LF[i] = lf
	}
	return out, nil
}
