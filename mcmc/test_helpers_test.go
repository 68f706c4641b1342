package mcmc

import (
	"math"
	"sync"

	"github.com/reionmc/reionmc/engine"
)

// fakeSimulator is an in-memory engine recording how the orchestration layer
// drives it: which seeds initial conditions were requested with, which init
// box pointers coeval runs received, and how many times each stage ran.
type fakeSimulator struct {
	mu sync.Mutex

	icCalls      int
	perturbCalls int
	coevalCalls  int

	// Seeds realized by InitialConditions, in call order.
	icSeeds []int64
	// Init pointers received by RunCoeval, in call order.
	coevalInits []*engine.InitialConditions

	nextSeed int64
}

func newFakeSimulator() *fakeSimulator { return &fakeSimulator{nextSeed: 1000} }

func (f *fakeSimulator) InitialConditions(req engine.InitialConditionsRequest) (*engine.InitialConditions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.icCalls++
	var seed int64
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		f.nextSeed++
		seed = f.nextSeed
	}
	f.icSeeds = append(f.icSeeds, seed)
	return &engine.InitialConditions{
		Seed:    seed,
		User:    req.User,
		Cosmo:   req.Cosmo,
		Density: []float64{0.1, -0.2, 0.05},
	}, nil
}

func (f *fakeSimulator) PerturbField(req engine.PerturbFieldRequest) (*engine.PerturbedField, error) {
	f.mu.Lock()
	f.perturbCalls++
	f.mu.Unlock()
	return &engine.PerturbedField{
		Redshift: req.Redshift,
		Seed:     req.Init.Seed,
		Density:  req.Init.Density,
		Velocity: []float64{0, 0, 0},
	}, nil
}

func (f *fakeSimulator) RunCoeval(req engine.CoevalRequest) ([]*engine.Coeval, error) {
	f.mu.Lock()
	f.coevalCalls++
	f.coevalInits = append(f.coevalInits, req.Init)
	f.mu.Unlock()

	out := make([]*engine.Coeval, 0, len(req.Redshifts))
	for _, z := range req.Redshifts {
		out = append(out, &engine.Coeval{
			Redshift:       z,
			Seed:           req.Init.Seed,
			BrightnessTemp: []float64{req.Astro.HIIEffFactor * z},
			XHBox:          []float64{0.5},
			Density:        req.Init.Density,
			Velocity:       []float64{0},
		})
	}
	return out, nil
}

func (f *fakeSimulator) RunLightCone(req engine.LightConeRequest) (*engine.LightCone, error) {
	maxZ := req.Redshift + 3
	if req.MaxRedshift != nil {
		maxZ = *req.MaxRedshift
	}
	return &engine.LightCone{
		Redshift:       req.Redshift,
		MaxRedshift:    maxZ,
		NodeRedshifts:  []float64{req.Redshift, maxZ},
		BrightnessTemp: []float64{req.Astro.HIIEffFactor, req.Cosmo.Sigma8},
	}, nil
}

// LuminosityFunction returns three bins per redshift with the middle one
// flagged invalid, and the first bin tracking F_STAR10 so overlays are
// observable.
func (f *fakeSimulator) LuminosityFunction(req engine.LuminosityFunctionRequest) (*engine.LuminosityFunction, error) {
	out := &engine.LuminosityFunction{}
	for range req.Redshifts {
		out.Muv = append(out.Muv, []float64{-22, -20, -18})
		out.Mhalo = append(out.Mhalo, []float64{11.5, 11.0, 10.5})
		out.LF = append(out.LF, []float64{req.Astro.FStar10, math.NaN(), -3.0})
	}
	return out, nil
}

// testCore is a minimal pipeline stage for lifecycle and equality tests.
type testCore struct {
	CoreBase
	alpha float64
	label string
}

func (c *testCore) DefiningAttributes() Attributes {
	return Attributes{"alpha": c.alpha, "label": c.label, "store": c.Store}
}

func (c *testCore) BuildModelData(ctx *Context) error {
	ctx.Add("model"+c.label, c.alpha)
	return nil
}

func (c *testCore) ConvertModelToMock(ctx *Context) error {
	v, _ := ctx.Get("model" + c.label)
	ctx.Add("model"+c.label, v.(float64)+0.5)
	return nil
}

// testLikelihood scores the distance of testCore's model value from a target.
type testLikelihood struct {
	LikelihoodBase
	target   float64
	requires []CoreGroup
}

func (l *testLikelihood) RequiredCores() []CoreGroup { return l.requires }

func (l *testLikelihood) DefiningAttributes() Attributes {
	return Attributes{"target": l.target}
}

func (l *testLikelihood) LogLikelihood(ctx *Context) (float64, error) {
	if err := l.ensureSetup(); err != nil {
		return 0, err
	}
	v, ok := ctx.Get("model")
	if !ok {
		return 0, configErrorf("model entry missing")
	}
	d := v.(float64) - l.target
	return -0.5 * d * d, nil
}

func mustParams(t interface{ Fatalf(string, ...any) }, params ...Param) *Params {
	p, err := NewParams(params...)
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	return p
}

func int64Ptr(v int64) *int64 { return &v }
