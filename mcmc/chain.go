package mcmc

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Likelihood is a stage consuming the accumulated context to produce a
// scalar log-probability. It shares the Module identity/lifecycle contract
// with cores.
type Likelihood interface {
	Module

	// LogLikelihood evaluates the log-probability of the model data in ctx.
	LogLikelihood(ctx *Context) (float64, error)
}

// Chain owns the ordered cores and likelihoods plus the sampled-parameter
// set. It is the sole source of "current sampled parameters" and "all loaded
// stages" visible to any stage through its back-reference.
type Chain struct {
	params      *Params
	cores       []Core
	likelihoods []Likelihood
	setupDone   bool
	log         *logrus.Entry
}

// NewChain creates an empty chain over the given parameter set (nil means no
// sampled parameters).
func NewChain(params *Params) *Chain {
	return &Chain{params: params, log: pkgLog}
}

// SetLogger replaces the chain's diagnostic sink.
func (c *Chain) SetLogger(log *logrus.Entry) {
	if log != nil {
		c.log = log
	}
}

// Params returns the chain's sampled-parameter set (possibly empty).
func (c *Chain) Params() *Params { return c.params }

// AddCore attaches a core module. Attachment establishes the module's
// back-reference to this chain, exactly once.
func (c *Chain) AddCore(core Core) error {
	if err := core.base().attach(c, core); err != nil {
		return errors.Wrapf(err, "attaching core %s", moduleName(core))
	}
	c.cores = append(c.cores, core)
	return nil
}

// AddLikelihood attaches a likelihood module.
func (c *Chain) AddLikelihood(lk Likelihood) error {
	if err := lk.base().attach(c, lk); err != nil {
		return errors.Wrapf(err, "attaching likelihood %s", moduleName(lk))
	}
	c.likelihoods = append(c.likelihoods, lk)
	return nil
}

// CoreModules returns the loaded cores in declaration order.
func (c *Chain) CoreModules() []Core {
	out := make([]Core, len(c.cores))
	copy(out, c.cores)
	return out
}

// LikelihoodModules returns the loaded likelihoods in declaration order.
func (c *Chain) LikelihoodModules() []Likelihood {
	out := make([]Likelihood, len(c.likelihoods))
	copy(out, c.likelihoods)
	return out
}

// Setup validates each module's declared requirements and runs its setup, all
// cores first and then all likelihoods, in declaration order. Validation
// failures are fatal and surface before any sampling starts.
func (c *Chain) Setup() error {
	if c.setupDone {
		return ErrAlreadySetup
	}
	for _, core := range c.cores {
		if err := c.setupModule(core); err != nil {
			return err
		}
	}
	for _, lk := range c.likelihoods {
		if err := c.setupModule(lk); err != nil {
			return err
		}
	}
	c.setupDone = true
	return nil
}

func (c *Chain) setupModule(m Module) error {
	if m.base().setupDone {
		return errors.Wrap(ErrAlreadySetup, moduleName(m))
	}
	if err := checkRequiredCores(m, c.cores); err != nil {
		return err
	}
	if err := m.Setup(); err != nil {
		return errors.Wrapf(err, "setting up %s", moduleName(m))
	}
	m.base().markSetup()
	c.log.Debugf("%s set up", moduleName(m))
	return nil
}

// NewContext creates the iteration context for one sampled parameter vector,
// ordered like Params().Names().
func (c *Chain) NewContext(vector []float64) (*Context, error) {
	pv, err := c.params.Vector(vector)
	if err != nil {
		return nil, err
	}
	return NewContext(pv), nil
}

// InitialContext creates a context carrying the parameter set's initial
// values, used by module setup to fold chain truths into fiducials.
func (c *Chain) InitialContext() *Context {
	ctx, _ := c.NewContext(c.params.Initial())
	return ctx
}

// Evaluation is the outcome of evaluating the chain at one parameter vector.
type Evaluation struct {
	LogLikelihood float64
	Storage       Storage
}

// Evaluate runs one full chain iteration: build model data through every
// core in order, evaluate every likelihood against the accumulated context,
// then extract the store values. Per-iteration failures propagate; retry
// policy belongs to the owning sampler.
func (c *Chain) Evaluate(vector []float64) (Evaluation, error) {
	if !c.setupDone {
		return Evaluation{}, ErrNotSetup
	}
	ctx, err := c.NewContext(vector)
	if err != nil {
		return Evaluation{}, err
	}
	c.log.WithField("iteration", ctx.ID()).Debugf("evaluating parameters %v", vector)

	for _, core := range c.cores {
		if err := core.BuildModelData(ctx); err != nil {
			return Evaluation{}, errors.Wrapf(err, "building model data in %s", moduleName(core))
		}
	}

	var logL float64
	for _, lk := range c.likelihoods {
		l, err := lk.LogLikelihood(ctx)
		if err != nil {
			return Evaluation{}, errors.Wrapf(err, "evaluating likelihood %s", moduleName(lk))
		}
		logL += l
	}

	storage := Storage{}
	for _, core := range c.cores {
		if err := core.PrepareStorage(ctx, storage); err != nil {
			return Evaluation{}, err
		}
	}
	return Evaluation{LogLikelihood: logL, Storage: storage}, nil
}

// SimulateMockData runs every core's SimulateMock against a fresh context
// built from the given vector and returns the context, leaving the mock data
// in it for likelihood setup or export.
func (c *Chain) SimulateMockData(vector []float64) (*Context, error) {
	if !c.setupDone {
		return nil, ErrNotSetup
	}
	ctx, err := c.NewContext(vector)
	if err != nil {
		return nil, err
	}
	for _, core := range c.cores {
		if err := core.SimulateMock(ctx); err != nil {
			return nil, errors.Wrapf(err, "simulating mock in %s", moduleName(core))
		}
	}
	return ctx, nil
}

// EvaluateBatch evaluates many parameter vectors concurrently, at most
// workers at a time. Each evaluation gets its own context; stages must not
// share mutable per-iteration state (setup-time artifact caches are
// read-only). The first failing iteration aborts the batch.
func (c *Chain) EvaluateBatch(vectors [][]float64, workers int) ([]Evaluation, error) {
	if !c.setupDone {
		return nil, ErrNotSetup
	}
	if workers < 1 {
		workers = 1
	}
	out := make([]Evaluation, len(vectors))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, vec := range vectors {
		g.Go(func() error {
			ev, err := c.Evaluate(vec)
			if err != nil {
				return err
			}
			out[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
