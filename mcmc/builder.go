package mcmc

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Sampler is the external MCMC sampler driven against a ready chain. The
// proposal/acceptance algorithm and the chain file format are its own
// concern; this layer only resolves the output prefix and hands over.
type Sampler interface {
	// Sample runs the sampler against the chain, writing its output files
	// under run.Prefix.
	Sample(chain *Chain, run RunInfo) error
}

// RunInfo carries the sampler invocation settings RunMCMC resolves or passes
// through verbatim.
type RunInfo struct {
	// Prefix is datadir/model_name; the sampler derives its file names from
	// it.
	Prefix string

	// ContinueSampling resumes from an existing matching chain file instead
	// of overwriting it.
	ContinueSampling bool

	// ReuseBurnin salvages the burn-in of an existing chain file when
	// sampling is not continued.
	ReuseBurnin bool

	// Options are sampler-specific settings, passed through untouched.
	Options map[string]any
}

// BuildComputationChain composes the cores and likelihoods with the sampled
// parameters into one runnable chain: every module attached in order, cores
// set up first, then likelihoods. params may be nil for a chain with no
// sampled parameters.
func BuildComputationChain(cores []Core, likelihoods []Likelihood, params *Params) (*Chain, error) {
	chain := NewChain(params)
	for _, core := range cores {
		if err := chain.AddCore(core); err != nil {
			return nil, err
		}
	}
	for _, lk := range likelihoods {
		if err := chain.AddLikelihood(lk); err != nil {
			return nil, err
		}
	}
	if err := chain.Setup(); err != nil {
		return nil, err
	}
	return chain, nil
}

// MCMCOptions configure RunMCMC.
type MCMCOptions struct {
	// DataDir receives the sampler's output files; created if absent.
	DataDir string

	// ModelName determines the output file names.
	ModelName string

	ContinueSampling bool
	ReuseBurnin      bool

	// Sampler is the external sampler to start. Required.
	Sampler Sampler

	// SamplerOptions are passed through to the sampler verbatim.
	SamplerOptions map[string]any
}

// RunMCMC builds the chain and starts the sampler against it. params is
// either a pre-built *Params set or a plain ParamMapping (nil for a chain with
// no sampled parameters). It performs no post-processing: results live in the
// sampler's own output under DataDir/ModelName.
func RunMCMC(cores []Core, likelihoods []Likelihood, params Parameters, opts MCMCOptions) (Sampler, error) {
	if opts.Sampler == nil {
		return nil, configErrorf("a Sampler is required")
	}
	if opts.ModelName == "" {
		return nil, configErrorf("a model name is required")
	}
	var pset *Params
	if params != nil {
		var err error
		if pset, err = params.toParams(); err != nil {
			return nil, err
		}
	}
	datadir := opts.DataDir
	if datadir == "" {
		datadir = "."
	}
	if err := os.MkdirAll(datadir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating data directory %s", datadir)
	}

	chain, err := BuildComputationChain(cores, likelihoods, pset)
	if err != nil {
		return nil, err
	}

	run := RunInfo{
		Prefix:           filepath.Join(datadir, opts.ModelName),
		ContinueSampling: opts.ContinueSampling,
		ReuseBurnin:      opts.ReuseBurnin,
		Options:          opts.SamplerOptions,
	}
	if err := opts.Sampler.Sample(chain, run); err != nil {
		return nil, errors.Wrap(err, "sampling")
	}
	return opts.Sampler, nil
}
