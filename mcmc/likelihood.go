package mcmc

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// LikelihoodBase carries the shared identity/lifecycle contract for
// likelihood stages. Concrete likelihoods embed it and implement
// LogLikelihood.
type LikelihoodBase struct {
	ModuleBase
}

// GaussianLikelihood is a chi-square likelihood comparing a per-redshift
// statistic bundle in the context against fixed observed data with a shared
// standard deviation. It requires a luminosity-function core to be loaded.
type GaussianLikelihood struct {
	LikelihoodBase

	// ContextKey names the *LFBundle context entry to compare against.
	ContextKey string

	// Data is the observed statistic, index-aligned with the model bundle.
	Data [][]float64

	// Sigma is the shared measurement standard deviation.
	Sigma float64
}

// RequiredCores declares the dependency on a luminosity-function stage.
func (l *GaussianLikelihood) RequiredCores() []CoreGroup {
	return []CoreGroup{Requires(MatchCore[*CoreLuminosityFunction]())}
}

// DefiningAttributes exports the constructor-declared fields for equality.
func (l *GaussianLikelihood) DefiningAttributes() Attributes {
	return Attributes{
		"context_key": l.ContextKey,
		"data":        l.Data,
		"sigma":       l.Sigma,
	}
}

// Setup validates the observed data shape.
func (l *GaussianLikelihood) Setup() error {
	if l.Sigma <= 0 {
		return configErrorf("gaussian likelihood needs sigma > 0")
	}
	if len(l.Data) == 0 {
		return configErrorf("gaussian likelihood needs observed data")
	}
	return nil
}

// LogLikelihood accumulates -0.5 * chi^2 over every redshift, skipping model
// bins beyond the observed range (the model may retain fewer bins after
// invalid-sample filtering).
func (l *GaussianLikelihood) LogLikelihood(ctx *Context) (float64, error) {
	if err := l.ensureSetup(); err != nil {
		return 0, err
	}
	v, ok := ctx.Get(l.ContextKey)
	if !ok {
		return 0, errors.Errorf("context entry %s missing", l.ContextKey)
	}
	bundle, ok := v.(*LFBundle)
	if !ok {
		return 0, errors.Errorf("context entry %s holds %T, want *LFBundle", l.ContextKey, v)
	}
	if len(bundle.LF) != len(l.Data) {
		return 0, configErrorf("model has %d redshifts, observed data has %d", len(bundle.LF), len(l.Data))
	}

	var chi2 float64
	for i, model := range bundle.LF {
		n := len(model)
		if len(l.Data[i]) < n {
			n = len(l.Data[i])
		}
		if n == 0 {
			continue
		}
		resid := make([]float64, n)
		copy(resid, model[:n])
		floats.Sub(resid, l.Data[i][:n])
		floats.Scale(1/l.Sigma, resid)
		chi2 += floats.Dot(resid, resid)
	}
	return -0.5 * chi2, nil
}
