package mcmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussianSetup(t *testing.T, data [][]float64, sigma float64) (*GaussianLikelihood, *CoreLuminosityFunction, *Chain) {
	t.Helper()
	core, err := NewCoreLuminosityFunction(lumfuncConfig(newFakeSimulator(), 6))
	require.NoError(t, err)
	lk := &GaussianLikelihood{ContextKey: core.ContextKey(), Data: data, Sigma: sigma}

	params := mustParams(t, Param{Name: "F_STAR10", Val: -1.3, Min: -3, Max: 0, Width: 0.1})
	chain := NewChain(params)
	require.NoError(t, chain.AddCore(core))
	require.NoError(t, chain.AddLikelihood(lk))
	require.NoError(t, chain.Setup())
	return lk, core, chain
}

func TestGaussianLikelihood_KnownChiSquare(t *testing.T) {
	lk, core, chain := gaussianSetup(t, [][]float64{{0, 0}}, 0.5)

	ctx, err := chain.NewContext([]float64{-1.3})
	require.NoError(t, err)
	ctx.Add(core.ContextKey(), &LFBundle{LF: [][]float64{{1, 2}}})

	// Residuals scaled by 1/sigma: (1/0.5)^2 + (2/0.5)^2 = 20.
	logL, err := lk.LogLikelihood(ctx)
	require.NoError(t, err)
	assert.InDelta(t, -10.0, logL, 1e-12)
}

func TestGaussianLikelihood_FullChainEvaluation(t *testing.T) {
	// The fake's filtered statistic at F_STAR10=-1.3 is exactly [-1.3, -3.0],
	// so observing it back gives zero chi-square.
	_, _, chain := gaussianSetup(t, [][]float64{{-1.3, -3.0}}, 0.5)

	ev, err := chain.Evaluate([]float64{-1.3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.LogLikelihood)

	ev, err = chain.Evaluate([]float64{-1.0})
	require.NoError(t, err)
	assert.Less(t, ev.LogLikelihood, 0.0)
}

func TestGaussianLikelihood_TruncatesToSharedBinRange(t *testing.T) {
	lk, core, chain := gaussianSetup(t, [][]float64{{1, 2}}, 1.0)

	// Model retained more bins than observed: extras are skipped.
	ctx, err := chain.NewContext([]float64{-1.3})
	require.NoError(t, err)
	ctx.Add(core.ContextKey(), &LFBundle{LF: [][]float64{{1, 2, 99}}})
	logL, err := lk.LogLikelihood(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, logL)

	// Model retained fewer bins after filtering: only the shared range counts.
	ctx, err = chain.NewContext([]float64{-1.3})
	require.NoError(t, err)
	ctx.Add(core.ContextKey(), &LFBundle{LF: [][]float64{{1}}})
	logL, err = lk.LogLikelihood(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, logL)
}

func TestGaussianLikelihood_RedshiftCountMismatch(t *testing.T) {
	lk, core, chain := gaussianSetup(t, [][]float64{{0}, {0}}, 1.0)

	ctx, err := chain.NewContext([]float64{-1.3})
	require.NoError(t, err)
	ctx.Add(core.ContextKey(), &LFBundle{LF: [][]float64{{1}}})
	_, err = lk.LogLikelihood(ctx)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestGaussianLikelihood_MissingContextEntry(t *testing.T) {
	lk, _, chain := gaussianSetup(t, [][]float64{{0}}, 1.0)

	ctx, err := chain.NewContext([]float64{-1.3})
	require.NoError(t, err)
	_, err = lk.LogLikelihood(ctx)
	assert.Error(t, err)
}

func TestGaussianLikelihood_SetupValidation(t *testing.T) {
	lk := &GaussianLikelihood{ContextKey: "luminosity_function", Sigma: 0, Data: [][]float64{{1}}}
	assert.Error(t, lk.Setup())

	lk = &GaussianLikelihood{ContextKey: "luminosity_function", Sigma: -1, Data: [][]float64{{1}}}
	assert.Error(t, lk.Setup())

	lk = &GaussianLikelihood{ContextKey: "luminosity_function", Sigma: 0.5}
	assert.Error(t, lk.Setup())
}
