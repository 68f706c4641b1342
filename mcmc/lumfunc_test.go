package mcmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lumfuncConfig(sim *fakeSimulator, zs ...float64) LuminosityFunctionConfig {
	return LuminosityFunctionConfig{
		SimConfig: SimConfig{Redshift: Redshifts(zs...), Simulator: sim},
		NBins:     3,
	}
}

func setupLumfuncChain(t *testing.T, core *CoreLuminosityFunction) *Chain {
	t.Helper()
	params := mustParams(t, Param{Name: "F_STAR10", Val: -1.3, Min: -3, Max: 0, Width: 0.1})
	chain := NewChain(params)
	require.NoError(t, chain.AddCore(core))
	require.NoError(t, chain.Setup())
	return chain
}

func builtBundle(t *testing.T, core *CoreLuminosityFunction, chain *Chain) (*Context, *LFBundle) {
	t.Helper()
	ctx, err := chain.NewContext([]float64{-1.3})
	require.NoError(t, err)
	require.NoError(t, core.BuildModelData(ctx))
	v, ok := ctx.Get(core.ContextKey())
	require.True(t, ok)
	return ctx, v.(*LFBundle)
}

func TestCoreLuminosityFunction_InvalidBinsFilteredAndAligned(t *testing.T) {
	core, err := NewCoreLuminosityFunction(lumfuncConfig(newFakeSimulator(), 6, 7))
	require.NoError(t, err)
	chain := setupLumfuncChain(t, core)
	_, bundle := builtBundle(t, core, chain)

	require.Len(t, bundle.LF, 2)
	for i := range bundle.LF {
		// The fake flags the middle of its three bins NaN: it must be
		// absent, not zeroed, and the auxiliaries stay co-indexed.
		assert.Equal(t, []float64{-1.3, -3.0}, bundle.LF[i])
		assert.Equal(t, []float64{-22, -18}, bundle.Muv[i])
		assert.Equal(t, []float64{11.5, 10.5}, bundle.Mhalo[i])
	}
}

func TestCoreLuminosityFunction_InstanceNameDisambiguatesContextKey(t *testing.T) {
	cfg := lumfuncConfig(newFakeSimulator(), 6)
	cfg.Name = ".z6"
	core, err := NewCoreLuminosityFunction(cfg)
	require.NoError(t, err)
	assert.Equal(t, "luminosity_function.z6", core.ContextKey())
}

func TestCoreLuminosityFunction_MockWithoutNoiseFails(t *testing.T) {
	core, err := NewCoreLuminosityFunction(lumfuncConfig(newFakeSimulator(), 6))
	require.NoError(t, err)
	chain := setupLumfuncChain(t, core)
	ctx, _ := builtBundle(t, core, chain)

	err = core.ConvertModelToMock(ctx)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCoreLuminosityFunction_MockIsDeterministicForFixedSeed(t *testing.T) {
	makeMock := func() []float64 {
		cfg := lumfuncConfig(newFakeSimulator(), 6)
		cfg.Noise = []Noise{ScalarNoise(0.5)}
		cfg.MockSeed = 99
		core, err := NewCoreLuminosityFunction(cfg)
		require.NoError(t, err)
		chain := setupLumfuncChain(t, core)
		ctx, err := chain.SimulateMockData([]float64{-1.3})
		require.NoError(t, err)
		v, ok := ctx.Get(core.ContextKey())
		require.True(t, ok)
		return v.(*LFBundle).LF[0]
	}

	first := makeMock()
	second := makeMock()
	assert.Equal(t, first, second)

	// The draw is real noise, not a no-op.
	assert.NotEqual(t, []float64{-1.3, -3.0}, first)
}

func TestCoreLuminosityFunction_ScalarNoiseBroadcastsToAllRedshifts(t *testing.T) {
	cfg := lumfuncConfig(newFakeSimulator(), 6, 7, 8)
	cfg.Noise = []Noise{ScalarNoise(0.5)}
	core, err := NewCoreLuminosityFunction(cfg)
	require.NoError(t, err)

	resolved := core.resolvedNoise()
	require.Len(t, resolved, 3)
	for _, n := range resolved {
		assert.Equal(t, ScalarNoise(0.5), n)
	}
}

func TestCoreLuminosityFunction_NoiseEntryCountMustMatchRedshifts(t *testing.T) {
	cfg := lumfuncConfig(newFakeSimulator(), 6, 7, 8)
	cfg.Noise = []Noise{ScalarNoise(0.5), ScalarNoise(0.7)}
	_, err := NewCoreLuminosityFunction(cfg)
	assert.Error(t, err)
}

func TestCoreLuminosityFunction_CallableNoise(t *testing.T) {
	cfg := lumfuncConfig(newFakeSimulator(), 6)
	cfg.Noise = []Noise{NoiseFunc(func(muv []float64) []float64 {
		out := make([]float64, len(muv))
		for i, m := range muv {
			out[i] = 0.01 * -m
		}
		return out
	})}
	cfg.MockSeed = 7
	core, err := NewCoreLuminosityFunction(cfg)
	require.NoError(t, err)
	chain := setupLumfuncChain(t, core)

	ctx, err := chain.SimulateMockData([]float64{-1.3})
	require.NoError(t, err)
	v, _ := ctx.Get(core.ContextKey())
	bundle := v.(*LFBundle)
	require.Len(t, bundle.LF[0], 2)
}

func TestFixedNoise_LengthMismatch(t *testing.T) {
	_, err := FixedNoise{0.1, 0.2}.StdDev([]float64{-22, -20, -18})
	assert.Error(t, err)
}
