package mcmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParams_RejectsDuplicates(t *testing.T) {
	_, err := NewParams(
		Param{Name: "a", Val: 1, Min: 0, Max: 2, Width: 0.1},
		Param{Name: "a", Val: 2, Min: 0, Max: 3, Width: 0.1},
	)
	assert.Error(t, err)
}

func TestNewParams_RejectsInvertedBounds(t *testing.T) {
	_, err := NewParams(Param{Name: "a", Val: 1, Min: 2, Max: 0, Width: 0.1})
	assert.Error(t, err)
}

func TestParams_OrderPreserved(t *testing.T) {
	p := mustParams(t,
		Param{Name: "z", Val: 1, Min: 0, Max: 2, Width: 0.1},
		Param{Name: "a", Val: 2, Min: 0, Max: 3, Width: 0.1},
	)
	assert.Equal(t, []string{"z", "a"}, p.Names())
	assert.Equal(t, []float64{1, 2}, p.Initial())
}

func TestParamsFromMap_SortedForDeterminism(t *testing.T) {
	p, err := ParamsFromMap(map[string][4]float64{
		"zeta":  {30, 10, 50, 3},
		"alpha": {0.5, 0, 1, 0.05},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, p.Names())

	got, ok := p.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, Param{Name: "zeta", Val: 30, Min: 10, Max: 50, Width: 3}, got)
}

func TestParams_VectorLengthChecked(t *testing.T) {
	p := mustParams(t, Param{Name: "a", Val: 1, Min: 0, Max: 2, Width: 0.1})
	_, err := p.Vector([]float64{1, 2})
	assert.Error(t, err)

	pv, err := p.Vector([]float64{1.5})
	require.NoError(t, err)
	v, ok := pv.Value("a")
	require.True(t, ok)
	assert.Equal(t, 1.5, v)
	assert.Equal(t, map[string]float64{"a": 1.5}, pv.AsMap())
}

func TestContext_NamedAccessOnly(t *testing.T) {
	ctx := NewContext(ParamValues{})
	_, ok := ctx.Get("missing")
	assert.False(t, ok)

	ctx.Add("field", []float64{1, 2})
	v, ok := ctx.Get("field")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, v)

	assert.NotEmpty(t, ctx.ID())
	// Two iterations never share an identity.
	assert.NotEqual(t, ctx.ID(), NewContext(ParamValues{}).ID())
}
