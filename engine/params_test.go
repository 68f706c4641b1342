package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlay_AppliesMatchingNames(t *testing.T) {
	astro, consumed, err := Overlay(DefaultAstroParams(), map[string]float64{
		"HII_EFF_FACTOR": 42.0,
		"F_STAR10":       -1.1,
	})
	require.NoError(t, err)
	assert.Equal(t, 42.0, astro.HIIEffFactor)
	assert.Equal(t, -1.1, astro.FStar10)
	// Untouched fields keep their fiducial values.
	assert.Equal(t, DefaultAstroParams().RBubbleMax, astro.RBubbleMax)
	assert.Equal(t, []string{"F_STAR10", "HII_EFF_FACTOR"}, consumed)
}

func TestOverlay_IgnoresUnknownNames(t *testing.T) {
	cosmo, consumed, err := Overlay(DefaultCosmoParams(), map[string]float64{
		"NOT_A_PARAMETER": 1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultCosmoParams(), cosmo)
	assert.Empty(t, consumed)
}

func TestOverlay_DoesNotMutateFiducial(t *testing.T) {
	fiducial := DefaultCosmoParams()
	_, _, err := Overlay(fiducial, map[string]float64{"SIGMA_8": 0.9})
	require.NoError(t, err)
	assert.Equal(t, DefaultCosmoParams(), fiducial)
}

func TestFieldNames_SortedTagNames(t *testing.T) {
	names := FieldNames(DefaultCosmoParams())
	assert.Equal(t, []string{"OMb", "OMm", "POWER_INDEX", "SIGMA_8", "hlittle"}, names)
}

func TestFingerprint_DistinguishesValues(t *testing.T) {
	a := DefaultCosmoParams()
	b := a
	b.Sigma8 = 0.9
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	assert.Equal(t, Fingerprint(a), Fingerprint(DefaultCosmoParams()))
}

func TestCoevalFieldAccess(t *testing.T) {
	c := &Coeval{
		BrightnessTemp: []float64{1},
		XHBox:          []float64{2},
		Density:        []float64{3},
		Velocity:       []float64{4},
	}
	for _, name := range CoevalFieldNames() {
		vals, err := c.Field(name)
		require.NoError(t, err, name)
		assert.Len(t, vals, 1)
	}
	_, err := c.Field("no_such_field")
	assert.Error(t, err)
}
