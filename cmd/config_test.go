package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRunConfig_AppliesDefaults(t *testing.T) {
	cfg, err := LoadRunConfig(writeConfig(t, `
redshifts: [6.0, 7.0]
parameters:
  - name: F_STAR10
    initial: -1.3
    min: -3
    max: 0
    width: 0.1
`))
	require.NoError(t, err)

	assert.Equal(t, "fiducial", cfg.ModelName)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, 30, cfg.NBins)
	assert.Equal(t, 0.5, cfg.LikelihoodSigma)
	assert.Equal(t, []float64{6, 7}, cfg.Redshifts)
}

func TestLoadRunConfig_UnknownFieldIsError(t *testing.T) {
	_, err := LoadRunConfig(writeConfig(t, `
redshifts: [6.0]
redshfits: [7.0]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redshfits")
}

func TestLoadRunConfig_RequiresRedshifts(t *testing.T) {
	_, err := LoadRunConfig(writeConfig(t, `
model_name: toy
`))
	assert.Error(t, err)
}

func TestLoadRunConfig_RejectsDuplicateParameters(t *testing.T) {
	_, err := LoadRunConfig(writeConfig(t, `
redshifts: [6.0]
parameters:
  - name: F_STAR10
    initial: -1.3
  - name: F_STAR10
    initial: -1.1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "F_STAR10")
}

func TestRunConfig_ParamsPreservesDeclarationOrder(t *testing.T) {
	cfg, err := LoadRunConfig(writeConfig(t, `
redshifts: [6.0]
parameters:
  - name: F_STAR10
    initial: -1.3
    min: -3
    max: 0
    width: 0.1
  - name: ALPHA_STAR
    initial: 0.5
    min: -0.5
    max: 1
    width: 0.05
`))
	require.NoError(t, err)

	params, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, []string{"F_STAR10", "ALPHA_STAR"}, params.Names())
	assert.Equal(t, []float64{-1.3, 0.5}, params.Initial())
}
