package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reionmc/reionmc/mcmc"
)

// ParameterConfig declares one sampled parameter in the run config.
type ParameterConfig struct {
	Name    string  `yaml:"name"`
	Initial float64 `yaml:"initial"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Width   float64 `yaml:"width"`
}

// RunConfig is the full run configuration file.
type RunConfig struct {
	ModelName string `yaml:"model_name"`
	DataDir   string `yaml:"data_dir"`

	// Synthetic engine resolution (cells per box side).
	Cells int `yaml:"cells"`

	Redshifts           []float64 `yaml:"redshifts"`
	CacheDir            string    `yaml:"cache_dir"`
	CacheMCMC           bool      `yaml:"cache_mcmc"`
	Regenerate          bool      `yaml:"regenerate"`
	ChangeSeedEveryIter bool      `yaml:"change_seed_every_iter"`
	Seed                *int64    `yaml:"seed"`

	// Luminosity-function stage settings.
	NBins      int     `yaml:"nbins"`
	NoiseSigma float64 `yaml:"noise_sigma"`
	MockSeed   uint64  `yaml:"mock_seed"`

	// Gaussian likelihood measurement error.
	LikelihoodSigma float64 `yaml:"likelihood_sigma"`

	Parameters []ParameterConfig `yaml:"parameters"`
}

// LoadRunConfig reads and strictly parses a YAML run configuration: unknown
// fields are errors so typos surface instead of silently defaulting.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg RunConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config and fills defaults.
func (c *RunConfig) Validate() error {
	if c.ModelName == "" {
		c.ModelName = "fiducial"
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if len(c.Redshifts) == 0 {
		return fmt.Errorf("at least one redshift is required")
	}
	if c.NBins == 0 {
		c.NBins = 30
	}
	if c.NoiseSigma < 0 {
		return fmt.Errorf("noise_sigma must be >= 0")
	}
	if c.LikelihoodSigma == 0 {
		c.LikelihoodSigma = 0.5
	}
	seen := map[string]bool{}
	for _, p := range c.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Params converts the declared parameters into the chain's ordered set.
func (c *RunConfig) Params() (*mcmc.Params, error) {
	params := make([]mcmc.Param, 0, len(c.Parameters))
	for _, p := range c.Parameters {
		params = append(params, mcmc.Param{
			Name: p.Name, Val: p.Initial, Min: p.Min, Max: p.Max, Width: p.Width,
		})
	}
	return mcmc.NewParams(params...)
}
