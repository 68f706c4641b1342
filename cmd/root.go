package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reionmc/reionmc/engine"
	_ "github.com/reionmc/reionmc/engine/synthetic"
	"github.com/reionmc/reionmc/mcmc"
)

var (
	configPath string // Path to the YAML run configuration
	logLevel   string // Log verbosity level
	mockOut    string // Output path for the mock bundle
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "reionmc",
	Short: "Chain orchestration for simulation-based reionization inference",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// buildChain assembles the luminosity-function core (and likelihood, when
// observed data is given) over the synthetic engine per the run config.
func buildChain(cfg *RunConfig, observed [][]float64) (*mcmc.Chain, error) {
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}

	var noise []mcmc.Noise
	if cfg.NoiseSigma > 0 {
		noise = []mcmc.Noise{mcmc.ScalarNoise(cfg.NoiseSigma)}
	}
	core, err := mcmc.NewCoreLuminosityFunction(mcmc.LuminosityFunctionConfig{
		SimConfig: mcmc.SimConfig{
			Redshift:              mcmc.Redshifts(cfg.Redshifts...),
			Regenerate:            cfg.Regenerate,
			ChangeSeedEveryIter:   cfg.ChangeSeedEveryIter,
			InitialConditionsSeed: cfg.Seed,
			Simulator:             engine.NewSimulatorFunc(cfg.Cells),
			CacheDir:              cfg.CacheDir,
			CacheMCMC:             cfg.CacheMCMC,
		},
		NBins:    cfg.NBins,
		Noise:    noise,
		MockSeed: cfg.MockSeed,
	})
	if err != nil {
		return nil, err
	}

	var likelihoods []mcmc.Likelihood
	if observed != nil {
		likelihoods = append(likelihoods, &mcmc.GaussianLikelihood{
			ContextKey: core.ContextKey(),
			Data:       observed,
			Sigma:      cfg.LikelihoodSigma,
		})
	}
	return mcmc.BuildComputationChain([]mcmc.Core{core}, likelihoods, params)
}

// evaluateCmd builds the chain, generates a mock observation at the fiducial
// parameters, and evaluates the chain's log-likelihood against it.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the chain log-likelihood at the fiducial parameters",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := LoadRunConfig(configPath)
		if err != nil {
			logrus.Fatalf("Loading run config: %v", err)
		}

		mockChain, err := buildChain(cfg, nil)
		if err != nil {
			logrus.Fatalf("Building mock chain: %v", err)
		}
		ctx, err := mockChain.SimulateMockData(mockChain.Params().Initial())
		if err != nil {
			logrus.Fatalf("Simulating mock data: %v", err)
		}
		bundle := mustBundle(ctx, mockChain)

		chain, err := buildChain(cfg, bundle.LF)
		if err != nil {
			logrus.Fatalf("Building chain: %v", err)
		}
		ev, err := chain.Evaluate(chain.Params().Initial())
		if err != nil {
			logrus.Fatalf("Evaluating chain: %v", err)
		}
		fmt.Printf("log-likelihood: %.6f\n", ev.LogLikelihood)
		for name := range ev.Storage {
			fmt.Printf("stored: %s\n", name)
		}
	},
}

// mockCmd generates one synthetic observation and writes it to a YAML file
// under data_dir.
var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Generate a synthetic mock observation",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := LoadRunConfig(configPath)
		if err != nil {
			logrus.Fatalf("Loading run config: %v", err)
		}
		chain, err := buildChain(cfg, nil)
		if err != nil {
			logrus.Fatalf("Building chain: %v", err)
		}
		ctx, err := chain.SimulateMockData(chain.Params().Initial())
		if err != nil {
			logrus.Fatalf("Simulating mock data: %v", err)
		}
		bundle := mustBundle(ctx, chain)

		out := mockOut
		if out == "" {
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				logrus.Fatalf("Creating data dir: %v", err)
			}
			out = filepath.Join(cfg.DataDir, cfg.ModelName+"_mock.yaml")
		}
		data, err := yaml.Marshal(bundle)
		if err != nil {
			logrus.Fatalf("Encoding mock bundle: %v", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			logrus.Fatalf("Writing mock bundle: %v", err)
		}
		logrus.Infof("Mock observation written to %s", out)
	},
}

// mustBundle pulls the luminosity-function bundle out of an evaluated context.
func mustBundle(ctx *mcmc.Context, chain *mcmc.Chain) *mcmc.LFBundle {
	for _, core := range chain.CoreModules() {
		lf, ok := core.(*mcmc.CoreLuminosityFunction)
		if !ok {
			continue
		}
		if v, ok := ctx.Get(lf.ContextKey()); ok {
			if bundle, ok := v.(*mcmc.LFBundle); ok {
				return bundle
			}
		}
	}
	logrus.Fatal("No luminosity-function bundle in context")
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "run.yaml", "Path to the YAML run configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	mockCmd.Flags().StringVar(&mockOut, "out", "", "Output path for the mock bundle (default data_dir/model_name_mock.yaml)")

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(mockCmd)
}
