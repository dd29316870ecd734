package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/internal/forecast"
	"github.com/iwvelando/cashout-forecast/internal/optimizer"
	"github.com/iwvelando/cashout-forecast/internal/store"
	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/iwvelando/cashout-forecast/pkg/optimization"
	"github.com/iwvelando/cashout-forecast/pkg/output"
	"github.com/iwvelando/cashout-forecast/pkg/risks"
	"github.com/iwvelando/cashout-forecast/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	simulationLocation := flag.String("simulation", constants.DefaultSimulationFile, "path to a YAML or JSON simulation document")
	simulationID := flag.Int("simulation-id", 0, "project a simulation held by the configured record store instead of a file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	budget := flag.Float64("budget", 0, "monthly budget; when set, solve the shortest financing term that fits it")
	envFile := flag.String("env-file", ".env", "optional file of environment overrides")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("{\"op\": \"main\", \"level\": \"warn\", \"msg\": \"failed to load env file %s\", \"error\": \"%v\"}\n", *envFile, err)
	}

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	ctx := context.Background()
	sim, project, warnings, err := loadSimulation(ctx, logger, conf, *simulationLocation, *simulationID)
	if err != nil {
		logger.Fatal("failed to load simulation",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	warnings = append(warnings, sim.ValidateSimulation()...)
	for _, warning := range warnings {
		logger.Warn("Simulation warning: "+warning,
			zap.String("op", "main"),
		)
	}

	report := output.Report{
		Name:    sim.Name,
		Results: forecast.GetForecast(logger, sim),
		Risks:   risks.Evaluate(project, sim),
	}

	if *budget > 0 {
		summary, results, err := optimizer.NewRunner(logger).SolveTerm(sim, optimizer.TermOptions{Budget: *budget})
		if err != nil {
			logger.Fatal("failed to solve financing term",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		if summary.Changed() {
			logger.Info("financing term adjusted to the budget",
				zap.String("op", "main"),
				zap.String("from", summary.OriginalDisplay),
				zap.String("to", summary.ValueDisplay),
			)
		}
		report.Results = results
		report.Optimizations = []optimization.Summary{summary}
	}

	if err := output.Write(os.Stdout, outputFormat, []output.Report{report}); err != nil {
		logger.Fatal("failed to write output",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

// loadSimulation reads the simulation from the record store when id is set,
// and from the document at path otherwise. File simulations carry no project.
func loadSimulation(ctx context.Context, logger *zap.Logger, conf *config.Configuration, path string, id int) (config.Simulation, config.Project, []string, error) {
	if id <= 0 {
		sim, warnings, err := config.LoadSimulation(path)
		if err != nil {
			return config.Simulation{}, config.Project{}, nil, err
		}
		return *sim, config.Project{}, warnings, nil
	}

	backend, err := store.NewBackend(ctx, conf.Store, logger)
	if err != nil {
		return config.Simulation{}, config.Project{}, nil, err
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			logger.Warn("failed to close record store",
				zap.String("op", "main.loadSimulation"),
				zap.Error(closeErr),
			)
		}
	}()

	records := store.New(backend, logger)
	sim, err := records.GetSimulation(ctx, id)
	if err != nil {
		return config.Simulation{}, config.Project{}, nil, err
	}
	project, err := records.GetProject(ctx, sim.ProjectID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return config.Simulation{}, config.Project{}, nil, err
	}
	return sim, project, nil, nil
}
