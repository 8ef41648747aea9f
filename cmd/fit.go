package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborview-research/epi-cli/internal/model"
	"github.com/harborview-research/epi-cli/internal/sir"
	"github.com/harborview-research/epi-cli/internal/store"
)

var (
	fitPopulation float64
	fitTrainEnd   string
	fitHorizon    int
	fitRunName    string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the SIR model and project forward",
	Long:  "Derives SIR compartments from stored weekly observations, estimates beta and gamma over the training window, simulates the forecast horizon, and persists the run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runCfg, err := resolveRunConfig()
		if err != nil {
			return err
		}

		name := fitRunName
		if name == "" {
			name = fmt.Sprintf("fit-%s", time.Now().UTC().Format("20060102-150405"))
		}

		run, err := st.CreateRun(ctx, name, runCfg)
		if err != nil {
			return err
		}
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusFitting); err != nil {
			return err
		}

		result, fitErr := executeFit(ctx, st, runCfg)
		if fitErr != nil {
			failure := &model.RunResult{Error: fitErr.Error()}
			if err := st.UpdateRunResult(ctx, run.ID, failure); err != nil {
				zap.L().Error("persist failed run", zap.String("run_id", run.ID), zap.Error(err))
			}
			return eris.Wrapf(fitErr, "run %s", run.ID)
		}

		if err := st.UpdateRunResult(ctx, run.ID, result); err != nil {
			return err
		}

		printFitSummary(run.ID, runCfg, result)
		return nil
	},
}

// resolveRunConfig merges flags over the configured model defaults.
func resolveRunConfig() (model.RunConfig, error) {
	modelCfg := cfg.Model
	if fitPopulation > 0 {
		modelCfg.Population = fitPopulation
	}
	if fitTrainEnd != "" {
		modelCfg.TrainingWindowEnd = fitTrainEnd
	}
	if fitHorizon > 0 {
		modelCfg.ForecastHorizon = fitHorizon
	}

	trainEnd, err := modelCfg.TrainEnd()
	if err != nil {
		return model.RunConfig{}, err
	}
	if modelCfg.Population <= 0 {
		return model.RunConfig{}, eris.New("population must be positive")
	}
	if modelCfg.ForecastHorizon < 1 {
		return model.RunConfig{}, eris.New("forecast horizon must be at least 1 week")
	}

	return model.RunConfig{
		Population:        modelCfg.Population,
		TrainingWindowEnd: trainEnd,
		ForecastHorizon:   modelCfg.ForecastHorizon,
	}, nil
}

// executeFit runs the pipeline stages in order: derive, estimate, simulate,
// difference. Stages after the first failure do not run.
func executeFit(ctx context.Context, st store.Store, runCfg model.RunConfig) (*model.RunResult, error) {
	obs, err := st.ListObservations(ctx)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, eris.New("no weekly observations in store, run `epi import` first")
	}

	states, warnings := sir.Derive(obs, runCfg.Population)
	training := sir.TrainingWindow(states, runCfg.TrainingWindowEnd)

	rates, err := sir.EstimateRates(training)
	if err != nil {
		return nil, err
	}

	seed := training[len(training)-1]
	projected, err := sir.Simulate(seed, rates, runCfg.ForecastHorizon)
	if err != nil {
		return nil, err
	}

	incidence := sir.Incidence(states, projected)

	warningTexts := make([]string, len(warnings))
	for i, w := range warnings {
		warningTexts[i] = w.String()
	}

	return &model.RunResult{
		Beta:           rates.Beta,
		Gamma:          rates.Gamma,
		PairsUsed:      rates.PairsUsed,
		PairsDropped:   rates.PairsDropped,
		TrainingWeeks:  len(training),
		ProjectedWeeks: len(projected),
		Warnings:       warningTexts,
		Incidence:      incidence,
	}, nil
}

func printFitSummary(runID string, runCfg model.RunConfig, result *model.RunResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "run\t%s\n", runID)
	fmt.Fprintf(w, "population\t%.0f\n", runCfg.Population)
	fmt.Fprintf(w, "training end\t%s\n", runCfg.TrainingWindowEnd.Format("2006-01-02"))
	fmt.Fprintf(w, "beta\t%.6g\n", result.Beta)
	fmt.Fprintf(w, "gamma\t%.6g\n", result.Gamma)
	fmt.Fprintf(w, "pairs used\t%d (dropped %d)\n", result.PairsUsed, result.PairsDropped)
	fmt.Fprintf(w, "training weeks\t%d\n", result.TrainingWeeks)
	fmt.Fprintf(w, "projected weeks\t%d\n", result.ProjectedWeeks)
	w.Flush() //nolint:errcheck

	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
}

func init() {
	fitCmd.Flags().Float64Var(&fitPopulation, "population", 0, "population size (default from config)")
	fitCmd.Flags().StringVar(&fitTrainEnd, "train-end", "", "last week included in parameter estimation, YYYY-MM-DD")
	fitCmd.Flags().IntVar(&fitHorizon, "horizon", 0, "number of weeks to project forward (default from config)")
	fitCmd.Flags().StringVar(&fitRunName, "run-name", "", "human-readable run name")
	rootCmd.AddCommand(fitCmd)
}
