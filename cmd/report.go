package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborview-research/epi-cli/internal/model"
	"github.com/harborview-research/epi-cli/internal/report"
	"github.com/harborview-research/epi-cli/internal/sir"
	"github.com/harborview-research/epi-cli/internal/store"
)

var (
	reportRunID string
	reportOut   string
	reportXLSX  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render charts and workbooks for a completed run",
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

		run, err := st.GetRun(ctx, reportRunID)
		if err != nil {
			return err
		}
		if run.Status != model.RunStatusComplete || run.Result == nil {
			return eris.Errorf("run %s is %s, only complete runs can be reported", run.ID, run.Status)
		}

		if err := os.MkdirAll(reportOut, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", reportOut)
		}

		incidencePath := filepath.Join(reportOut, "incidence.html")
		if err := report.WriteIncidenceChart(run, incidencePath); err != nil {
			return err
		}

		// Recompute the trajectories from the stored observations and the
		// run's fitted rates so the compartment chart matches the run.
		compartmentsPath := filepath.Join(reportOut, "compartments.html")
		if err := writeCompartments(ctx, st, run, compartmentsPath); err != nil {
			return err
		}

		written := []string{incidencePath, compartmentsPath}

		if reportXLSX {
			workbookPath := filepath.Join(reportOut, "incidence.xlsx")
			if err := report.WriteIncidenceWorkbook(run, workbookPath); err != nil {
				return err
			}
			written = append(written, workbookPath)
		}

		for _, path := range written {
			fmt.Println(path)
		}
		return nil
	},
}

func writeCompartments(ctx context.Context, st store.Store, run *model.Run, path string) error {
	obs, err := st.ListObservations(ctx)
	if err != nil {
		return err
	}
	if len(obs) == 0 {
		return eris.New("no weekly observations in store")
	}

	states, warnings := sir.Derive(obs, run.Config.Population)
	if len(warnings) > 0 {
		zap.L().Debug("derive warnings during report", zap.Int("count", len(warnings)))
	}

	training := sir.TrainingWindow(states, run.Config.TrainingWindowEnd)
	if len(training) == 0 {
		return eris.New("training window is empty for this run")
	}

	rates := model.RateEstimate{Beta: run.Result.Beta, Gamma: run.Result.Gamma}
	projected, err := sir.Simulate(training[len(training)-1], rates, run.Config.ForecastHorizon)
	if err != nil {
		return err
	}

	return report.WriteCompartmentChart(states, projected, path)
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run ID to report")
	reportCmd.Flags().StringVar(&reportOut, "out", "reports", "output directory")
	reportCmd.Flags().BoolVar(&reportXLSX, "xlsx", false, "also export the incidence table as XLSX")
	_ = reportCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(reportCmd)
}
