package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/harborview-research/epi-cli/internal/model"
	"github.com/harborview-research/epi-cli/internal/store"
)

var (
	runsStatus string
	runsLimit  int
	runsJSON   bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored model runs",
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

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(runsStatus),
			Limit:  runsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		if runsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func formatRunsList(w io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tBETA\tGAMMA\tWARNINGS\tCREATED")
	for _, r := range runs {
		beta, gamma := "-", "-"
		warnings := 0
		if r.Result != nil {
			beta = fmt.Sprintf("%.4g", r.Result.Beta)
			gamma = fmt.Sprintf("%.4g", r.Result.Gamma)
			warnings = len(r.Result.Warnings)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Name, r.Status, beta, gamma, warnings,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (queued, fitting, complete, failed)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 50, "maximum runs to list")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(runsCmd)
}
