package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborview-research/epi-cli/internal/geo"
	"github.com/harborview-research/epi-cli/internal/incidents"
	"github.com/harborview-research/epi-cli/internal/model"
	"github.com/harborview-research/epi-cli/internal/report"
)

var (
	shootingsYear      int
	shootingsShapefile string
	shootingsCodeField string
	shootingsOut       string
)

var shootingsCmd = &cobra.Command{
	Use:   "shootings",
	Short: "Correlate shooting incidents with election results",
	Long:  "Aggregates stored shooting incidents by precinct, joins the two-party vote share, fits an OLS regression, and summarizes the monthly trend. With --shapefile, incident coordinates are also assigned to boundary districts.",
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

		incidentRows, err := st.ListIncidents(ctx, shootingsYear)
		if err != nil {
			return err
		}
		if len(incidentRows) == 0 {
			return eris.New("no shooting incidents in store, run `epi import` first")
		}

		results, err := st.ListPrecinctResults(ctx)
		if err != nil {
			return err
		}

		summaries := incidents.Summarize(incidentRows, results)
		if len(summaries) == 0 {
			return eris.New("no precincts joined, import election results first")
		}

		reg, err := incidents.FitShare(summaries)
		if err != nil {
			return err
		}

		fmt.Printf("precincts joined: %d\n", reg.N)
		fmt.Printf("slope: %.2f incidents per unit dem share\n", reg.Slope)
		fmt.Printf("intercept: %.2f\n", reg.Intercept)
		fmt.Printf("pearson r: %.3f (r² %.3f)\n", reg.R, reg.R2)
		fmt.Println()

		printTopPrecincts(summaries, 10)
		printMonthlyTrend(incidentRows)

		if shootingsShapefile != "" {
			if err := assignDistricts(incidentRows); err != nil {
				return err
			}
		}

		if shootingsOut != "" {
			if err := os.MkdirAll(shootingsOut, 0o755); err != nil {
				return eris.Wrapf(err, "create output dir %s", shootingsOut)
			}
			scatterPath := filepath.Join(shootingsOut, "share_scatter.html")
			if err := report.WriteShareScatter(summaries, reg, scatterPath); err != nil {
				return err
			}
			fmt.Println(scatterPath)
		}

		return nil
	},
}

func printTopPrecincts(summaries []model.PrecinctSummary, k int) {
	sorted := make([]model.PrecinctSummary, len(summaries))
	copy(sorted, summaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Incidents > sorted[j].Incidents })
	if k > len(sorted) {
		k = len(sorted)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRECINCT\tBOROUGH\tINCIDENTS\tMURDERS\tDEM SHARE")
	for _, s := range sorted[:k] {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.3f\n", s.Precinct, s.Borough, s.Incidents, s.Murders, s.DemShare)
	}
	w.Flush() //nolint:errcheck
	fmt.Println()
}

func printMonthlyTrend(rows []model.ShootingIncident) {
	series := incidents.MonthlySeries(rows)
	trend := incidents.Trend(series, 12)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tINCIDENTS\tTREND")
	for i, mc := range series {
		trendCell := "-"
		if !math.IsNaN(trend[i]) {
			trendCell = fmt.Sprintf("%.1f", trend[i])
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", mc.Month.Format("2006-01"), mc.Count, trendCell)
	}
	w.Flush() //nolint:errcheck
	fmt.Println()

	printPeakMonths(os.Stdout, series, 5)
}

func printPeakMonths(w io.Writer, series []incidents.MonthCount, k int) {
	peaks := incidents.TopMonths(series, k)
	if len(peaks) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PEAK MONTH\tINCIDENTS")
	for _, mc := range peaks {
		fmt.Fprintf(tw, "%s\t%d\n", mc.Month.Format("2006-01"), mc.Count)
	}
	tw.Flush() //nolint:errcheck
	fmt.Fprintln(w)
}

func assignDistricts(rows []model.ShootingIncident) error {
	districts, err := geo.LoadDistricts(shootingsShapefile, shootingsCodeField, "")
	if err != nil {
		return err
	}
	zap.L().Info("loaded districts", zap.Int("count", len(districts)))

	summary := geo.NewAssigner(districts).AssignIncidents(rows)

	codes := make([]string, 0, len(summary.Counts))
	for code := range summary.Counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DISTRICT\tINCIDENTS\tMURDERS")
	for _, code := range codes {
		fmt.Fprintf(w, "%s\t%d\t%d\n", code, summary.Counts[code], summary.Murders[code])
	}
	w.Flush() //nolint:errcheck
	fmt.Printf("unassigned coordinates: %d, missing coordinates: %d\n", summary.Unassigned, summary.NoCoords)
	return nil
}

func init() {
	shootingsCmd.Flags().IntVar(&shootingsYear, "year", 0, "restrict incidents to a calendar year (0 = all)")
	shootingsCmd.Flags().StringVar(&shootingsShapefile, "shapefile", "", "district boundary shapefile for coordinate assignment")
	shootingsCmd.Flags().StringVar(&shootingsCodeField, "code-field", "precinct", "shapefile attribute holding the district code")
	shootingsCmd.Flags().StringVar(&shootingsOut, "out", "", "directory for the vote-share scatter chart")
	rootCmd.AddCommand(shootingsCmd)
}
