// Package report renders model runs and incident analyses as standalone
// HTML charts and XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"

	"github.com/harborview-research/epi-cli/internal/incidents"
	"github.com/harborview-research/epi-cli/internal/model"
)

const weekLabel = "2006-01-02"

// WriteIncidenceChart renders actual vs predicted weekly new cases for a
// completed run as a standalone HTML line chart.
func WriteIncidenceChart(run *model.Run, path string) error {
	if run.Result == nil || len(run.Result.Incidence) == 0 {
		return eris.Errorf("report: run %s has no incidence to chart", run.ID)
	}

	rows := run.Result.Incidence
	weeks := make([]string, len(rows))
	actual := make([]opts.LineData, len(rows))
	predicted := make([]opts.LineData, len(rows))
	for i, row := range rows {
		weeks[i] = row.Week.Format(weekLabel)
		actual[i] = opts.LineData{Value: row.Actual}
		predicted[i] = opts.LineData{Value: row.Predicted}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Weekly New Cases"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Weekly new cases: actual vs predicted",
			Subtitle: fmt.Sprintf("run=%s beta=%.3g gamma=%.3g", run.Name, run.Result.Beta, run.Result.Gamma),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(weeks).
		AddSeries("actual", actual).
		AddSeries("predicted", predicted)

	return renderTo(line, path)
}

// WriteCompartmentChart renders the derived compartments together with the
// projected trajectories on a shared weekly axis.
func WriteCompartmentChart(states []model.CompartmentState, projected []model.ProjectedState, path string) error {
	if len(states) == 0 {
		return eris.New("report: no compartment states to chart")
	}

	weeks := make([]string, 0, len(states)+len(projected))
	infected := make([]opts.LineData, 0, len(states))
	removed := make([]opts.LineData, 0, len(states))
	for _, s := range states {
		weeks = append(weeks, s.Week.Format(weekLabel))
		infected = append(infected, opts.LineData{Value: s.Infected})
		removed = append(removed, opts.LineData{Value: s.Removed})
	}

	// Projected series starts after the observed range; pad with nils so the
	// x positions line up.
	predInfected := make([]opts.LineData, len(states), len(states)+len(projected))
	predRemoved := make([]opts.LineData, len(states), len(states)+len(projected))
	for i := range states {
		predInfected[i] = opts.LineData{Value: nil}
		predRemoved[i] = opts.LineData{Value: nil}
	}
	for _, p := range projected {
		weeks = append(weeks, p.Week.Format(weekLabel))
		infected = append(infected, opts.LineData{Value: nil})
		removed = append(removed, opts.LineData{Value: nil})
		predInfected = append(predInfected, opts.LineData{Value: p.Infected})
		predRemoved = append(predRemoved, opts.LineData{Value: p.Removed})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "SIR Compartments"}),
		charts.WithTitleOpts(opts.Title{Title: "SIR compartments, observed and projected"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(weeks).
		AddSeries("infected", infected).
		AddSeries("removed", removed).
		AddSeries("projected infected", predInfected).
		AddSeries("projected removed", predRemoved)

	return renderTo(line, path)
}

// WriteShareScatter renders the precinct vote-share vs incident-count scatter
// with the fitted regression line overlaid.
func WriteShareScatter(summaries []model.PrecinctSummary, reg incidents.Regression, path string) error {
	if len(summaries) == 0 {
		return eris.New("report: no precinct summaries to chart")
	}

	sorted := make([]model.PrecinctSummary, len(summaries))
	copy(sorted, summaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DemShare < sorted[j].DemShare })

	points := make([]opts.ScatterData, len(sorted))
	fitX := make([]string, len(sorted))
	fitY := make([]opts.LineData, len(sorted))
	for i, s := range sorted {
		points[i] = opts.ScatterData{
			Value:  []interface{}{s.DemShare, s.Incidents},
			Name:   fmt.Sprintf("precinct %d", s.Precinct),
			Symbol: "circle",
		}
		fitX[i] = fmt.Sprintf("%.3f", s.DemShare)
		fitY[i] = opts.LineData{Value: []interface{}{s.DemShare, reg.Predict(s.DemShare)}}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Shootings vs Vote Share"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Precinct shootings vs two-party Democratic share",
			Subtitle: fmt.Sprintf("slope=%.1f r=%.3f n=%d", reg.Slope, reg.R, reg.N),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "dem share"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "incidents"}),
	)
	scatter.AddSeries("precincts", points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	fit := charts.NewLine()
	fit.SetXAxis(fitX).AddSeries("fit", fitY)
	scatter.Overlap(fit)

	return renderTo(scatter, path)
}

type renderer interface {
	Render(w io.Writer) error
}

func renderTo(chart renderer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := chart.Render(f); err != nil {
		return eris.Wrapf(err, "report: render %s", path)
	}
	return nil
}
