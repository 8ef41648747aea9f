package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/harborview-research/epi-cli/internal/model"
)

// WriteIncidenceWorkbook exports a completed run as an XLSX workbook with a
// summary sheet and the full incidence table.
func WriteIncidenceWorkbook(run *model.Run, path string) error {
	if run.Result == nil {
		return eris.Errorf("report: run %s has no result to export", run.ID)
	}

	wb := xlsx.NewFile()

	summary, err := wb.AddSheet("Run")
	if err != nil {
		return eris.Wrap(err, "report: add run sheet")
	}
	addKV := func(key string, value interface{}) {
		row := summary.AddRow()
		row.AddCell().SetString(key)
		switch v := value.(type) {
		case string:
			row.AddCell().SetString(v)
		case int:
			row.AddCell().SetInt(v)
		case float64:
			row.AddCell().SetFloat(v)
		}
	}
	addKV("run_id", run.ID)
	addKV("name", run.Name)
	addKV("status", string(run.Status))
	addKV("population", run.Config.Population)
	addKV("training_window_end", run.Config.TrainingWindowEnd.Format(weekLabel))
	addKV("forecast_horizon", run.Config.ForecastHorizon)
	addKV("beta", run.Result.Beta)
	addKV("gamma", run.Result.Gamma)
	addKV("pairs_used", run.Result.PairsUsed)
	addKV("pairs_dropped", run.Result.PairsDropped)
	for _, w := range run.Result.Warnings {
		addKV("warning", w)
	}

	sheet, err := wb.AddSheet("Incidence")
	if err != nil {
		return eris.Wrap(err, "report: add incidence sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{"week", "actual_new_cases", "pred_new_cases", "projected"} {
		header.AddCell().SetString(col)
	}

	for _, row := range run.Result.Incidence {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Week.Format(weekLabel))
		r.AddCell().SetFloat(row.Actual)
		r.AddCell().SetFloat(row.Predicted)
		r.AddCell().SetBool(row.Projected)
	}

	if err := wb.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}
