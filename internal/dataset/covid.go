package dataset

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborview-research/epi-cli/internal/config"
	"github.com/harborview-research/epi-cli/internal/fetcher"
	"github.com/harborview-research/epi-cli/internal/store"
)

// CovidWeekly imports a daily cumulative COVID time series and folds it into
// weekly observations. The source is a long-format CSV with Date, Confirmed,
// Deaths, and Recovered columns; rows for the same date (one per reporting
// region) are summed before bucketing.
type CovidWeekly struct {
	cfg *config.Config
}

func (d *CovidWeekly) Name() string     { return "covid_weekly" }
func (d *CovidWeekly) Source() string   { return d.cfg.Datasets.CovidURL }
func (d *CovidWeekly) Cadence() Cadence { return Daily }

func (d *CovidWeekly) Sync(ctx context.Context, st store.Store, f fetcher.Fetcher, tempDir string) (*SyncResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))

	body, err := f.Download(ctx, d.Source())
	if err != nil {
		return nil, eris.Wrap(err, "covid: download")
	}
	defer body.Close() //nolint:errcheck

	daily, skipped, err := parseCovidCSV(ctx, body)
	if err != nil {
		return nil, err
	}
	if len(daily) == 0 {
		return nil, eris.New("covid: source contained no usable rows")
	}

	obs, filled := BucketWeekly(daily)
	if filled > 0 {
		log.Warn("coalesced missing fields to zero", zap.Int64("fields", filled))
	}

	n, err := st.UpsertObservations(ctx, obs)
	if err != nil {
		return nil, eris.Wrap(err, "covid: upsert observations")
	}

	log.Info("synced weekly observations",
		zap.Int64("weeks", n),
		zap.Int("daily_rows", len(daily)),
		zap.Int64("rows_skipped", skipped),
	)

	return &SyncResult{
		RowsSynced:       n,
		FieldsZeroFilled: filled,
		RowsSkipped:      skipped,
		Metadata:         map[string]any{"daily_rows": len(daily)},
	}, nil
}

// parseCovidCSV reads the long-format series, summing per-date rows across
// regions. Blank numeric fields become NaN so the weekly fold can count them.
func parseCovidCSV(ctx context.Context, r io.Reader) ([]DailyRecord, int64, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var cols map[string]int
	byDate := make(map[time.Time]*DailyRecord)
	var skipped int64

	for row := range rowCh {
		if cols == nil {
			select {
			case header := <-headerCh:
				cols = indexColumns(header)
			default:
				return nil, 0, eris.New("covid: missing CSV header")
			}
			for _, required := range []string{"date", "confirmed", "deaths"} {
				if _, ok := cols[required]; !ok {
					return nil, 0, eris.Errorf("covid: source missing column %q", required)
				}
			}
		}

		date, err := time.Parse("2006-01-02", field(row, cols, "date"))
		if err != nil {
			skipped++
			continue
		}

		rec, ok := byDate[date]
		if !ok {
			rec = &DailyRecord{Date: date, Cases: math.NaN(), Deaths: math.NaN(), Recovered: math.NaN()}
			byDate[date] = rec
		}
		addField(&rec.Cases, field(row, cols, "confirmed"))
		addField(&rec.Deaths, field(row, cols, "deaths"))
		addField(&rec.Recovered, field(row, cols, "recovered"))
	}
	if err := <-errCh; err != nil {
		return nil, 0, eris.Wrap(err, "covid: parse CSV")
	}

	daily := make([]DailyRecord, 0, len(byDate))
	for _, rec := range byDate {
		daily = append(daily, *rec)
	}
	return daily, skipped, nil
}

// addField accumulates a numeric field into a NaN-initialized sum. Blank and
// unparseable fields leave the sum untouched so missing data stays missing.
func addField(sum *float64, raw string) {
	if raw == "" {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return
	}
	if math.IsNaN(*sum) {
		*sum = 0
	}
	*sum += v
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
