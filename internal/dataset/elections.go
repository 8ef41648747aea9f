package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborview-research/epi-cli/internal/config"
	"github.com/harborview-research/epi-cli/internal/fetcher"
	"github.com/harborview-research/epi-cli/internal/model"
	"github.com/harborview-research/epi-cli/internal/store"
)

// ElectionResults imports precinct-level general election results. The board
// of elections publishes both CSV and XLSX exports; the source URL's
// extension picks the parser.
type ElectionResults struct {
	cfg *config.Config
}

func (d *ElectionResults) Name() string     { return "election_results" }
func (d *ElectionResults) Source() string   { return d.cfg.Datasets.ElectionURL }
func (d *ElectionResults) Cadence() Cadence { return Static }

func (d *ElectionResults) Sync(ctx context.Context, st store.Store, f fetcher.Fetcher, tempDir string) (*SyncResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))

	var results []model.PrecinctResult
	var skipped int64
	var err error

	if strings.EqualFold(filepath.Ext(d.Source()), ".xlsx") {
		results, skipped, err = d.syncXLSX(ctx, f, tempDir)
	} else {
		results, skipped, err = d.syncCSV(ctx, f)
	}
	if err != nil {
		return nil, err
	}

	n, err := st.UpsertPrecinctResults(ctx, results)
	if err != nil {
		return nil, eris.Wrap(err, "elections: upsert results")
	}

	log.Info("synced precinct results", zap.Int64("rows", n), zap.Int64("skipped", skipped))

	return &SyncResult{RowsSynced: n, RowsSkipped: skipped}, nil
}

func (d *ElectionResults) syncCSV(ctx context.Context, f fetcher.Fetcher) ([]model.PrecinctResult, int64, error) {
	body, err := f.Download(ctx, d.Source())
	if err != nil {
		return nil, 0, eris.Wrap(err, "elections: download")
	}
	defer body.Close() //nolint:errcheck

	decoded, err := fetcher.DecodeCharset(body, d.cfg.Datasets.ElectionCharset)
	if err != nil {
		return nil, 0, eris.Wrap(err, "elections: decode charset")
	}

	reader := csv.NewReader(decoded)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, 0, eris.Wrap(err, "elections: read CSV header")
	}

	var results []model.PrecinctResult
	var skipped int64
	for {
		var rec model.PrecinctResult
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			var parseErr *csv.ParseError
			var typeErr *csvutil.UnmarshalTypeError
			if !errors.As(err, &parseErr) && !errors.As(err, &typeErr) {
				return nil, skipped, eris.Wrap(err, "elections: decode CSV")
			}
			skipped++
			continue
		}
		if rec.Precinct <= 0 {
			skipped++
			continue
		}
		results = append(results, rec)
	}
	return results, skipped, nil
}

func (d *ElectionResults) syncXLSX(ctx context.Context, f fetcher.Fetcher, tempDir string) ([]model.PrecinctResult, int64, error) {
	path := filepath.Join(tempDir, "election_results.xlsx")
	if _, err := f.DownloadToFile(ctx, d.Source(), path); err != nil {
		return nil, 0, eris.Wrap(err, "elections: download")
	}

	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SkipRows: 1})
	if err != nil {
		return nil, 0, eris.Wrap(err, "elections: read workbook")
	}

	// Workbook column order matches the CSV export: precinct, borough,
	// votes_dem, votes_rep, votes_total.
	var results []model.PrecinctResult
	var skipped int64
	for _, row := range rows {
		if len(row) < 5 {
			skipped++
			continue
		}
		precinct, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil || precinct <= 0 {
			skipped++
			continue
		}
		results = append(results, model.PrecinctResult{
			Precinct:   precinct,
			Borough:    strings.TrimSpace(row[1]),
			VotesDem:   parseVotes(row[2]),
			VotesRep:   parseVotes(row[3]),
			VotesTotal: parseVotes(row[4]),
		})
	}
	return results, skipped, nil
}

// parseVotes tolerates thousands separators in workbook cells.
func parseVotes(raw string) float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	v, _ := strconv.ParseFloat(raw, 64)
	return v
}
