// Package export writes scored records to CSV or XLSX files. The format is
// picked from the output path's extension; everything else about the layout
// is shared between the two writers.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"
)

// Columns is the output header, shared by both formats.
var Columns = []string{ //nolint: gochecknoglobals
	"siren",
	"siret",
	"legal_name",
	"display_name",
	"naf",
	"tranche",
	"domain",
	"domain_source",
	"domain_verified",
	"score",
	"naf_ok",
	"name_keyword",
	"site_keyword",
	"job_posting",
	"size_ok",
	"strong",
	"possible",
	"signals",
}

// scoreColumn locates the score in Columns so the XLSX writer survives a
// layout reorder.
var scoreColumn = slices.Index(Columns, "score") //nolint: gochecknoglobals

// row flattens one scored record into the column layout. Signals are
// serialized as JSON so the evidence survives in a single spreadsheet cell.
func row(rec domain.ScoredRecord) []string {
	signals, err := json.Marshal(rec.Signals)
	if err != nil {
		signals = []byte("{}")
	}

	return []string{
		rec.Record.SIREN,
		rec.Record.SIRET,
		rec.Record.LegalName,
		rec.Record.DisplayName,
		rec.Record.NAF,
		string(rec.Record.Tranche),
		rec.Resolution.Domain,
		string(rec.Resolution.Source),
		strconv.FormatBool(rec.Resolution.Verified),
		strconv.Itoa(rec.Evaluation.Score),
		strconv.FormatBool(rec.Evaluation.NAFOK),
		strconv.FormatBool(rec.Evaluation.NameKeywordFound),
		strconv.FormatBool(rec.Evaluation.SiteKeywordFound),
		strconv.FormatBool(rec.Evaluation.JobPostingPresent),
		strconv.FormatBool(rec.Evaluation.SizeOK),
		strconv.FormatBool(rec.Evaluation.Strong),
		strconv.FormatBool(rec.Evaluation.Possible),
		string(signals),
	}
}

// Write picks the format from the path extension: .xlsx gets a workbook,
// anything else a CSV file. Parent directories are created as needed.
func Write(path string, records []domain.ScoredRecord) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create output directory: %w", err)
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return writeXLSX(path, records)
	}

	return writeCSV(path, records)
}

// WriteStrongSubset writes the records meeting the strong threshold to a
// sibling file derived from path by appending "_strong" before the
// extension. It returns the subset path and the number of rows written.
func WriteStrongSubset(path string, records []domain.ScoredRecord) (string, int, error) {
	strong := make([]domain.ScoredRecord, 0, len(records))
	for _, rec := range records {
		if rec.Evaluation.Strong {
			strong = append(strong, rec)
		}
	}

	subsetPath := StrongPath(path)
	if err := Write(subsetPath, strong); err != nil {
		return subsetPath, 0, err
	}

	return subsetPath, len(strong), nil
}

// StrongPath derives the strong-subset file name from the main output path.
func StrongPath(path string) string {
	ext := filepath.Ext(path)

	return strings.TrimSuffix(path, ext) + "_strong" + ext
}

func writeCSV(path string, records []domain.ScoredRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not create csv file")
	}
	defer func() {
		_ = f.Close()
	}()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not write header")
	}
	for _, rec := range records {
		if err := w.Write(row(rec)); err != nil {
			return serrors.Wrap(serrors.ErrInternal, err, "could not write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not flush csv")
	}

	return f.Close()
}

const sheetName = "Candidates"

func writeXLSX(path string, records []domain.ScoredRecord) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not create sheet")
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not drop default sheet")
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not write header")
	}

	for i, rec := range records {
		values := row(rec)
		cells := make([]any, len(values))
		for j, v := range values {
			cells[j] = v
		}
		// score as a number so spreadsheet sorting behaves
		cells[scoreColumn] = rec.Evaluation.Score

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return serrors.Wrap(serrors.ErrInternal, err, "could not compute cell name")
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return serrors.Wrap(serrors.ErrInternal, err, "could not write row")
		}
	}

	if err := f.SaveAs(path); err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not save workbook")
	}

	return nil
}
