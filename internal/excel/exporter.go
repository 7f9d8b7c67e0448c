package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Bookmarks"

// ExportRow is one bookmark as written to a spreadsheet
type ExportRow struct {
	Word        string
	Translation string
	Context     string
	From        string
	To          string
	Starred     bool
	Learned     bool
	Created     time.Time
}

var exportHeader = []string{"Word", "Translation", "Context", "From", "To", "Starred", "Learned", "Created"}

func (r ExportRow) values() []string {
	return []string{
		r.Word, r.Translation, r.Context, r.From, r.To,
		strconv.FormatBool(r.Starred), strconv.FormatBool(r.Learned),
		r.Created.UTC().Format("2006-01-02"),
	}
}

// Export writes rows in the given format. The first three columns match
// what ImportWords reads with DefaultImportConfig.
func Export(w io.Writer, format Format, rows []ExportRow) error {
	if format == FormatCSV {
		return exportCSV(w, rows)
	}
	return exportXLSX(w, rows)
}

func exportCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportXLSX(w io.Writer, rows []ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(exportSheet, "A1", "H1", bold)
	}
	_ = f.SetColWidth(exportSheet, "A", "B", 25)
	_ = f.SetColWidth(exportSheet, "C", "C", 60)

	for i, r := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := r.values()
		if err := f.SetSheetRow(exportSheet, cellName, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
