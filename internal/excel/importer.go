// Package excel reads word lists from and writes bookmarks to spreadsheets.
package excel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a spreadsheet file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatFromName picks the format from a file name, defaulting to xlsx
func FormatFromName(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	WordColumn        string // Column with the word
	TranslationColumn string // Column with the translation
	ContextColumn     string // Column with an example sentence, optional
	SheetName         string // Sheet to import; the first sheet when empty
	StartRow          int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		WordColumn:        "A",
		TranslationColumn: "B",
		ContextColumn:     "C",
		StartRow:          2, // By default, start from the second row (skip header)
	}
}

// Entry is one word read from a file
type Entry struct {
	Row         int
	Word        string
	Translation string
	Context     string
}

// Outcome is what a Sink did with an entry
type Outcome int

const (
	Created Outcome = iota
	Updated
	Skipped
)

// Sink stores an imported entry
type Sink func(e Entry) (Outcome, error)

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int      `json:"total_processed"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors"`
}

// ErrEmptyFile is returned when a file holds no rows to import
var ErrEmptyFile = errors.New("no rows to import")

// ImportWords reads entries from r and hands each to sink. Row-level
// problems are collected in the result; only unreadable input fails.
func ImportWords(r io.Reader, format Format, config ImportConfig, sink Sink) (*ImportResult, error) {
	var rows [][]string
	var err error
	if format == FormatCSV {
		rows, err = readCSV(r)
	} else {
		rows, err = readExcel(r, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		if isBlank(row) {
			continue
		}
		result.TotalProcessed++

		entry, err := parseRow(row, config, i+1)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		outcome, err := sink(entry)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		switch outcome {
		case Created:
			result.Created++
		case Updated:
			result.Updated++
		default:
			result.Skipped++
		}
	}
	if result.TotalProcessed == 0 {
		return result, ErrEmptyFile
	}
	return result, nil
}

func readExcel(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return rows, nil
}

func parseRow(row []string, config ImportConfig, rowNum int) (Entry, error) {
	entry := Entry{
		Row:         rowNum,
		Word:        cleanWord(cell(row, config.WordColumn)),
		Translation: cleanWord(cell(row, config.TranslationColumn)),
		Context:     strings.TrimSpace(cell(row, config.ContextColumn)),
	}
	if entry.Word == "" {
		return entry, fmt.Errorf("word cannot be empty")
	}
	if entry.Translation == "" {
		return entry, fmt.Errorf("translation cannot be empty")
	}
	return entry, nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	n, err := excelize.ColumnNameToNumber(column)
	if err != nil || n-1 >= len(row) {
		return ""
	}
	return row[n-1]
}

// cleanWord drops trailing notes in parentheses, e.g. "go (went, gone)"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
