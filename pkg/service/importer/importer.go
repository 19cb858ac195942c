package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/xuri/excelize/v2"
)

// Error tags for import failures
var (
	ErrTagUnsupportedFormat = goerr.NewTag("unsupported_format")
	ErrTagEmptySheet        = goerr.NewTag("empty_sheet")
	ErrTagMissingColumn     = goerr.NewTag("missing_column")
)

// Format is a supported spreadsheet format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DetectFormat returns the format for a file name based on its extension
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", goerr.New("unsupported file format",
			goerr.T(ErrTagUnsupportedFormat),
			goerr.V("filename", filename))
	}
}

// RowError describes a spreadsheet row that could not be converted into a record
type RowError struct {
	Row     int    `json:"row"` // 1-based row number in the sheet, header is row 1
	Column  string `json:"column,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// Result is the outcome of an import
type Result struct {
	Records   []model.DefectRecord `json:"records"`
	RowErrors []RowError           `json:"rowErrors,omitempty"`
}

// Parse reads defect records from a spreadsheet. The format is chosen from the file name.
// Rows with unparsable cells are reported in RowErrors and left out of Records.
func Parse(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(r)
	case FormatCSV:
		rows, err = readCSV(r)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read spreadsheet", goerr.V("filename", filename))
	}

	result, err := ParseRows(rows)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse spreadsheet", goerr.V("filename", filename))
	}

	ctxlog.From(ctx).Debug("spreadsheet imported",
		"filename", filename,
		"format", format,
		"records", len(result.Records),
		"rowErrors", len(result.RowErrors),
	)
	return result, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read workbook")
	}

	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open workbook")
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, goerr.New("no worksheet found", goerr.T(ErrTagEmptySheet))
	}

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get rows", goerr.V("sheet", sheetName))
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read CSV")
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// ParseRows converts a header row followed by data rows into defect records
func ParseRows(rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, goerr.New("worksheet is empty", goerr.T(ErrTagEmptySheet))
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	result := &Result{Records: make([]model.DefectRecord, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlank(row) {
			continue
		}

		record, rowErr := parseRow(cols, row)
		if rowErr != nil {
			rowErr.Row = rowNum
			result.RowErrors = append(result.RowErrors, *rowErr)
			continue
		}
		result.Records = append(result.Records, *record)
	}

	return result, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
