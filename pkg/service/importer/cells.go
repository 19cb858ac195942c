package importer

import (
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/xuri/excelize/v2"
)

// Layouts accepted for date cells, in order of preference.
// "01-02-06" is how excelize renders cells formatted with the built-in short date style.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01-02-06",
	"1/2/2006",
	"1/2/06",
	"1/2/06 15:04",
}

// Excel serial numbers between 1955-01-01 and 2099-12-31
const (
	minDateSerial = 20090
	maxDateSerial = 73050
)

// ParseDateCell parses a date cell. An empty cell yields the zero date.
func ParseDateCell(value string) (types.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return types.Date{}, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return types.DateOf(t), nil
		}
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial >= minDateSerial && serial <= maxDateSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return types.Date{}, goerr.Wrap(err, "invalid Excel date serial", goerr.V("value", value))
		}
		return types.DateOf(t), nil
	}

	return types.Date{}, goerr.New("unrecognized date format", goerr.V("value", value))
}

// ParseCostCell parses a currency amount such as "$1,250.50". An empty cell yields 0.
func ParseCostCell(value string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(value))
	if cleaned == "" {
		return 0, nil
	}
	cost, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid cost", goerr.V("value", value))
	}
	return cost, nil
}

func parseRow(cols columnIndex, row []string) (*model.DefectRecord, *RowError) {
	record := &model.DefectRecord{
		ID:        types.DefectID(cols.get(row, ColumnDefectID)),
		Status:    cols.get(row, ColumnStatus),
		Severity:  cols.get(row, ColumnSeverity),
		AppArea:   cols.get(row, ColumnAppArea),
		RootCause: cols.get(row, ColumnRootCause),
	}
	if record.ID == "" {
		return nil, &RowError{Column: ColumnDefectID, Message: "defect ID is required"}
	}

	discovery, err := ParseDateCell(cols.get(row, ColumnDiscoveryDate))
	if err != nil {
		return nil, cellError(ColumnDiscoveryDate, cols.get(row, ColumnDiscoveryDate), err)
	}
	record.DiscoveryDate = discovery

	closed, err := ParseDateCell(cols.get(row, ColumnClosedDate))
	if err != nil {
		return nil, cellError(ColumnClosedDate, cols.get(row, ColumnClosedDate), err)
	}
	if !closed.IsZero() {
		record.ClosedDate = &closed
	}

	cost, err := ParseCostCell(cols.get(row, ColumnFixCost))
	if err != nil {
		return nil, cellError(ColumnFixCost, cols.get(row, ColumnFixCost), err)
	}
	record.FixCost = cost

	return record, nil
}

func cellError(column, value string, err error) *RowError {
	return &RowError{Column: column, Value: value, Message: err.Error()}
}
