package importer

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Canonical column names of the defect sheet
const (
	ColumnDefectID      = "defect_id"
	ColumnDiscoveryDate = "discovery_date"
	ColumnClosedDate    = "closed_date"
	ColumnStatus        = "status"
	ColumnSeverity      = "severity"
	ColumnAppArea       = "app_area"
	ColumnRootCause     = "root_cause"
	ColumnFixCost       = "fix_cost"
)

var requiredColumns = []string{ColumnDefectID, ColumnDiscoveryDate}

var knownColumns = map[string]bool{
	ColumnDefectID:      true,
	ColumnDiscoveryDate: true,
	ColumnClosedDate:    true,
	ColumnStatus:        true,
	ColumnSeverity:      true,
	ColumnAppArea:       true,
	ColumnRootCause:     true,
	ColumnFixCost:       true,
}

// columnIndex maps canonical column names to their position in a row
type columnIndex map[string]int

// NormalizeHeader turns "Discovery Date", "discovery-date" and " Discovery_Date " into "discovery_date"
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	for strings.Contains(h, "__") {
		h = strings.ReplaceAll(h, "__", "_")
	}
	return h
}

func mapColumns(header []string) (columnIndex, error) {
	cols := make(columnIndex)
	for i, h := range header {
		name := NormalizeHeader(h)
		if !knownColumns[name] {
			continue
		}
		if _, dup := cols[name]; dup {
			return nil, goerr.New("duplicate column in header",
				goerr.V("column", name),
				goerr.V("position", i+1))
		}
		cols[name] = i
	}

	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, goerr.New("required column is missing",
				goerr.T(ErrTagMissingColumn),
				goerr.V("column", name))
		}
	}
	return cols, nil
}

// get returns the trimmed cell value of a column, or "" when the column or cell is absent
func (c columnIndex) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
