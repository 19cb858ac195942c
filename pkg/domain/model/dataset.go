package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// Dataset is one imported batch of defect records
type Dataset struct {
	ID         types.DatasetID `json:"id"`
	Name       string          `json:"name"`
	Source     string          `json:"source"` // original file name
	ImportedAt time.Time       `json:"importedAt"`
	Records    []DefectRecord  `json:"records"`
}

// NewDataset creates a new Dataset with a generated ID
func NewDataset(name, source string, records []DefectRecord, importedAt time.Time) (*Dataset, error) {
	if name == "" {
		name = source
	}
	if name == "" {
		return nil, goerr.New("dataset name is required")
	}

	return &Dataset{
		ID:         types.NewDatasetID(),
		Name:       name,
		Source:     source,
		ImportedAt: importedAt,
		Records:    records,
	}, nil
}

// Validate validates the dataset envelope. Individual records are validated during analysis.
func (d *Dataset) Validate() error {
	if err := d.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid dataset ID")
	}
	if d.Name == "" {
		return goerr.New("dataset name is required", goerr.V("id", d.ID))
	}
	if d.ImportedAt.IsZero() {
		return goerr.New("imported at timestamp is required", goerr.V("id", d.ID))
	}
	return nil
}

// DatasetInfo is a dataset without its records, used for listings
type DatasetInfo struct {
	ID          types.DatasetID `json:"id"`
	Name        string          `json:"name"`
	Source      string          `json:"source"`
	ImportedAt  time.Time       `json:"importedAt"`
	RecordCount int             `json:"recordCount"`
}

// Info returns the listing view of the dataset
func (d *Dataset) Info() DatasetInfo {
	return DatasetInfo{
		ID:          d.ID,
		Name:        d.Name,
		Source:      d.Source,
		ImportedAt:  d.ImportedAt,
		RecordCount: len(d.Records),
	}
}
