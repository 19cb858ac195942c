package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// DefectID represents a defect identifier as it appears in the source data (e.g. "DEF-101")
type DefectID string

// String returns the string representation
func (id DefectID) String() string {
	return string(id)
}

// DatasetID represents an imported dataset identifier
type DatasetID string

// String returns the string representation
func (id DatasetID) String() string {
	return string(id)
}

// Validate checks if the dataset ID is valid (non-empty)
func (id DatasetID) Validate() error {
	if id == "" {
		return goerr.New("dataset ID cannot be empty")
	}
	return nil
}

// NewDatasetID creates a new DatasetID using UUID v7, falling back to v4
func NewDatasetID() DatasetID {
	id, err := uuid.NewV7()
	if err != nil {
		return DatasetID(uuid.New().String())
	}
	return DatasetID(id.String())
}

// ChannelID represents a Slack channel identifier
type ChannelID string

// String returns the string representation
func (id ChannelID) String() string {
	return string(id)
}
