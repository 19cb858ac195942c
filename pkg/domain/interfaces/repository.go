package interfaces

//go:generate moq -out mocks/repository_mock.go -pkg mocks . Repository

import (
	"context"

	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	// Dataset operations
	PutDataset(ctx context.Context, dataset *model.Dataset) error
	GetDataset(ctx context.Context, id types.DatasetID) (*model.Dataset, error)
	ListDatasets(ctx context.Context) ([]*model.DatasetInfo, error)
	DeleteDataset(ctx context.Context, id types.DatasetID) error

	// Close closes the repository connection
	Close() error
}
