package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/interfaces"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
)

// Memory implements Repository interface with in-memory storage
type Memory struct {
	mu       sync.RWMutex
	datasets map[types.DatasetID]*model.Dataset
}

// NewMemory creates a new memory repository
func NewMemory() interfaces.Repository {
	return &Memory{
		datasets: make(map[types.DatasetID]*model.Dataset),
	}
}

// PutDataset saves a dataset to memory, replacing any dataset with the same ID
func (m *Memory) PutDataset(ctx context.Context, dataset *model.Dataset) error {
	if dataset == nil {
		return goerr.New("dataset is nil")
	}
	if err := dataset.Validate(); err != nil {
		return goerr.Wrap(err, "invalid dataset")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.datasets[dataset.ID] = copyDataset(dataset)
	return nil
}

// GetDataset retrieves a dataset by ID
func (m *Memory) GetDataset(ctx context.Context, id types.DatasetID) (*model.Dataset, error) {
	if id == "" {
		return nil, goerr.New("dataset ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	dataset, exists := m.datasets[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrDatasetNotFound, "failed to get dataset", goerr.V("id", id))
	}

	// Return a copy to prevent external modification
	return copyDataset(dataset), nil
}

// ListDatasets lists all datasets, newest import first
func (m *Memory) ListDatasets(ctx context.Context) ([]*model.DatasetInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]*model.DatasetInfo, 0, len(m.datasets))
	for _, ds := range m.datasets {
		info := ds.Info()
		infos = append(infos, &info)
	}

	sortDatasetInfos(infos)
	return infos, nil
}

// DeleteDataset deletes a dataset by ID
func (m *Memory) DeleteDataset(ctx context.Context, id types.DatasetID) error {
	if id == "" {
		return goerr.New("dataset ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.datasets[id]; !exists {
		return goerr.Wrap(model.ErrDatasetNotFound, "failed to delete dataset", goerr.V("id", id))
	}
	delete(m.datasets, id)
	return nil
}

// Close closes the repository (no-op for memory)
func (m *Memory) Close() error {
	return nil
}

func copyDataset(ds *model.Dataset) *model.Dataset {
	out := *ds
	out.Records = make([]model.DefectRecord, len(ds.Records))
	for i, r := range ds.Records {
		if r.ClosedDate != nil {
			closed := *r.ClosedDate
			r.ClosedDate = &closed
		}
		out.Records[i] = r
	}
	return &out
}

func sortDatasetInfos(infos []*model.DatasetInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].ImportedAt.Equal(infos[j].ImportedAt) {
			return infos[i].ImportedAt.After(infos[j].ImportedAt)
		}
		return infos[i].ID < infos[j].ID
	})
}
