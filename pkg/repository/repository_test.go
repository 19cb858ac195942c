package repository_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/vantage/pkg/domain/interfaces"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/secmon-lab/vantage/pkg/repository"
)

func newTestDataset(t *testing.T, records int, importedAt time.Time) *model.Dataset {
	recs := make([]model.DefectRecord, records)
	for i := range recs {
		recs[i] = model.DefectRecord{
			ID:            types.DefectID(fmt.Sprintf("DEF-%04d", i)),
			DiscoveryDate: types.NewDate(2026, time.February, 2).AddDays(i % 10),
			Status:        "Created",
			Severity:      "High",
			AppArea:       "Billing",
			RootCause:     "Config",
			FixCost:       float64(i) * 10.5,
		}
		if i%2 == 0 {
			closed := recs[i].DiscoveryDate.AddDays(3)
			recs[i].ClosedDate = &closed
			recs[i].Status = "Closed"
		}
	}

	ds, err := model.NewDataset(fmt.Sprintf("test-%d", time.Now().UnixNano()), "defects.xlsx", recs, importedAt)
	gt.NoError(t, err)
	return ds
}

func testRepository(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Run("PutDataset and GetDataset", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()

		ctx := context.Background()
		ds := newTestDataset(t, 5, time.Now().UTC().Truncate(time.Millisecond))

		gt.NoError(t, repo.PutDataset(ctx, ds))

		retrieved, err := repo.GetDataset(ctx, ds.ID)
		gt.NoError(t, err)
		gt.Equal(t, retrieved.ID, ds.ID)
		gt.Equal(t, retrieved.Name, ds.Name)
		gt.Equal(t, retrieved.Source, ds.Source)
		gt.True(t, retrieved.ImportedAt.Sub(ds.ImportedAt).Abs() < time.Second)
		gt.Equal(t, len(retrieved.Records), 5)

		for i, r := range retrieved.Records {
			orig := ds.Records[i]
			gt.Equal(t, r.ID, orig.ID)
			gt.Equal(t, r.DiscoveryDate.String(), orig.DiscoveryDate.String())
			gt.Equal(t, r.IsOpen(), orig.IsOpen())
			if !orig.IsOpen() {
				gt.Equal(t, r.ClosedDate.String(), orig.ClosedDate.String())
			}
			gt.Equal(t, r.FixCost, orig.FixCost)
		}
	})

	t.Run("returned dataset is a copy", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()

		ctx := context.Background()
		ds := newTestDataset(t, 2, time.Now().UTC())
		gt.NoError(t, repo.PutDataset(ctx, ds))

		got, err := repo.GetDataset(ctx, ds.ID)
		gt.NoError(t, err)
		got.Records[0].Status = "Modified"

		again, err := repo.GetDataset(ctx, ds.ID)
		gt.NoError(t, err)
		gt.Equal(t, again.Records[0].Status, "Closed")
	})

	t.Run("large dataset spans chunks", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()

		ctx := context.Background()
		ds := newTestDataset(t, 1001, time.Now().UTC())
		gt.NoError(t, repo.PutDataset(ctx, ds))

		got, err := repo.GetDataset(ctx, ds.ID)
		gt.NoError(t, err)
		gt.Equal(t, len(got.Records), 1001)
		gt.Equal(t, got.Records[1000].ID, types.DefectID("DEF-1000"))

		// Overwrite with fewer records
		ds.Records = ds.Records[:3]
		gt.NoError(t, repo.PutDataset(ctx, ds))

		got, err = repo.GetDataset(ctx, ds.ID)
		gt.NoError(t, err)
		gt.Equal(t, len(got.Records), 3)
	})

	t.Run("GetDataset_NotFound", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()

		_, err := repo.GetDataset(context.Background(), types.NewDatasetID())
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrDatasetNotFound))
	})

	t.Run("ListDatasets", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()

		ctx := context.Background()
		now := time.Now().UTC()
		older := newTestDataset(t, 1, now.Add(-time.Hour))
		newer := newTestDataset(t, 3, now)
		gt.NoError(t, repo.PutDataset(ctx, older))
		gt.NoError(t, repo.PutDataset(ctx, newer))

		infos, err := repo.ListDatasets(ctx)
		gt.NoError(t, err)

		olderIdx, newerIdx := -1, -1
		for i, info := range infos {
			switch info.ID {
			case older.ID:
				olderIdx = i
				gt.Equal(t, info.RecordCount, 1)
			case newer.ID:
				newerIdx = i
				gt.Equal(t, info.RecordCount, 3)
			}
		}
		gt.True(t, olderIdx >= 0)
		gt.True(t, newerIdx >= 0)
		gt.True(t, newerIdx < olderIdx)
	})

	t.Run("DeleteDataset", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()

		ctx := context.Background()
		ds := newTestDataset(t, 2, time.Now().UTC())
		gt.NoError(t, repo.PutDataset(ctx, ds))

		gt.NoError(t, repo.DeleteDataset(ctx, ds.ID))

		_, err := repo.GetDataset(ctx, ds.ID)
		gt.True(t, errors.Is(err, model.ErrDatasetNotFound))

		err = repo.DeleteDataset(ctx, ds.ID)
		gt.True(t, errors.Is(err, model.ErrDatasetNotFound))
	})

	t.Run("PutDataset rejects invalid dataset", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()

		gt.Error(t, repo.PutDataset(context.Background(), nil))
		gt.Error(t, repo.PutDataset(context.Background(), &model.Dataset{Name: "no id"}))
	})
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, func(t *testing.T) interfaces.Repository {
		return repository.NewMemory()
	})
}

func TestFirestoreRepository(t *testing.T) {
	// Skip test if Firestore test environment variables are not set
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE")

	if projectID == "" || databaseID == "" {
		t.Skip("Skipping Firestore test: TEST_FIRESTORE_PROJECT and TEST_FIRESTORE_DATABASE must be set")
	}

	testRepository(t, func(t *testing.T) interfaces.Repository {
		ctx := context.Background()
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		ctx = ctxlog.With(ctx, logger)

		// Each test gets its own collection so listings do not see other runs
		prefix := "test_" + uuid.NewString() + "_"
		repo, err := repository.NewFirestore(ctx, projectID, databaseID, repository.WithCollectionPrefix(prefix))
		gt.NoError(t, err)
		return repo
	})
}
