package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/interfaces"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Collection names
	datasetsCollection = "datasets"
	chunksCollection   = "chunks"

	// Records per chunk document. Keeps each document well under the 1 MiB limit.
	recordsPerChunk = 400

	// Transactions are limited to 500 writes, one of them being the dataset header
	maxChunks = 499
)

// Firestore implements Repository interface with Firestore
type Firestore struct {
	client   *firestore.Client
	datasets string
}

// FirestoreOption is a functional option for configuring Firestore
type FirestoreOption func(*Firestore)

// WithCollectionPrefix prefixes the datasets collection name, so that several environments
// can share one database
func WithCollectionPrefix(prefix string) FirestoreOption {
	return func(f *Firestore) {
		f.datasets = prefix + datasetsCollection
	}
}

// datasetDoc is the dataset header document. Records are stored in the chunks subcollection.
type datasetDoc struct {
	ID          string    `firestore:"id"`
	Name        string    `firestore:"name"`
	Source      string    `firestore:"source"`
	ImportedAt  time.Time `firestore:"imported_at"`
	RecordCount int       `firestore:"record_count"`
	ChunkCount  int       `firestore:"chunk_count"`
}

type chunkDoc struct {
	Index   int         `firestore:"index"`
	Records []recordDoc `firestore:"records"`
}

type recordDoc struct {
	ID            string     `firestore:"id"`
	DiscoveryDate time.Time  `firestore:"discovery_date"`
	ClosedDate    *time.Time `firestore:"closed_date"`
	Status        string     `firestore:"status"`
	Severity      string     `firestore:"severity"`
	AppArea       string     `firestore:"app_area"`
	RootCause     string     `firestore:"root_cause"`
	FixCost       float64    `firestore:"fix_cost"`
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...FirestoreOption) (interfaces.Repository, error) {
	logger := ctxlog.From(ctx)

	// Create client with database ID
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	repo := &Firestore{
		client:   client,
		datasets: datasetsCollection,
	}
	for _, opt := range opts {
		opt(repo)
	}

	// Test connection by attempting to read from a collection
	_, err = client.Collection(repo.datasets).Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		if status.Code(err) == codes.PermissionDenied || status.Code(err) == codes.Unauthenticated {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to connect to firestore project",
				goerr.V("firestore error code", status.Code(err).String()),
			)
		}
		logger.Debug("Firestore connection test returned error (may be empty collection)",
			"error", err,
			"errorCode", status.Code(err).String(),
		)
	}

	logger.Info("Firestore repository initialized successfully",
		"projectID", projectID,
		"databaseID", databaseID,
		"collection", repo.datasets,
	)

	return repo, nil
}

// PutDataset saves a dataset header and its record chunks in one transaction
func (f *Firestore) PutDataset(ctx context.Context, dataset *model.Dataset) error {
	if dataset == nil {
		return goerr.New("dataset is nil")
	}
	if err := dataset.Validate(); err != nil {
		return goerr.Wrap(err, "invalid dataset")
	}

	chunks := splitRecords(dataset.Records)
	if len(chunks) > maxChunks {
		return goerr.New("dataset is too large to store",
			goerr.V("id", dataset.ID),
			goerr.V("records", len(dataset.Records)))
	}

	header := datasetDoc{
		ID:          dataset.ID.String(),
		Name:        dataset.Name,
		Source:      dataset.Source,
		ImportedAt:  dataset.ImportedAt,
		RecordCount: len(dataset.Records),
		ChunkCount:  len(chunks),
	}
	headerRef := f.client.Collection(f.datasets).Doc(dataset.ID.String())

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// Reads must happen before writes: find how many chunks a previous version left behind
		prevChunks := 0
		snap, err := tx.Get(headerRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to read existing dataset")
		}
		if err == nil {
			var prev datasetDoc
			if err := snap.DataTo(&prev); err != nil {
				return goerr.Wrap(err, "failed to decode existing dataset")
			}
			prevChunks = prev.ChunkCount
		}

		if err := tx.Set(headerRef, header); err != nil {
			return goerr.Wrap(err, "failed to set dataset header")
		}
		for i, chunk := range chunks {
			if err := tx.Set(chunkRef(headerRef, i), chunk); err != nil {
				return goerr.Wrap(err, "failed to set record chunk", goerr.V("chunk", i))
			}
		}
		for i := len(chunks); i < prevChunks; i++ {
			if err := tx.Delete(chunkRef(headerRef, i)); err != nil {
				return goerr.Wrap(err, "failed to delete stale chunk", goerr.V("chunk", i))
			}
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save dataset to firestore", goerr.V("id", dataset.ID))
	}

	return nil
}

// GetDataset retrieves a dataset and all its records by ID
func (f *Firestore) GetDataset(ctx context.Context, id types.DatasetID) (*model.Dataset, error) {
	if id == "" {
		return nil, goerr.New("dataset ID is empty")
	}

	headerRef := f.client.Collection(f.datasets).Doc(id.String())
	doc, err := headerRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrDatasetNotFound, "failed to get dataset", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get dataset from firestore", goerr.V("id", id))
	}

	var header datasetDoc
	if err := doc.DataTo(&header); err != nil {
		return nil, goerr.Wrap(err, "failed to decode dataset", goerr.V("id", id))
	}

	records := make([]model.DefectRecord, 0, header.RecordCount)
	iter := headerRef.Collection(chunksCollection).OrderBy("index", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	for {
		chunkSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate record chunks", goerr.V("id", id))
		}

		var chunk chunkDoc
		if err := chunkSnap.DataTo(&chunk); err != nil {
			return nil, goerr.Wrap(err, "failed to decode record chunk",
				goerr.V("id", id),
				goerr.V("chunk", chunkSnap.Ref.ID))
		}
		for _, r := range chunk.Records {
			records = append(records, r.toModel())
		}
	}

	return &model.Dataset{
		ID:         types.DatasetID(header.ID),
		Name:       header.Name,
		Source:     header.Source,
		ImportedAt: header.ImportedAt,
		Records:    records,
	}, nil
}

// ListDatasets lists dataset headers, newest import first
func (f *Firestore) ListDatasets(ctx context.Context) ([]*model.DatasetInfo, error) {
	iter := f.client.Collection(f.datasets).OrderBy("imported_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var infos []*model.DatasetInfo
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate datasets")
		}

		var header datasetDoc
		if err := doc.DataTo(&header); err != nil {
			return nil, goerr.Wrap(err, "failed to decode dataset", goerr.V("docID", doc.Ref.ID))
		}
		infos = append(infos, &model.DatasetInfo{
			ID:          types.DatasetID(header.ID),
			Name:        header.Name,
			Source:      header.Source,
			ImportedAt:  header.ImportedAt,
			RecordCount: header.RecordCount,
		})
	}

	sortDatasetInfos(infos)
	return infos, nil
}

// DeleteDataset deletes a dataset header and its chunks
func (f *Firestore) DeleteDataset(ctx context.Context, id types.DatasetID) error {
	if id == "" {
		return goerr.New("dataset ID is empty")
	}

	headerRef := f.client.Collection(f.datasets).Doc(id.String())
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(headerRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrDatasetNotFound, "failed to delete dataset", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to read dataset")
		}

		var header datasetDoc
		if err := snap.DataTo(&header); err != nil {
			return goerr.Wrap(err, "failed to decode dataset")
		}

		for i := 0; i < header.ChunkCount; i++ {
			if err := tx.Delete(chunkRef(headerRef, i)); err != nil {
				return goerr.Wrap(err, "failed to delete record chunk", goerr.V("chunk", i))
			}
		}
		return tx.Delete(headerRef)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete dataset from firestore", goerr.V("id", id))
	}

	return nil
}

// Close closes the Firestore client
func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

func chunkRef(headerRef *firestore.DocumentRef, index int) *firestore.DocumentRef {
	return headerRef.Collection(chunksCollection).Doc(fmt.Sprintf("%05d", index))
}

func splitRecords(records []model.DefectRecord) []chunkDoc {
	var chunks []chunkDoc
	for start := 0; start < len(records); start += recordsPerChunk {
		end := min(start+recordsPerChunk, len(records))
		chunk := chunkDoc{Index: len(chunks), Records: make([]recordDoc, 0, end-start)}
		for _, r := range records[start:end] {
			chunk.Records = append(chunk.Records, newRecordDoc(r))
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func newRecordDoc(r model.DefectRecord) recordDoc {
	doc := recordDoc{
		ID:            r.ID.String(),
		DiscoveryDate: r.DiscoveryDate.Time(),
		Status:        r.Status,
		Severity:      r.Severity,
		AppArea:       r.AppArea,
		RootCause:     r.RootCause,
		FixCost:       r.FixCost,
	}
	if !r.IsOpen() {
		closed := r.ClosedDate.Time()
		doc.ClosedDate = &closed
	}
	return doc
}

func (d recordDoc) toModel() model.DefectRecord {
	r := model.DefectRecord{
		ID:            types.DefectID(d.ID),
		DiscoveryDate: types.DateOf(d.DiscoveryDate.UTC()),
		Status:        d.Status,
		Severity:      d.Severity,
		AppArea:       d.AppArea,
		RootCause:     d.RootCause,
		FixCost:       d.FixCost,
	}
	if d.ClosedDate != nil && !d.ClosedDate.IsZero() {
		closed := types.DateOf(d.ClosedDate.UTC())
		r.ClosedDate = &closed
	}
	return r
}
