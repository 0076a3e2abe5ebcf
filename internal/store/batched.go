package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jward/rewrite"
)

// BatchedStore buffers everything a run records in memory using fake
// (negative) IDs, and is committed to SQLite in one transaction once the run
// is over. It is the run's data-table sink, so recipes running on parallel
// workers never wait on the database.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	store *Store
	mu    sync.Mutex

	Run           *Run
	SourceResults []SourceResult
	Rows          []DataTableRow

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time checks: *BatchedStore is a DataStore and a row sink.
var (
	_ DataStore       = (*BatchedStore)(nil)
	_ rewrite.RowSink = (*BatchedStore)(nil)
)

// NewBatchedStore creates a BatchedStore that commits to s.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertRun(run *Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Run = run
	return nil
}

func (b *BatchedStore) InsertSourceResult(r *SourceResult) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	r.ID = fakeID
	b.SourceResults = append(b.SourceResults, *r)
	return fakeID, nil
}

func (b *BatchedStore) InsertDataTableRow(row *DataTableRow) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	row.ID = fakeID
	b.Rows = append(b.Rows, *row)
	return fakeID, nil
}

// InsertRow buffers a data-table row as JSON.
func (b *BatchedStore) InsertRow(table rewrite.DataTableDescriptor, row any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("store: encode %s row: %w", table.Name, err)
	}
	_, err = b.InsertDataTableRow(&DataTableRow{TableName: table.Name, RowJSON: string(data)})
	return err
}

// RecordResults buffers one SourceResult per file of res. render prints a
// source file so its content can be hashed.
func (b *BatchedStore) RecordResults(res *rewrite.RunResult, render func(rewrite.SourceFile) string) error {
	for _, r := range res.Results {
		sr := &SourceResult{
			RunID:   res.ID,
			Path:    r.Path(),
			Status:  statusOf(r),
			Recipes: r.Recipes,
		}
		if r.Err != nil {
			sr.Error = r.Err.Error()
		}
		if r.Before != nil {
			sr.BeforeHash = ContentHash(render(r.Before))
		}
		if r.After != nil {
			sr.AfterHash = ContentHash(render(r.After))
		}
		if _, err := b.InsertSourceResult(sr); err != nil {
			return err
		}
	}
	return nil
}

func statusOf(r rewrite.Result) Status {
	switch {
	case r.Err != nil:
		return StatusFailed
	case r.Before == nil:
		return StatusGenerated
	case r.After == nil:
		return StatusDeleted
	case r.Changed():
		return StatusChanged
	default:
		return StatusUnchanged
	}
}

// Commit writes the batch to the underlying Store.
func (b *BatchedStore) Commit() error {
	return b.store.CommitBatch(b)
}
