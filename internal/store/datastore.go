package store

// DataStore is the write side shared by Store (direct SQLite) and
// BatchedStore (in-memory buffering while a run's workers are busy).
type DataStore interface {
	InsertRun(run *Run) error
	InsertSourceResult(r *SourceResult) (int64, error)
	InsertDataTableRow(row *DataTableRow) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
