package store

import (
	"errors"
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Every result and row is attributed to the
// batch's run, and fake (negative) IDs are replaced by real ones.
//
// Insert order respects FK dependencies:
//  1. Run
//  2. SourceResults (depend on run_id)
//  3. Rows (depend on run_id)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()
	if batch.Run == nil {
		return errors.New("commit batch: no run recorded")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	// 1. Run
	if err := insertRunTx(tx, batch.Run); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	// 2. SourceResults
	for i := range batch.SourceResults {
		r := &batch.SourceResults[i]
		r.RunID = batch.Run.ID
		if _, err := insertSourceResultTx(tx, r); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	// 3. Rows
	for i := range batch.Rows {
		row := &batch.Rows[i]
		row.RunID = batch.Run.ID
		if _, err := insertDataTableRowTx(tx, row); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	return tx.Commit()
}
