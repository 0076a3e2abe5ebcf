package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for recorded recipe runs.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              TEXT PRIMARY KEY,
  recipe          TEXT NOT NULL,
  started_at      TIMESTAMP,
  finished_at     TIMESTAMP,
  cycles          INTEGER NOT NULL DEFAULT 1,
  dry_run         BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS source_results (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(id),
  path            TEXT NOT NULL,
  status          TEXT NOT NULL,
  recipes         TEXT,
  error           TEXT,
  before_hash     TEXT,
  after_hash      TEXT
);

CREATE TABLE IF NOT EXISTS data_table_rows (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(id),
  table_name      TEXT NOT NULL,
  row_json        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_source_results_run ON source_results(run_id);
CREATE INDEX IF NOT EXISTS idx_source_results_path ON source_results(path);
CREATE INDEX IF NOT EXISTS idx_data_table_rows_run_table ON data_table_rows(run_id, table_name);
`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// --- Run operations ---

func (s *Store) InsertRun(run *Run) error {
	return insertRunTx(s.db, run)
}

func insertRunTx(tx execer, run *Run) error {
	_, err := tx.Exec(
		"INSERT INTO runs (id, recipe, started_at, finished_at, cycles, dry_run) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID, run.Recipe, run.StartedAt, run.FinishedAt, run.Cycles, run.DryRun,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// RunByID returns the run with the given id, or nil when there is none.
func (s *Store) RunByID(id string) (*Run, error) {
	r := &Run{}
	err := s.db.QueryRow(
		"SELECT id, recipe, started_at, finished_at, cycles, dry_run FROM runs WHERE id = ?", id,
	).Scan(&r.ID, &r.Recipe, &r.StartedAt, &r.FinishedAt, &r.Cycles, &r.DryRun)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// Runs returns the most recent runs first, at most limit of them (all when
// limit <= 0).
func (s *Store) Runs(limit int) ([]*RunSummary, error) {
	query := `SELECT r.id, r.recipe, r.started_at, r.finished_at, r.cycles, r.dry_run,
  COUNT(sr.id),
  COALESCE(SUM(CASE WHEN sr.status IN ('changed', 'generated', 'deleted') THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN sr.status = 'failed' THEN 1 ELSE 0 END), 0)
FROM runs r LEFT JOIN source_results sr ON sr.run_id = r.id
GROUP BY r.id
ORDER BY r.started_at DESC, r.id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()
	var out []*RunSummary
	for rows.Next() {
		r := &RunSummary{}
		if err := rows.Scan(&r.ID, &r.Recipe, &r.StartedAt, &r.FinishedAt, &r.Cycles, &r.DryRun,
			&r.Files, &r.Changed, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun transactionally removes a run and everything recorded for it.
func (s *Store) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM data_table_rows WHERE run_id = ?",
		"DELETE FROM source_results WHERE run_id = ?",
		"DELETE FROM runs WHERE id = ?",
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("delete run %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// --- Source result operations ---

func (s *Store) InsertSourceResult(r *SourceResult) (int64, error) {
	return insertSourceResultTx(s.db, r)
}

func insertSourceResultTx(tx execer, r *SourceResult) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO source_results (run_id, path, status, recipes, error, before_hash, after_hash) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.RunID, r.Path, string(r.Status), marshalRecipes(r.Recipes), r.Error, r.BeforeHash, r.AfterHash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert source result %s: %w", r.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return id, nil
}

// SourceResults returns the results of a run in the order they were recorded.
func (s *Store) SourceResults(runID string) ([]*SourceResult, error) {
	rows, err := s.db.Query(
		"SELECT id, run_id, path, status, recipes, error, before_hash, after_hash FROM source_results WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("source results: %w", err)
	}
	defer rows.Close()
	var out []*SourceResult
	for rows.Next() {
		r := &SourceResult{}
		var status, recipes string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Path, &status, &recipes, &r.Error, &r.BeforeHash, &r.AfterHash); err != nil {
			return nil, fmt.Errorf("scan source result: %w", err)
		}
		r.Status = Status(status)
		r.Recipes = unmarshalRecipes(recipes)
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Data table operations ---

func (s *Store) InsertDataTableRow(row *DataTableRow) (int64, error) {
	return insertDataTableRowTx(s.db, row)
}

func insertDataTableRowTx(tx execer, row *DataTableRow) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO data_table_rows (run_id, table_name, row_json) VALUES (?, ?, ?)",
		row.RunID, row.TableName, row.RowJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("insert row into %s: %w", row.TableName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	row.ID = id
	return id, nil
}

// DataTableRows returns the rows a run recorded, restricted to one table
// unless table is empty.
func (s *Store) DataTableRows(runID, table string) ([]*DataTableRow, error) {
	query := "SELECT id, run_id, table_name, row_json FROM data_table_rows WHERE run_id = ?"
	args := []any{runID}
	if table != "" {
		query += " AND table_name = ?"
		args = append(args, table)
	}
	rows, err := s.db.Query(query+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("data table rows: %w", err)
	}
	defer rows.Close()
	var out []*DataTableRow
	for rows.Next() {
		r := &DataTableRow{}
		if err := rows.Scan(&r.ID, &r.RunID, &r.TableName, &r.RowJSON); err != nil {
			return nil, fmt.Errorf("scan data table row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
