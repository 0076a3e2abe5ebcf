package store

import "time"

// Status is what a run did to one source file.
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusChanged   Status = "changed"
	StatusGenerated Status = "generated"
	StatusDeleted   Status = "deleted"
	StatusFailed    Status = "failed"
)

type Run struct {
	ID         string
	Recipe     string
	StartedAt  time.Time
	FinishedAt time.Time
	Cycles     int
	DryRun     bool
}

// RunSummary is a run with per-status file counts.
type RunSummary struct {
	Run
	Files   int
	Changed int
	Failed  int
}

type SourceResult struct {
	ID         int64
	RunID      string
	Path       string
	Status     Status
	Recipes    []string
	Error      string
	BeforeHash string
	AfterHash  string
}

type DataTableRow struct {
	ID        int64
	RunID     string
	TableName string
	// RowJSON is the row encoded as a JSON object.
	RowJSON string
}
