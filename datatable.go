package rewrite

import (
	"fmt"
	"sync"
)

// DataTableDescriptor names a table of structured rows produced by recipes.
type DataTableDescriptor struct {
	Name        string
	DisplayName string
	Description string
}

// RowSink receives data-table rows. Implementations must be safe for
// concurrent use; rows arrive from parallel workers.
type RowSink interface {
	InsertRow(table DataTableDescriptor, row any) error
}

// DataTable is a typed handle recipes use to emit rows of type R.
type DataTable[R any] struct {
	DataTableDescriptor
}

// NewDataTable declares a table.
func NewDataTable[R any](name, displayName, description string) *DataTable[R] {
	return &DataTable[R]{DataTableDescriptor{Name: name, DisplayName: displayName, Description: description}}
}

// InsertRow sends row to the run's sink.
func (d *DataTable[R]) InsertRow(ec *ExecutionContext, row R) error {
	if err := ec.Sink().InsertRow(d.DataTableDescriptor, row); err != nil {
		return fmt.Errorf("rewrite: insert row into %s: %w", d.Name, err)
	}
	return nil
}

// MemorySink keeps rows in memory, grouped by table name.
type MemorySink struct {
	mu     sync.Mutex
	tables map[string]DataTableDescriptor
	rows   map[string][]any
}

var _ RowSink = (*MemorySink)(nil)

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		tables: make(map[string]DataTableDescriptor),
		rows:   make(map[string][]any),
	}
}

func (s *MemorySink) InsertRow(table DataTableDescriptor, row any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table.Name] = table
	s.rows[table.Name] = append(s.rows[table.Name], row)
	return nil
}

// Rows returns a copy of the rows inserted into the named table.
func (s *MemorySink) Rows(name string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.rows[name]))
	copy(out, s.rows[name])
	return out
}

// Tables returns the descriptors of every table that received a row.
func (s *MemorySink) Tables() []DataTableDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DataTableDescriptor, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	return out
}
