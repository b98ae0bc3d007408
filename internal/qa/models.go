package qa

import "fmt"

// Row is a single administrative-boundary record with arbitrary columns.
// A missing key or a nil value both count as null. Geometry, when present,
// travels as WKB bytes under the table's geometry column.
type Row map[string]interface{}

// Table is an ordered tabular dataset: Columns preserves the source column
// order (needed for feature-table DDL and report output), Rows the source
// row order.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ColumnPair names a primary column and its fallback for primary-key
// construction. The output column name is derived from the fallback name.
type ColumnPair struct {
	Primary  string `json:"primary"`
	Fallback string `json:"fallback"`
}

// DuplicateKeyResult is the structured outcome of a duplicate-key check.
// DuplicateCount counts second and later occurrences of each duplicated key;
// Rows holds every occurrence of every duplicated key, first ones included.
type DuplicateKeyResult struct {
	RunID          string `json:"run_id"`
	Column         string `json:"column"`
	DuplicateCount int    `json:"duplicate_count"`
	Rows           []Row  `json:"rows,omitempty"`
	OutFile        string `json:"out_file,omitempty"`
}

// DuplicateNameGroup reports duplicated names within one parent group.
type DuplicateNameGroup struct {
	Parent string `json:"parent"`
	Rows   []Row  `json:"rows"`
}

// FileWriteError reports an output path that could not be written.
type FileWriteError struct {
	Path string
	Err  error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *FileWriteError) Unwrap() error { return e.Err }

// isNull reports whether a row has no usable value for a column.
func (r Row) isNull(col string) bool {
	v, ok := r[col]
	return !ok || v == nil
}

// HasColumn reports whether the table declares the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
