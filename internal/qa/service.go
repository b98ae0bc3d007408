// Package qa provides data-quality helpers for administrative-boundary
// tables: primary-key construction by column coalescing, duplicate-key
// detection with a GeoPackage export of the offending rows, and per-group
// duplicate-name reports. Every helper operates exclusively on its passed-in
// arguments and returns structured results; surfacing them is the caller's
// concern.
package qa

import (
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
)

// BoundaryWriter defines the interface for the geospatial sink duplicate
// rows are exported to. This allows for easier testing and decoupling.
type BoundaryWriter interface {
	WriteTable(table *Table, path string) error
}

// QAService runs quality checks on administrative-boundary tables.
type QAService struct {
	writer BoundaryWriter
}

// NewQAService creates a new QAService writing duplicate exports through the
// given boundary writer.
func NewQAService(writer BoundaryWriter) *QAService {
	return &QAService{writer: writer}
}

// MergeIDColumns builds primary-key columns by coalescing the column pairs in
// colDefs. For each pair the output column name is the fallback name with its
// last character replaced by "c"; the output value is the primary column's
// value, falling back to the fallback column's value where the primary is
// null. dropOrig removes both source columns afterwards. The table is
// mutated and returned. Pairs are independent; if two pairs derive the same
// output name the last one wins.
func MergeIDColumns(table *Table, colDefs []ColumnPair, dropOrig bool) (*Table, error) {
	for _, def := range colDefs {
		if def.Fallback == "" {
			return nil, fmt.Errorf("column pair (%q, %q) has no fallback column to derive the output name from", def.Primary, def.Fallback)
		}
		outCol := def.Fallback[:len(def.Fallback)-1] + "c"

		for _, row := range table.Rows {
			if row.isNull(def.Primary) {
				row[outCol] = row[def.Fallback]
			} else {
				row[outCol] = row[def.Primary]
			}
		}
		if !table.HasColumn(outCol) {
			table.Columns = append(table.Columns, outCol)
		}
		if dropOrig {
			table.dropColumns(def.Primary, def.Fallback)
		}
	}
	return table, nil
}

func (t *Table) dropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	t.Columns = kept
	for _, row := range t.Rows {
		for _, n := range names {
			delete(row, n)
		}
	}
}

// CheckDuplicates counts duplicate values of idCol in the table. If any are
// found, every row participating in a duplicate group (all occurrences, not
// just the second and later ones) is exported through the boundary writer to
// outFile, and the same rows are returned in the result.
func (s *QAService) CheckDuplicates(table *Table, idCol string, outFile string) (*DuplicateKeyResult, error) {
	counts := make(map[string]int)
	for _, row := range table.Rows {
		counts[cellString(row, idCol)]++
	}

	result := &DuplicateKeyResult{RunID: uuid.New().String(), Column: idCol}
	for _, n := range counts {
		if n > 1 {
			result.DuplicateCount += n - 1
		}
	}
	log.Printf("%s duplicates: %d", idCol, result.DuplicateCount)
	if result.DuplicateCount == 0 {
		return result, nil
	}

	for _, row := range table.Rows {
		if counts[cellString(row, idCol)] > 1 {
			result.Rows = append(result.Rows, row)
		}
	}
	dupTable := &Table{Columns: table.Columns, Rows: result.Rows}
	if err := s.writer.WriteTable(dupTable, outFile); err != nil {
		return nil, fmt.Errorf("failed to export duplicate %s rows: %w", idCol, err)
	}
	result.OutFile = outFile
	log.Printf("Wrote %d duplicate %s rows to %s", len(result.Rows), idCol, outFile)
	return result, nil
}

// EvaluateDuplicateNames groups rows by parentCol and detects duplicated
// values of nameCol within each group. Groups containing duplicates are
// returned in sorted parent order and written as a human-readable report to
// logFile; groups without duplicates produce no output.
func (s *QAService) EvaluateDuplicateNames(table *Table, nameCol string, parentCol string, logFile string) ([]DuplicateNameGroup, error) {
	byParent := make(map[string][]Row)
	for _, row := range table.Rows {
		parent := cellString(row, parentCol)
		byParent[parent] = append(byParent[parent], row)
	}

	parents := make([]string, 0, len(byParent))
	for parent := range byParent {
		parents = append(parents, parent)
	}
	sort.Strings(parents)

	var groups []DuplicateNameGroup
	for _, parent := range parents {
		rows := byParent[parent]
		nameCounts := make(map[string]int, len(rows))
		for _, row := range rows {
			nameCounts[cellString(row, nameCol)]++
		}

		var offending []Row
		for _, row := range rows {
			if nameCounts[cellString(row, nameCol)] > 1 {
				offending = append(offending, row)
			}
		}
		if len(offending) > 0 {
			groups = append(groups, DuplicateNameGroup{Parent: parent, Rows: offending})
		}
	}

	if err := writeNameReport(logFile, nameCol, parentCol, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// cellString renders a cell for grouping and report output. Null cells
// render as the empty string so they group together, matching how missing
// keys behave in the source data.
func cellString(row Row, col string) string {
	if row.isNull(col) {
		return ""
	}
	return fmt.Sprintf("%v", row[col])
}
