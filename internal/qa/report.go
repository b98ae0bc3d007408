package qa

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// writeNameReport writes the duplicate-name report to logFile: a header
// line, a separator, then one section per group listing the offending rows'
// name and parent columns. The report is written to a temp file in the
// target directory and renamed into place so a failed write never corrupts a
// pre-existing report.
func writeNameReport(logFile string, nameCol string, parentCol string, groups []DuplicateNameGroup) error {
	dir := filepath.Dir(logFile)
	tmp, err := os.CreateTemp(dir, filepath.Base(logFile)+".tmp-*")
	if err != nil {
		return &FileWriteError{Path: logFile, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := renderNameReport(tmp, nameCol, parentCol, groups); err != nil {
		tmp.Close()
		return &FileWriteError{Path: logFile, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &FileWriteError{Path: logFile, Err: err}
	}
	if err := os.Rename(tmp.Name(), logFile); err != nil {
		return &FileWriteError{Path: logFile, Err: err}
	}
	return nil
}

func renderNameReport(w io.Writer, nameCol string, parentCol string, groups []DuplicateNameGroup) error {
	if _, err := fmt.Fprintf(w, "Checking for duplicate names in %s grouped by %s\n", nameCol, parentCol); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 50)); err != nil {
		return err
	}
	for _, group := range groups {
		if _, err := fmt.Fprintf(w, "Duplicates found in %s for %s:\n", group.Parent, nameCol); err != nil {
			return err
		}
		for _, row := range group.Rows {
			if _, err := fmt.Fprintf(w, "  %s = %s, %s = %s\n", nameCol, cellString(row, nameCol), parentCol, cellString(row, parentCol)); err != nil {
				return err
			}
		}
	}
	return nil
}
