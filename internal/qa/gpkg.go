package qa

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registers as "sqlite"
)

const (
	gpkgApplicationID = 0x47504B47 // "GPKG"
	gpkgUserVersion   = 10300      // GeoPackage 1.3.0
)

// GeoPackageWriter writes tables to a GeoPackage container (driver "GPKG"),
// a single-file SQLite database carrying the gpkg_* metadata tables and one
// feature table. Attribute columns are written as TEXT; the row value under
// GeometryColumn, when it is WKB bytes, is wrapped in the standard
// GeoPackage binary header.
type GeoPackageWriter struct {
	TableName      string
	GeometryColumn string
	SRID           int32
}

// NewGeoPackageWriter creates a writer with the conventional defaults:
// feature table "boundaries", geometry under "geometry", WGS 84.
func NewGeoPackageWriter() *GeoPackageWriter {
	return &GeoPackageWriter{TableName: "boundaries", GeometryColumn: "geometry", SRID: 4326}
}

// WriteTable writes the table to a GeoPackage at path. The container is
// built in a temp file next to the target and renamed into place, so a
// failed write never corrupts a pre-existing file.
func (w *GeoPackageWriter) WriteTable(table *Table, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	db, err := sql.Open("sqlite", tmpPath)
	if err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	if err := w.writeTo(db, table); err != nil {
		db.Close()
		return &FileWriteError{Path: path, Err: err}
	}
	if err := db.Close(); err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	return nil
}

// writeTo builds the GeoPackage schema and bulk-inserts the rows on an open
// database handle.
func (w *GeoPackageWriter) writeTo(db *sql.DB, table *Table) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA application_id = %d", gpkgApplicationID)); err != nil {
		return fmt.Errorf("failed to set application_id pragma: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", gpkgUserVersion)); err != nil {
		return fmt.Errorf("failed to set user_version pragma: %w", err)
	}

	attrCols := w.attributeColumns(table)
	schemaStatements := []string{
		`CREATE TABLE IF NOT EXISTS gpkg_spatial_ref_sys (
			srs_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL PRIMARY KEY,
			organization TEXT NOT NULL,
			organization_coordsys_id INTEGER NOT NULL,
			definition TEXT NOT NULL,
			description TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS gpkg_contents (
			table_name TEXT NOT NULL PRIMARY KEY,
			data_type TEXT NOT NULL,
			identifier TEXT UNIQUE,
			description TEXT DEFAULT '',
			last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
			srs_id INTEGER,
			CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
		);`,
		`CREATE TABLE IF NOT EXISTS gpkg_geometry_columns (
			table_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			geometry_type_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL,
			z TINYINT NOT NULL,
			m TINYINT NOT NULL,
			CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
		);`,
		w.featureTableDDL(attrCols),
	}
	for i, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement #%d: %w", i+1, err)
		}
	}

	seedStatements := []string{
		fmt.Sprintf(`INSERT INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition) VALUES
			('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined'),
			('Undefined geographic SRS', 0, 'NONE', 0, 'undefined'),
			('WGS 84 geodetic', %d, 'EPSG', %d, 'GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]')`,
			w.SRID, w.SRID),
		fmt.Sprintf(`INSERT INTO gpkg_contents (table_name, data_type, identifier, srs_id) VALUES ('%s', 'features', '%s', %d)`,
			w.TableName, w.TableName, w.SRID),
		fmt.Sprintf(`INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m) VALUES ('%s', 'geom', 'GEOMETRY', %d, 0, 0)`,
			w.TableName, w.SRID),
	}
	for _, stmt := range seedStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to seed GeoPackage metadata: %w", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(w.insertSQL(attrCols))
	if err != nil {
		return fmt.Errorf("failed to prepare feature insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range table.Rows {
		args := make([]interface{}, 0, len(attrCols)+1)
		args = append(args, w.geometryBlob(row))
		for _, col := range attrCols {
			if row.isNull(col) {
				args = append(args, nil)
			} else {
				args = append(args, cellString(row, col))
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert feature #%d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func (w *GeoPackageWriter) attributeColumns(table *Table) []string {
	cols := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		if c != w.GeometryColumn {
			cols = append(cols, c)
		}
	}
	return cols
}

func (w *GeoPackageWriter) featureTableDDL(attrCols []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %q (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom GEOMETRY", w.TableName)
	for _, col := range attrCols {
		fmt.Fprintf(&b, ", %q TEXT", col)
	}
	b.WriteString(");")
	return b.String()
}

func (w *GeoPackageWriter) insertSQL(attrCols []string) string {
	cols := []string{"geom"}
	placeholders := []string{"?"}
	for _, col := range attrCols {
		cols = append(cols, fmt.Sprintf("%q", col))
		placeholders = append(placeholders, "?")
	}
	return fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", w.TableName,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// geometryBlob wraps the row's WKB geometry in the GeoPackage binary header
// (magic "GP", version 0, little-endian flags, srs_id). Rows without WKB
// geometry get a NULL geom.
func (w *GeoPackageWriter) geometryBlob(row Row) interface{} {
	wkb, ok := row[w.GeometryColumn].([]byte)
	if !ok || len(wkb) == 0 {
		return nil
	}
	header := make([]byte, 8)
	header[0] = 'G'
	header[1] = 'P'
	header[2] = 0    // version
	header[3] = 0x01 // flags: little-endian, no envelope
	binary.LittleEndian.PutUint32(header[4:], uint32(w.SRID))
	return append(header, wkb...)
}
