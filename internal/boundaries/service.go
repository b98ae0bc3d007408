// Package boundaries loads administrative-boundary tables from their common
// container formats (CSV, PostgreSQL, GeoPackage) into the tabular form the
// qa helpers operate on, and converts legacy sources into GeoPackage.
package boundaries

import (
	"database/sql"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"

	"example.com/geoprep/internal/qa"
)

// LoadBoundaries fetches an administrative-boundary table from the
// configured source.
func LoadBoundaries(cfg SourceConfig) (*qa.Table, error) {
	switch strings.ToLower(cfg.Type) {
	case "csv":
		var params CSVConnectionParams
		if err := json.Unmarshal([]byte(cfg.ConnectionDetails), &params); err != nil {
			return nil, fmt.Errorf("failed to parse CSV connection details for source %q: %w", cfg.Name, err)
		}
		if params.Filepath == "" {
			return nil, fmt.Errorf("filepath is required for CSV source %q", cfg.Name)
		}
		return LoadCSV(params.Filepath, params.GeometryColumn)

	case "postgresql":
		var params PostgresConnectionParams
		if err := json.Unmarshal([]byte(cfg.ConnectionDetails), &params); err != nil {
			return nil, fmt.Errorf("failed to parse PostgreSQL connection details for source %q: %w", cfg.Name, err)
		}
		return LoadPostgres(params)

	case "gpkg":
		var params GPKGConnectionParams
		if err := json.Unmarshal([]byte(cfg.ConnectionDetails), &params); err != nil {
			return nil, fmt.Errorf("failed to parse GeoPackage connection details for source %q: %w", cfg.Name, err)
		}
		return LoadGeoPackage(params.Filepath, params.TableName)
	}
	return nil, fmt.Errorf("unsupported boundary source type: %s. Only CSV, PostgreSQL and GPKG are currently supported", cfg.Type)
}

// LoadCSV reads a delimited boundary file. The header row supplies the
// column order; short rows are padded with empty cells. When geometryCol is
// set, its hex-encoded WKB cells are decoded into geometry bytes.
func LoadCSV(path string, geometryCol string) (*qa.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			log.Printf("CSV file %s is empty.", path)
			return &qa.Table{}, nil
		}
		return nil, fmt.Errorf("failed to read header row from CSV file %s: %w", path, err)
	}

	table := &qa.Table{Columns: headers, Rows: make([]qa.Row, 0)}
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read row from CSV file %s: %w", path, err)
		}

		row := make(qa.Row, len(headers))
		for i, header := range headers {
			if i >= len(record) {
				row[header] = ""
				continue
			}
			if header == geometryCol && record[i] != "" {
				wkb, err := hex.DecodeString(record[i])
				if err != nil {
					return nil, fmt.Errorf("failed to decode hex geometry in CSV file %s: %w", path, err)
				}
				row[header] = wkb
				continue
			}
			row[header] = record[i]
		}
		table.Rows = append(table.Rows, row)
	}
	log.Printf("Loaded %d boundary rows from CSV file %s.", len(table.Rows), path)
	return table, nil
}

// LoadPostgres reads a boundary table (or the result of a full query) from a
// PostgreSQL database.
func LoadPostgres(params PostgresConnectionParams) (*qa.Table, error) {
	if params.Host == "" || params.Port == 0 || params.User == "" || params.DBName == "" || params.TableOrQuery == "" {
		return nil, fmt.Errorf("missing required PostgreSQL connection parameters (host, port, user, dbname, table_or_query)")
	}
	if params.SSLMode == "" {
		params.SSLMode = "disable"
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	query := params.TableOrQuery
	if !strings.Contains(query, " ") && !strings.HasPrefix(strings.ToUpper(query), "SELECT") {
		query = fmt.Sprintf("SELECT * FROM %q", params.TableOrQuery)
	}
	log.Printf("Loading boundaries from PostgreSQL %s:%d/%s: %s", params.Host, params.Port, params.DBName, query)

	table, err := scanRows(db, query)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d boundary rows from PostgreSQL.", len(table.Rows))
	return table, nil
}

// LoadGeoPackage reads a feature table back out of a GeoPackage container.
func LoadGeoPackage(path string, tableName string) (*qa.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open GeoPackage %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoPackage %s: %w", path, err)
	}
	defer db.Close()

	table, err := scanRows(db, fmt.Sprintf("SELECT * FROM %q", tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to read feature table %s from %s: %w", tableName, path, err)
	}
	log.Printf("Loaded %d boundary rows from GeoPackage %s.", len(table.Rows), path)
	return table, nil
}

// scanRows runs a query and scans the result into a qa.Table, keeping the
// driver's column order. Text columns arriving as []byte are converted to
// string; BLOB columns (geometry) stay as bytes.
func scanRows(db *sql.DB, query string) (*qa.Table, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get result columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get result column types: %w", err)
	}

	table := &qa.Table{Columns: columns, Rows: make([]qa.Row, 0)}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(qa.Row, len(columns))
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok && !isBinaryType(types[i].DatabaseTypeName()) {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return table, nil
}

// isBinaryType reports whether a driver column type carries raw bytes that
// must not be coerced to string (geometry blobs in particular).
func isBinaryType(typeName string) bool {
	switch strings.ToUpper(typeName) {
	case "BLOB", "GEOMETRY", "BYTEA":
		return true
	}
	return false
}

// EnsureGeoPackage converts a boundary source file into a GeoPackage under
// outFolder, skipping the write when the target already exists. Either way
// the boundary table is loaded and returned. CSV sources are converted; a
// GeoPackage source is loaded as-is from the existing target.
func EnsureGeoPackage(cfg SourceConfig, sourcePath string, outFolder string, writer qa.BoundaryWriter) (*qa.Table, error) {
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	outFile := filepath.Join(outFolder, strings.TrimSuffix(base, ext)+".gpkg")

	if _, err := os.Stat(outFile); err == nil {
		log.Printf("%s already exists, skipping write.", outFile)
		return LoadGeoPackage(outFile, "boundaries")
	}

	table, err := LoadBoundaries(cfg)
	if err != nil {
		return nil, err
	}
	if err := writer.WriteTable(table, outFile); err != nil {
		return nil, err
	}
	log.Printf("Wrote %s", outFile)
	return table, nil
}
