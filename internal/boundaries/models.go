package boundaries

// SourceConfig describes where an administrative-boundary table comes from.
// ConnectionDetails is a JSON string whose shape depends on Type, mirroring
// how callers hand over connection material.
type SourceConfig struct {
	Name              string `json:"name"`
	Type              string `json:"type"` // "csv", "postgresql" or "gpkg"
	ConnectionDetails string `json:"connection_details"`
}

// CSVConnectionParams defines the structure for CSV connection details.
type CSVConnectionParams struct {
	Filepath string `json:"filepath"`
	// GeometryColumn, when set, names a column holding hex-encoded WKB that
	// is decoded into geometry bytes on load.
	GeometryColumn string `json:"geometry_column,omitempty"`
}

// PostgresConnectionParams defines the structure for PostgreSQL connection
// details.
type PostgresConnectionParams struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Password     string `json:"password"`
	DBName       string `json:"dbname"`
	TableOrQuery string `json:"table_or_query"`
	SSLMode      string `json:"sslmode,omitempty"` // e.g. "disable", "require", "verify-full"
}

// GPKGConnectionParams defines the structure for GeoPackage connection
// details.
type GPKGConnectionParams struct {
	Filepath  string `json:"filepath"`
	TableName string `json:"table_name"`
}
