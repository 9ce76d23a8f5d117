// Package migrations embeds SQL migration files, one directory per dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	DirPostgres = "postgres"
	DirSQLite   = "sqlite"
)
