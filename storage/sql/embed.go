package sql

import "embed"

// SchemaFS contains the PostgreSQL migration files under storage/sql/schema/
//
//go:embed schema/*.sql
var SchemaFS embed.FS
