package migrations

import "embed"

// FS holds the SQL migrations applied by cmd/migrate and the integration tests.
//
//go:embed *.sql
var FS embed.FS
