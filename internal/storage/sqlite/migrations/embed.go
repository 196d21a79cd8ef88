package migrations

import "embed"

// FS contains embedded SQLite migrations for list sync storage.
//
//go:embed *.sql
var FS embed.FS
