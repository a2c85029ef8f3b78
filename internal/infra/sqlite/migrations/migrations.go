package migrations

import "embed"

// Migrations holds the SQLite schema in golang-migrate file naming.
//
//go:embed *.sql
var Migrations embed.FS
