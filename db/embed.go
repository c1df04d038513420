// Package db embeds the goose SQL migrations so binaries and tests can apply
// them without a checkout.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations inside the embedded FS.
const MigrationsDir = "migrations"
