// Package migrations holds the schema for the catalog, profiles and scores.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is applied in file-name order by `reading-club migrate` and on server start.
var Migrations = migrate.NewMigrations()
