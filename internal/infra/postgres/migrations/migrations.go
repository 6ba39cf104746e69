package migrations

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations holds every schema change; each file registers one step.
var Migrations = migrate.NewMigrations()
