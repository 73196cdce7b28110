// Package migrations embeds SQL migration files into the binary so the
// bridge can create its registry schema without shipping loose files.
package migrations

import (
	"embed"

	"github.com/aakso/smarthome-influxdb/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
