package postgres

import "embed"

//go:embed migrations/*.sql
var migrations embed.FS

// GetMigrationsFS returns the postgres migrations rooted at "migrations".
func GetMigrationsFS() embed.FS {
	return migrations
}
