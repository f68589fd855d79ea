package persistence

import "embed"

// Migrations embeds the goose migration set for cmd/flywheel-migrate, so
// the schema travels with the binary instead of a separate file mount.
//
//go:embed migrations/*.sql
var Migrations embed.FS
