// Package migrations embeds the goose SQL migrations for the Job Sphere store.
// The statements stay within the SQL subset shared by SQLite and PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
