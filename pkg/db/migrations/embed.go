// Package migrations registers the schema migrations run by db.Migrate.
package migrations

import "embed"

// FS exposes the migration sources so goose can match registered Go
// migrations against their files without relying on the working directory.
//
//go:embed *.go
var FS embed.FS
