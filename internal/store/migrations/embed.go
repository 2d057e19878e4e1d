// Package migrations embeds the schema for every supported SQL dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql mysql/*.sql
var FS embed.FS
