// Package migrations embeds the shopapi schema.
package migrations

import "embed"

// FS holds the *.up.sql files applied at start-up.
//
//go:embed *.up.sql
var FS embed.FS
