// Package migrations embeds the SQL schema files so the binary is self-contained.
package migrations

import "embed"

// FS contains all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
