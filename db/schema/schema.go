// Package schema embeds the database migrations of the order journal.
package schema

import "embed"

// FS holds the NNN_description.{up,down}.sql migration files.
//
//go:embed *.sql
var FS embed.FS
