// Package migrations embeds the SQL schema migrations so the migrate
// binary and tests can run them from any working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
