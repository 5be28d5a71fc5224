// Package migrations embeds the goose SQL migration scripts.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
