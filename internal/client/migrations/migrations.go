// Package migrations embeds the authctl local schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
