// Package migrations holds the goose migrations for the order attempt log
package migrations

import "embed"

// FS contains every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
