// Package migrations holds the reference backend's schema as numbered SQL files.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
