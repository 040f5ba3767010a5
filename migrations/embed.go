package migrations

import "embed"

// Files holds the goose migrations for users, public profiles and rate limits.
//
//go:embed *.sql
var Files embed.FS
