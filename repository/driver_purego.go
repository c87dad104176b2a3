//go:build !sqlite_cgo

package repository

// Pure Go SQLite, no C compiler required:
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver used for the chunk store
const DriverName = "sqlite"
