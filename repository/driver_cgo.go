//go:build sqlite_cgo

package repository

// cgo SQLite driver:
//   CGO_ENABLED=1 go build -tags sqlite_cgo ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver used for the chunk store
const DriverName = "sqlite3"
