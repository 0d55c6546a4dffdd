// Package migrations embeds the PostgreSQL schema and seed files.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql
var schemaFS embed.FS

//go:embed seeds/*.sql
var seedFS embed.FS

// Schema returns the migration files at the root of the returned file system.
func Schema() fs.FS {
	sub, err := fs.Sub(schemaFS, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Seeds returns the seed files at the root of the returned file system.
func Seeds() fs.FS {
	sub, err := fs.Sub(seedFS, "seeds")
	if err != nil {
		panic(err)
	}
	return sub
}
