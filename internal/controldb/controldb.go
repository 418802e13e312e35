// Package controldb owns the single shared "corehub" SQLite database that
// backs UsersIndex and UserAccountStorage in DNS-less (standalone) mode —
// the control-plane tables that exist once per deployment, as distinct from
// the per-user event databases eventstore.Mall opens on demand.
package controldb

import (
	"embed"

	"github.com/streamhub/corehub/internal/config"
	"github.com/streamhub/corehub/internal/database"
	"github.com/streamhub/corehub/internal/database/migrations"
)

//go:embed sql/*.sql
var sqlFS embed.FS

var migrationSet = migrations.Set{FS: sqlFS, Dir: "sql", VersionTable: "_corehub_control_versions"}

// DB is the opened control database, shared (by reference) between
// usersindex.Index and accountstorage.Store.
type DB struct {
	*database.DB
}

// Open opens the control database at cfg.Path and applies its embedded
// schema, creating the users/passwords/password_history tables on first run.
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := database.Open(cfg, &migrationSet)
	if err != nil {
		return nil, err
	}
	return &DB{DB: db}, nil
}
