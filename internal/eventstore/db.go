package eventstore

import (
	"embed"

	"github.com/streamhub/corehub/internal/config"
	"github.com/streamhub/corehub/internal/database"
	"github.com/streamhub/corehub/internal/database/migrations"
)

//go:embed sql/*.sql
var sqlFS embed.FS

var migrationSet = migrations.Set{FS: sqlFS, Dir: "sql", VersionTable: "_corehub_eventstore_versions"}

// DB is one user's event database: its own SQLite file, own WAL, own
// connection pool, own copy of the events/events_fts schema.
type DB struct {
	*database.DB
	retryBudget int
}

// Open opens (creating and migrating if necessary) the event database for
// one user at path.
func Open(cfg *config.DatabaseConfig, path string) (*DB, error) {
	userCfg := *cfg
	userCfg.Path = path

	db, err := database.Open(&userCfg, &migrationSet)
	if err != nil {
		return nil, err
	}

	return &DB{DB: db, retryBudget: cfg.RetryBudget}, nil
}
