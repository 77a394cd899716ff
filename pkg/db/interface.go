package db

import "database/sql"

// SQLProvider is implemented by clients that expose a relational handle.
// The replicator only needs the handle, not the client that produced it, so
// PostgresClient and SupabaseClient are interchangeable targets.
type SQLProvider interface {
	DB() *sql.DB
}
