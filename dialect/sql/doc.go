// Package sql implements the dialect.Driver interface over database/sql and
// a node store on top of it.
//
// The store keeps every node in one table:
//
//	id | type | parent | children | digest | owner | media_type | fields
//
// children and fields hold JSON. Statements are written per dialect: $n
// placeholders and ON CONFLICT upserts for PostgreSQL, ? placeholders for
// MySQL and SQLite, ON DUPLICATE KEY UPDATE for MySQL.
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//	    return err
//	}
//	store, err := sql.NewStore(sql.NewStatsDriver(drv, sql.WithSlowQueryLog(logger)))
//	if err != nil {
//	    return err
//	}
//	if err := store.Migrate(ctx); err != nil {
//	    return err
//	}
//
// The database/sql driver of the dialect must be registered by the program,
// for example with a blank import of modernc.org/sqlite.
package sql
