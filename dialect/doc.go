// Package dialect defines the database abstraction of the SQL node store.
//
// Three dialects are supported:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// A Driver executes statements and queries and starts transactions:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The implementation lives in dialect/sql, which also provides the node
// store built on it:
//
//	drv, err := sql.Open(dialect.SQLite, "file:nodes.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := sql.NewStore(drv)
//	defer store.Close()
package dialect
