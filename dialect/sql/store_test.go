package sql

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/dialect"
)

const selectSQLite = `SELECT "id", "type", "parent", "children", "digest", "owner", "media_type", "fields" FROM "nodes"`

func newStore(t *testing.T, name string, opts ...StoreOption) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := NewStore(OpenDB(name, db), opts...)
	require.NoError(t, err)
	return s, mock
}

func nodeRows() *sqlmock.Rows {
	return sqlmock.NewRows(columns).
		AddRow("p1", "Post", nil, `["c1"]`, "d1", "source-fs", nil, `{"title":"A","views":3,"meta":{"words":120}}`).
		AddRow("p2", "Post", "f1", nil, nil, nil, "text/markdown", nil)
}

func TestStoreNodesByType(t *testing.T) {
	s, mock := newStore(t, dialect.SQLite)
	mock.ExpectQuery(selectSQLite + ` WHERE "type" = ? ORDER BY "id"`).WithArgs("Post").WillReturnRows(nodeRows())

	nodes, err := s.NodesByType(context.Background(), "Post")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	p1 := nodes[0]
	assert.Equal(t, "p1", p1.ID)
	assert.Equal(t, "Post", p1.Type())
	assert.Equal(t, []string{"c1"}, p1.Children)
	assert.Equal(t, "d1", p1.Internal.ContentDigest)
	assert.Equal(t, "source-fs", p1.Internal.Owner)
	assert.Equal(t, "A", p1.Fields["title"])
	assert.Equal(t, float64(3), p1.Fields["views"])
	assert.Equal(t, map[string]any{"words": float64(120)}, p1.Fields["meta"])

	p2 := nodes[1]
	assert.Equal(t, "f1", p2.Parent)
	assert.Equal(t, "text/markdown", p2.Internal.MediaType)
	assert.Nil(t, p2.Fields)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreNodeByID(t *testing.T) {
	s, mock := newStore(t, dialect.Postgres)
	const query = `SELECT "id", "type", "parent", "children", "digest", "owner", "media_type", "fields" FROM "nodes" WHERE "id" = $1`
	mock.ExpectQuery(query).WithArgs("p1").WillReturnRows(nodeRows())
	mock.ExpectQuery(query).WithArgs("missing").WillReturnRows(sqlmock.NewRows(columns))

	n, err := s.NodeByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", n.ID)
	n, err = s.NodeByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreNodesByIDs(t *testing.T) {
	s, mock := newStore(t, dialect.MySQL)
	mock.ExpectQuery("SELECT `id`, `type`, `parent`, `children`, `digest`, `owner`, `media_type`, `fields` FROM `nodes` WHERE `id` IN (?, ?)").
		WithArgs("p1", "p2").
		WillReturnRows(nodeRows())

	nodes, err := s.NodesByIDs(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	nodes, err = s.NodesByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreTypes(t *testing.T) {
	s, mock := newStore(t, dialect.SQLite, WithTable("content"))
	mock.ExpectQuery(`SELECT DISTINCT "type" FROM "content" ORDER BY "type"`).
		WillReturnRows(sqlmock.NewRows([]string{"type"}).AddRow("Author").AddRow("Post"))

	types, err := s.Types(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Author", "Post"}, types)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePut(t *testing.T) {
	s, mock := newStore(t, dialect.Postgres)
	const upsert = `INSERT INTO "nodes" ("id", "type", "parent", "children", "digest", "owner", "media_type", "fields") ` +
		`VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT ("id") DO UPDATE SET ` +
		`"type" = excluded."type", "parent" = excluded."parent", "children" = excluded."children", ` +
		`"digest" = excluded."digest", "owner" = excluded."owner", "media_type" = excluded."media_type", "fields" = excluded."fields"`
	mock.ExpectBegin()
	mock.ExpectExec(upsert).
		WithArgs("p1", "Post", nil, `["c1"]`, nil, "source-fs", nil, `{"title":"A"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Put(context.Background(), &gqlcompose.Node{
		ID:       "p1",
		Children: []string{"c1"},
		Internal: gqlcompose.Internal{Type: "Post", Owner: "source-fs"},
		Fields:   map[string]any{"title": "A"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePutRollback(t *testing.T) {
	s, mock := newStore(t, dialect.SQLite)
	mock.ExpectBegin()
	mock.ExpectExec(s.upsert()).WithArgs(anyArgs(8)...).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Put(context.Background(), &gqlcompose.Node{ID: "p1", Internal: gqlcompose.Internal{Type: "Post"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = s.Put(context.Background(), &gqlcompose.Node{ID: "p1"})
	require.Error(t, err, "nodes need a type")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMigrate(t *testing.T) {
	s, mock := newStore(t, dialect.SQLite)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "nodes" (
	"id" VARCHAR(255) NOT NULL PRIMARY KEY,
	"type" VARCHAR(255) NOT NULL,
	"parent" VARCHAR(255) NULL,
	"children" TEXT NULL,
	"digest" VARCHAR(255) NULL,
	"owner" VARCHAR(255) NULL,
	"media_type" VARCHAR(255) NULL,
	"fields" TEXT NULL
)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "nodes_type" ON "nodes" ("type")`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreDelete(t *testing.T) {
	s, mock := newStore(t, dialect.Postgres)
	mock.ExpectExec(`DELETE FROM "nodes" WHERE "id" IN ($1, $2)`).WithArgs("p1", "p2").WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, s.Delete(context.Background(), "p1", "p2"))
	require.NoError(t, s.Delete(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreDialectSQL(t *testing.T) {
	s, _ := newStore(t, dialect.MySQL, WithTable("content.nodes"))
	assert.Equal(t, "`content`.`nodes`", s.quote(s.table))
	assert.Contains(t, s.upsert(), "ON DUPLICATE KEY UPDATE `type` = VALUES(`type`)")
	assert.Equal(t, ",\n\tINDEX `content_nodes_type` (`type`)", s.inlineIndex())

	pg, _ := newStore(t, dialect.Postgres, WithTable("content.nodes"))
	assert.Equal(t, `"content"."nodes"`, pg.quote(pg.table))
	assert.Equal(t, "$2, $3", pg.placeholders(2, 2))

	_, err := NewStore(OpenDB(dialect.SQLite, nil), WithTable("nodes; --"))
	assert.Error(t, err)
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}
