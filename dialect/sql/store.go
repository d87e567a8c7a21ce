package sql

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/dialect"
)

// DefaultTable is the table nodes are stored in.
const DefaultTable = "nodes"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// columns of the node table, in scan order.
var columns = []string{"id", "type", "parent", "children", "digest", "owner", "media_type", "fields"}

// Store is a gqlcompose.NodeStore backed by one SQL table.
type Store struct {
	drv   dialect.Driver
	table string
}

var _ gqlcompose.BatchNodeStore = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTable sets the node table name.
func WithTable(name string) StoreOption {
	return func(s *Store) { s.table = name }
}

// NewStore returns a store reading and writing through drv.
func NewStore(drv dialect.Driver, opts ...StoreOption) (*Store, error) {
	s := &Store{drv: drv, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	if !isValidIdentifier(s.table) {
		return nil, fmt.Errorf("dialect/sql: invalid table name %q", s.table)
	}
	return s, nil
}

// Close closes the underlying driver.
func (s *Store) Close() error { return s.drv.Close() }

// Stats returns the statement counts of the store when its driver is a
// StatsDriver.
func (s *Store) Stats() (StatsSnapshot, bool) {
	d, ok := s.drv.(*StatsDriver)
	if !ok {
		return StatsSnapshot{}, false
	}
	return d.Stats(), true
}

// Migrate creates the node table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	table := s.quote(s.table)
	stmts := []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s VARCHAR(255) NOT NULL PRIMARY KEY,
	%s VARCHAR(255) NOT NULL,
	%s VARCHAR(255) NULL,
	%s TEXT NULL,
	%s VARCHAR(255) NULL,
	%s VARCHAR(255) NULL,
	%s VARCHAR(255) NULL,
	%s TEXT NULL%s
)`, table, s.quote("id"), s.quote("type"), s.quote("parent"), s.quote("children"),
		s.quote("digest"), s.quote("owner"), s.quote("media_type"), s.quote("fields"), s.inlineIndex())}
	if s.drv.Dialect() != dialect.MySQL {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			s.quote(s.indexName()), table, s.quote("type")))
	}
	for _, stmt := range stmts {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("dialect/sql: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) indexName() string {
	return strings.ReplaceAll(s.table, ".", "_") + "_type"
}

func (s *Store) inlineIndex() string {
	if s.drv.Dialect() != dialect.MySQL {
		return ""
	}
	return fmt.Sprintf(",\n\tINDEX %s (%s)", s.quote(s.indexName()), s.quote("type"))
}

// Put inserts or replaces nodes in one transaction.
func (s *Store) Put(ctx context.Context, nodes ...*gqlcompose.Node) (rerr error) {
	if len(nodes) == 0 {
		return nil
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: begin: %w", err)
	}
	defer func() {
		if rerr != nil {
			_ = tx.Rollback()
		}
	}()
	query := s.upsert()
	for _, n := range nodes {
		args, err := nodeArgs(n)
		if err != nil {
			return err
		}
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes the nodes with the given ids.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", s.quote(s.table), s.quote("id"), s.placeholders(1, len(ids)))
	return s.drv.Exec(ctx, query, stringArgs(ids), nil)
}

// Types implements gqlcompose.NodeStore.
func (s *Store) Types(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY %[1]s", s.quote("type"), s.quote(s.table))
	rows := &Rows{}
	if err := s.drv.Query(ctx, query, []any{}, rows); err != nil {
		return nil, err
	}
	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, closeAll(rows, err)
		}
		types = append(types, t)
	}
	return types, closeAll(rows, rows.Err())
}

// NodesByType implements gqlcompose.NodeStore. Nodes are ordered by id.
func (s *Store) NodesByType(ctx context.Context, typeName string) ([]*gqlcompose.Node, error) {
	return s.query(ctx, fmt.Sprintf("%s WHERE %s = %s ORDER BY %s",
		s.selectNodes(), s.quote("type"), s.placeholder(1), s.quote("id")), typeName)
}

// NodeByID implements gqlcompose.NodeStore. A missing node is nil.
func (s *Store) NodeByID(ctx context.Context, id string) (*gqlcompose.Node, error) {
	nodes, err := s.query(ctx, fmt.Sprintf("%s WHERE %s = %s", s.selectNodes(), s.quote("id"), s.placeholder(1)), id)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

// NodesByIDs implements gqlcompose.BatchNodeStore. Unknown ids are omitted
// and the order of the result is unspecified.
func (s *Store) NodesByIDs(ctx context.Context, ids []string) ([]*gqlcompose.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("%s WHERE %s IN (%s)", s.selectNodes(), s.quote("id"), s.placeholders(1, len(ids)))
	return s.query(ctx, query, ids...)
}

func (s *Store) selectNodes() string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = s.quote(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), s.quote(s.table))
}

func (s *Store) query(ctx context.Context, query string, args ...string) ([]*gqlcompose.Node, error) {
	rows := &Rows{}
	if err := s.drv.Query(ctx, query, stringArgs(args), rows); err != nil {
		return nil, err
	}
	var nodes []*gqlcompose.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, closeAll(rows, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, closeAll(rows, rows.Err())
}

func scanNode(rows *Rows) (*gqlcompose.Node, error) {
	var (
		n                               gqlcompose.Node
		parent, children, digest, owner NullString
		mediaType, fields               NullString
	)
	if err := rows.Scan(&n.ID, &n.Internal.Type, &parent, &children, &digest, &owner, &mediaType, &fields); err != nil {
		return nil, fmt.Errorf("dialect/sql: scan node: %w", err)
	}
	n.Parent = parent.String
	n.Internal.ContentDigest = digest.String
	n.Internal.Owner = owner.String
	n.Internal.MediaType = mediaType.String
	if children.Valid && children.String != "" {
		if err := json.UnmarshalFromString(children.String, &n.Children); err != nil {
			return nil, fmt.Errorf("dialect/sql: node %s children: %w", n.ID, err)
		}
	}
	if fields.Valid && fields.String != "" {
		if err := json.UnmarshalFromString(fields.String, &n.Fields); err != nil {
			return nil, fmt.Errorf("dialect/sql: node %s fields: %w", n.ID, err)
		}
	}
	return &n, nil
}

func nodeArgs(n *gqlcompose.Node) ([]any, error) {
	if n.ID == "" || n.Internal.Type == "" {
		return nil, fmt.Errorf("dialect/sql: node needs an id and a type")
	}
	children, err := json.MarshalToString(n.Children)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: node %s children: %w", n.ID, err)
	}
	fields, err := json.MarshalToString(n.Fields)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: node %s fields: %w", n.ID, err)
	}
	return []any{
		n.ID, n.Internal.Type, nullable(n.Parent), children,
		nullable(n.Internal.ContentDigest), nullable(n.Internal.Owner), nullable(n.Internal.MediaType), fields,
	}, nil
}

func nullable(s string) NullString {
	return NullString{String: s, Valid: s != ""}
}

func (s *Store) upsert() string {
	quoted := make([]string, len(columns))
	set := make([]string, 0, len(columns)-1)
	for i, c := range columns {
		quoted[i] = s.quote(c)
		if i == 0 {
			continue
		}
		if s.drv.Dialect() == dialect.MySQL {
			set = append(set, fmt.Sprintf("%s = VALUES(%[1]s)", quoted[i]))
		} else {
			set = append(set, fmt.Sprintf("%s = excluded.%[1]s", quoted[i]))
		}
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.quote(s.table), strings.Join(quoted, ", "), s.placeholders(1, len(columns)))
	if s.drv.Dialect() == dialect.MySQL {
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(set, ", ")
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", insert, quoted[0], strings.Join(set, ", "))
}

// quote quotes an identifier for the dialect of the store.
func (s *Store) quote(ident string) string {
	switch s.drv.Dialect() {
	case dialect.Postgres:
		parts := strings.Split(ident, ".")
		for i, p := range parts {
			parts[i] = pq.QuoteIdentifier(p)
		}
		return strings.Join(parts, ".")
	case dialect.MySQL:
		return "`" + strings.ReplaceAll(ident, ".", "`.`") + "`"
	default:
		return `"` + strings.ReplaceAll(ident, ".", `"."`) + `"`
	}
}

func (s *Store) placeholder(i int) string {
	if s.drv.Dialect() == dialect.Postgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

func (s *Store) placeholders(start, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = s.placeholder(start + i)
	}
	return strings.Join(ps, ", ")
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, v := range ss {
		args[i] = v
	}
	return args
}
