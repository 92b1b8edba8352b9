package sqltree

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/tree"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// rootID is the virtual id of the root directory, it has no row in the nodes table
const rootID int64 = 0

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	parent INTEGER NOT NULL,
	name   TEXT    NOT NULL,
	kind   INTEGER NOT NULL,
	data   BLOB,
	UNIQUE (parent, name)
);`

const removeSubtree = `
WITH RECURSIVE sub(id) AS (
	SELECT ?
	UNION ALL
	SELECT n.id FROM nodes n JOIN sub ON n.parent = sub.id
)
DELETE FROM nodes WHERE id IN sub;`

// SQLTree is a tree stored in a single SQLite table. The value itself is the root directory.
type SQLTree struct {
	dirHandle
}

type treeState struct {
	db     *sql.DB
	closed atomic.Bool
}

// NewSQLTree opens (and if needed creates) the SQLite database described by dsn.
// Use ":memory:" for a private in-memory database.
//
// Usage:
//
//	root, err := sqltree.NewSQLTree(ctx, "/var/lib/tkv/data.db")
//	defer root.Close()
func NewSQLTree(ctx context.Context, dsn string) (*SQLTree, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", dsn, err)
	}
	// sqlite allows a single writer, one connection also keeps ":memory:" databases alive
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLTree{dirHandle{state: &treeState{db: db}, id: rootID}}, nil
}

// Ping checks that the database is still reachable
func (t *SQLTree) Ping(ctx context.Context) error {
	if t.state.closed.Load() {
		return tree.ErrUnavailable
	}
	if err := t.state.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", tree.ErrUnavailable, err)
	}
	return nil
}

// Close closes the database, all handles of the tree return tree.ErrUnavailable afterwards
func (t *SQLTree) Close() error {
	if t.state.closed.Swap(true) {
		return nil
	}
	return t.state.db.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// withTx runs f in a transaction and commits if f succeeds
func (s *treeState) withTx(ctx context.Context, f func(tx *sql.Tx) error) error {
	if s.closed.Load() {
		return tree.ErrUnavailable
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dirExists reports ErrNotFound if the directory with the given id is gone
func dirExists(ctx context.Context, q querier, id int64) error {
	if id == rootID {
		return nil
	}
	var kind int
	err := q.QueryRowContext(ctx, "SELECT kind FROM nodes WHERE id = ?", id).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return tree.ErrNotFound
	}
	if err != nil {
		return err
	}
	if tree.Kind(kind) != tree.KindDirectory {
		return tree.ErrNotFound
	}
	return nil
}

// lookup returns id and kind of the named child of parent
func lookup(ctx context.Context, q querier, parent int64, name string) (int64, tree.Kind, error) {
	var (
		id   int64
		kind int
	)
	err := q.QueryRowContext(ctx, "SELECT id, kind FROM nodes WHERE parent = ? AND name = ?", parent, name).Scan(&id, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, tree.ErrNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	return id, tree.Kind(kind), nil
}

// --------------------------------------------------------------------------
// Directory handle
// --------------------------------------------------------------------------

type dirHandle struct {
	state *treeState
	id    int64
	name  string
}

func (d *dirHandle) Name() string {
	return d.name
}

func (d *dirHandle) Kind() tree.Kind {
	return tree.KindDirectory
}

// child resolves (and optionally creates) the named child with the expected kind
func (d *dirHandle) child(ctx context.Context, name string, kind tree.Kind, create bool) (int64, error) {
	if err := tree.ValidateName(name); err != nil {
		return 0, err
	}

	var id int64
	err := d.state.withTx(ctx, func(tx *sql.Tx) error {
		if err := dirExists(ctx, tx, d.id); err != nil {
			return err
		}
		childID, existing, err := lookup(ctx, tx, d.id, name)
		if errors.Is(err, tree.ErrNotFound) && create {
			var data any
			if kind == tree.KindLeaf {
				data = []byte{}
			}
			_, err = tx.ExecContext(ctx,
				"INSERT INTO nodes (parent, name, kind, data) VALUES (?, ?, ?, ?) ON CONFLICT (parent, name) DO NOTHING",
				d.id, name, int(kind), data)
			if err != nil {
				return err
			}
			childID, existing, err = lookup(ctx, tx, d.id, name)
		}
		if err != nil {
			return err
		}
		if existing != kind {
			return tree.ErrTypeMismatch
		}
		id = childID
		return nil
	})
	return id, err
}

func (d *dirHandle) Directory(ctx context.Context, name string, create bool) (tree.Directory, error) {
	id, err := d.child(ctx, name, tree.KindDirectory, create)
	if err != nil {
		return nil, err
	}
	return &dirHandle{state: d.state, id: id, name: name}, nil
}

func (d *dirHandle) Leaf(ctx context.Context, name string, create bool) (tree.Leaf, error) {
	id, err := d.child(ctx, name, tree.KindLeaf, create)
	if err != nil {
		return nil, err
	}
	return &leafHandle{state: d.state, id: id, name: name}, nil
}

// Range reads all children before calling f, so f may use the tree again
func (d *dirHandle) Range(ctx context.Context, f func(entry tree.Entry) bool) error {
	var entries []tree.Entry
	err := d.state.withTx(ctx, func(tx *sql.Tx) error {
		if err := dirExists(ctx, tx, d.id); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, "SELECT id, name, kind FROM nodes WHERE parent = ? ORDER BY name", d.id)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id   int64
				name string
				kind int
			)
			if err := rows.Scan(&id, &name, &kind); err != nil {
				return err
			}
			entry := tree.Entry{Name: name, Kind: tree.Kind(kind)}
			if entry.Kind == tree.KindDirectory {
				entry.Node = &dirHandle{state: d.state, id: id, name: name}
			} else {
				entry.Node = &leafHandle{state: d.state, id: id, name: name}
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !f(entry) {
			return nil
		}
	}
	return nil
}

func (d *dirHandle) Remove(ctx context.Context, name string, recursive bool) error {
	if err := tree.ValidateName(name); err != nil {
		return err
	}
	return d.state.withTx(ctx, func(tx *sql.Tx) error {
		if err := dirExists(ctx, tx, d.id); err != nil {
			return err
		}
		id, kind, err := lookup(ctx, tx, d.id, name)
		if err != nil {
			return err
		}
		if kind == tree.KindDirectory && !recursive {
			var n int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes WHERE parent = ?", id).Scan(&n); err != nil {
				return err
			}
			if n > 0 {
				return tree.ErrNotEmpty
			}
		}
		_, err = tx.ExecContext(ctx, removeSubtree, id)
		return err
	})
}

// --------------------------------------------------------------------------
// Leaf handle
// --------------------------------------------------------------------------

type leafHandle struct {
	state *treeState
	id    int64
	name  string
}

func (l *leafHandle) Name() string {
	return l.name
}

func (l *leafHandle) Kind() tree.Kind {
	return tree.KindLeaf
}

func (l *leafHandle) Read(ctx context.Context) ([]byte, error) {
	if l.state.closed.Load() {
		return nil, tree.ErrUnavailable
	}
	var data []byte
	err := l.state.db.QueryRowContext(ctx, "SELECT data FROM nodes WHERE id = ? AND kind = ?", l.id, int(tree.KindLeaf)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tree.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Writable buffers the contents in memory, Close stores them with a single UPDATE
func (l *leafHandle) Writable(ctx context.Context) (tree.Writable, error) {
	if _, err := l.Read(ctx); err != nil {
		return nil, err
	}
	return tree.NewBufferedWritable(func(data []byte) error {
		if l.state.closed.Load() {
			return tree.ErrUnavailable
		}
		res, err := l.state.db.ExecContext(ctx,
			"UPDATE nodes SET data = ? WHERE id = ? AND kind = ?", data, l.id, int(tree.KindLeaf))
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return tree.ErrNotFound
		}
		return nil
	}), nil
}
