// Package sqlitestore is a mssmt.Storage backend on top of SQLite, grounded
// on the reference codebase's mptsqlite package and extended to carry each
// node's sum and its compact-leaf fields.
package sqlitestore

import (
	"context"
	"embed"
	"fmt"

	"github.com/lightcone-labs/mssmt/mssmt"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

//go:embed *.sql
var sql embed.FS

// Storage is a SQLite-backed mssmt.Storage. Every node is one row in the
// nodes table, addressed by its hash; a single-row root table points at the
// current root branch.
type Storage struct {
	pool *sqlitex.Pool
	et   *mssmt.EmptyTree
}

var _ mssmt.Storage = (*Storage)(nil)

// New opens (and, if necessary, initializes) a SQLite-backed store at
// dbPath. h must be the same hash function used to build the tree over this
// store; it is needed to synthesise empty children.
func New(ctx context.Context, dbPath string, h mssmt.HashFunc) (*Storage, error) {
	pool, err := sqlitex.NewPool(dbPath, sqlitex.PoolOptions{
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecScript(conn, `
				PRAGMA strict_types = ON;
				PRAGMA foreign_keys = ON;
			`)
		},
	})
	if err != nil {
		return nil, err
	}

	conn, err := pool.Take(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer pool.Put(conn)

	if err := sqlitex.ExecuteTransientFS(conn, sql, "create.sql", nil); err != nil {
		pool.Close()
		return nil, err
	}

	return &Storage{pool: pool, et: mssmt.NewEmptyTree(h)}, nil
}

func (s *Storage) Close() error {
	return s.pool.Close()
}

func (s *Storage) GetRoot(ctx context.Context) (*mssmt.BranchNode, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var root *mssmt.BranchNode
	if err := sqlitex.ExecuteFS(conn, sql, "get_root.sql", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			root = mssmt.NewBranchNodeFromParts(
				readHash(stmt, 1), readHash(stmt, 3),
				uint64(stmt.ColumnInt64(2)), uint64(stmt.ColumnInt64(4)),
				readHash(stmt, 0),
			)
			return nil
		},
	}); err != nil {
		return nil, err
	}
	return root, nil
}

func (s *Storage) GetChildren(ctx context.Context, depth uint32, hash [mssmt.KeySize]byte) (mssmt.Node, mssmt.Node, error) {
	if s.et.IsEmptyHash(hash, depth) {
		empty := s.et.At(depth + 1)
		return empty, empty, nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer s.pool.Put(conn)

	var left, right mssmt.Node
	if err := sqlitex.ExecuteFS(conn, sql, "get_node.sql", &sqlitex.ExecOptions{
		Args: []any{hash[:]},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			if stmt.GetText("kind") != "branch" {
				return fmt.Errorf("mssmt/sqlitestore: node %x at depth %d is not a branch", hash, depth)
			}
			leftHash := readHash(stmt, 3)
			rightHash := readHash(stmt, 5)
			var err error
			left, err = s.resolve(conn, depth+1, leftHash)
			if err != nil {
				return err
			}
			right, err = s.resolve(conn, depth+1, rightHash)
			return err
		},
	}); err != nil {
		return nil, nil, err
	}
	if left == nil {
		return nil, nil, mssmt.ErrNodeNotFound
	}
	return left, right, nil
}

// resolve turns a child hash at depth into the Node it addresses: the empty
// constant, a branch, a compact leaf, or (at MaxDepth only) a leaf.
func (s *Storage) resolve(conn *sqlite.Conn, depth uint32, hash [mssmt.KeySize]byte) (mssmt.Node, error) {
	if s.et.IsEmptyHash(hash, depth) {
		return s.et.At(depth), nil
	}

	var node mssmt.Node
	if err := sqlitex.ExecuteFS(conn, sql, "get_node.sql", &sqlitex.ExecOptions{
		Args: []any{hash[:]},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			switch stmt.GetText("kind") {
			case "branch":
				node = mssmt.NewBranchNodeFromParts(
					readHash(stmt, 3), readHash(stmt, 5),
					uint64(stmt.GetInt64("left_sum")), uint64(stmt.GetInt64("right_sum")),
					hash,
				)
			case "leaf":
				node = mssmt.NewLeafNodeFromParts(readBlob(stmt, "value"), uint64(stmt.GetInt64("sum")), hash)
			case "compact":
				leaf := mssmt.NewLeafNodeFromParts(readBlob(stmt, "leaf_value"), uint64(stmt.GetInt64("leaf_sum")), readHash(stmt, 9))
				node = mssmt.NewCompactLeafNodeFromParts(readKey(stmt, "compact_key"), leaf, uint32(stmt.GetInt64("compact_depth")), hash)
			default:
				return fmt.Errorf("mssmt/sqlitestore: unknown node kind %q", stmt.GetText("kind"))
			}
			return nil
		},
	}); err != nil {
		return nil, err
	}
	if node == nil {
		return nil, mssmt.ErrNodeNotFound
	}
	return node, nil
}

func (s *Storage) InsertLeaf(ctx context.Context, leaf *mssmt.LeafNode) error {
	return s.exec(ctx, "upsert_leaf.sql", hashArg(leaf.NodeHash()), leaf.Value, int64(leaf.Sum))
}

func (s *Storage) InsertBranch(ctx context.Context, branch *mssmt.BranchNode) error {
	return s.exec(ctx, "upsert_branch.sql",
		hashArg(branch.NodeHash()),
		hashArg(branch.Left), int64(branch.LeftSum),
		hashArg(branch.Right), int64(branch.RightSum),
	)
}

func (s *Storage) InsertCompactLeaf(ctx context.Context, leaf *mssmt.CompactLeafNode) error {
	return s.exec(ctx, "upsert_compact_leaf.sql",
		hashArg(leaf.NodeHash()),
		hashArg(leaf.Key), int64(leaf.Depth),
		hashArg(leaf.Leaf.NodeHash()), leaf.Leaf.Value, int64(leaf.Leaf.Sum),
	)
}

func (s *Storage) DeleteLeaf(ctx context.Context, hash [mssmt.KeySize]byte) error {
	return s.exec(ctx, "delete_node.sql", hashArg(hash))
}

func (s *Storage) DeleteBranch(ctx context.Context, hash [mssmt.KeySize]byte) error {
	return s.exec(ctx, "delete_node.sql", hashArg(hash))
}

func (s *Storage) DeleteCompactLeaf(ctx context.Context, hash [mssmt.KeySize]byte) error {
	return s.exec(ctx, "delete_node.sql", hashArg(hash))
}

func (s *Storage) UpdateRoot(ctx context.Context, root *mssmt.BranchNode) error {
	return s.exec(ctx, "update_root.sql", hashArg(root.NodeHash()))
}

func (s *Storage) exec(ctx context.Context, file string, args ...any) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return sqlitex.ExecuteFS(conn, sql, file, &sqlitex.ExecOptions{Args: args})
}

func hashArg(h [mssmt.KeySize]byte) []byte { return h[:] }

func readHash(stmt *sqlite.Stmt, col int) [mssmt.KeySize]byte {
	var h [mssmt.KeySize]byte
	stmt.ColumnBytes(col, h[:])
	return h
}

func readBlob(stmt *sqlite.Stmt, col string) []byte {
	n := stmt.GetLen(col)
	if n == 0 {
		return nil
	}
	b := make([]byte, n)
	stmt.GetBytes(col, b)
	return b
}

func readKey(stmt *sqlite.Stmt, col string) mssmt.Key {
	var k mssmt.Key
	stmt.GetBytes(col, k[:])
	return k
}
