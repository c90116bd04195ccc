package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/veesix-networks/netbridge/pkg/opdb"
)

const schema = `
CREATE TABLE IF NOT EXISTS opdb_entries (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
	PRIMARY KEY (namespace, key)
);
CREATE INDEX IF NOT EXISTS idx_opdb_entries_namespace ON opdb_entries(namespace);
`

type Store struct {
	db *sql.DB

	put   *sql.Stmt
	del   *sql.Stmt
	load  *sql.Stmt
	clear *sql.Stmt
}

var _ opdb.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create opdb directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.prepare(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) prepare() error {
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.put, `INSERT INTO opdb_entries (namespace, key, value, updated_at)
			VALUES (?, ?, ?, strftime('%s', 'now'))
			ON CONFLICT(namespace, key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at`},
		{&s.del, `DELETE FROM opdb_entries WHERE namespace = ? AND key = ?`},
		{&s.load, `SELECT key, value FROM opdb_entries WHERE namespace = ? ORDER BY key`},
		{&s.clear, `DELETE FROM opdb_entries WHERE namespace = ?`},
	}
	for _, st := range stmts {
		stmt, err := s.db.Prepare(st.query)
		if err != nil {
			return fmt.Errorf("prepare %q: %w", st.query, err)
		}
		*st.dst = stmt
	}
	return nil
}

func (s *Store) Put(ctx context.Context, namespace, key string, value []byte) error {
	_, err := s.put.ExecContext(ctx, namespace, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.del.ExecContext(ctx, namespace, key)
	return err
}

func (s *Store) Load(ctx context.Context, namespace string, fn opdb.LoadFunc) error {
	rows, err := s.load.QueryContext(ctx, namespace)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) Clear(ctx context.Context, namespace string) error {
	_, err := s.clear.ExecContext(ctx, namespace)
	return err
}

func (s *Store) Close() error {
	for _, st := range []*sql.Stmt{s.put, s.del, s.load, s.clear} {
		if st != nil {
			st.Close()
		}
	}
	return s.db.Close()
}
