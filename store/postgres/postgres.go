// Package postgres stores partitions as rows of a single table, keyed by
// (partition, key). The table is created on first Open if it does not exist.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unkn0wn-root/synckv/store"
)

const (
	Kind         = "postgres"
	defaultTable = "synckv_entries"
)

type Config struct {
	// Pool is used when set; otherwise a pool is created from DSN and owned
	// by the store.
	Pool  *pgxpool.Pool
	DSN   string
	Table string // "" => synckv_entries
}

type Store struct {
	pool    *pgxpool.Pool
	ownPool bool
	table   string // sanitized identifier

	schemaMu    sync.Mutex
	schemaReady bool
}

var _ store.Store = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	s := &Store{table: pgx.Identifier{table}.Sanitize()}
	if cfg.Pool != nil {
		s.pool = cfg.Pool
		return s, nil
	}
	if cfg.DSN == "" {
		return nil, errors.New("postgres store: pool or DSN is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	s.pool = pool
	s.ownPool = true
	return s, nil
}

func (s *Store) Kind() string { return Kind }

// Close releases the pool if the store created it.
func (s *Store) Close() error {
	if s.ownPool && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Open(ctx context.Context, name string) (store.Conn, error) {
	if name == "" {
		return nil, errors.New("postgres store: empty partition name")
	}
	if err := s.pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return &Conn{s: s, part: name}, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL NOT NULL,
			part TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (part, key)
		)`, s.table))
	if err != nil {
		return fmt.Errorf("postgres store: ensure schema: %w", err)
	}
	s.schemaReady = true
	return nil
}

type Conn struct {
	s    *Store
	part string
}

var _ store.Conn = (*Conn)(nil)

// GetAll reads the partition in one statement, in first-insert order.
func (c *Conn) GetAll(ctx context.Context) ([]store.Pair, error) {
	rows, err := c.s.pool.Query(ctx,
		fmt.Sprintf(`SELECT key, value FROM %s WHERE part = $1 ORDER BY seq`, c.s.table), c.part)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Pair
	for rows.Next() {
		var p store.Pair
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *Conn) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := c.s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT value FROM %s WHERE part = $1 AND key = $2`, c.s.table), c.part, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Conn) Put(ctx context.Context, key, value string) error {
	_, err := c.s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (part, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (part, key) DO UPDATE SET value = EXCLUDED.value`, c.s.table),
		c.part, key, value)
	return err
}

func (c *Conn) Delete(ctx context.Context, key string) error {
	_, err := c.s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE part = $1 AND key = $2`, c.s.table), c.part, key)
	return err
}

// Close is a no-op; the pool belongs to the Store.
func (c *Conn) Close(context.Context) error { return nil }
