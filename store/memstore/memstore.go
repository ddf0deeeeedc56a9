// Package memstore is an in-process store.Store. Partitions live as long as
// the Store value, so several caches opened on the same Store and name see
// each other's writes. Nothing survives the process.
package memstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/synckv/internal/ordered"
	"github.com/unkn0wn-root/synckv/store"
)

const Kind = "memory"

var ErrClosed = errors.New("memstore: connection closed")

type table struct {
	mu sync.RWMutex
	m  *ordered.Map
}

type Store struct {
	mu     sync.Mutex
	tables map[string]*table
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

func (s *Store) Kind() string { return Kind }

func (s *Store) Open(_ context.Context, name string) (store.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		t = &table{m: ordered.New()}
		s.tables[name] = t
	}
	return &Conn{t: t}, nil
}

// Conn is a handle on one partition.
type Conn struct {
	t      *table
	closed atomic.Bool
}

var _ store.Conn = (*Conn)(nil)

func (c *Conn) GetAll(_ context.Context) ([]store.Pair, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.t.mu.RLock()
	defer c.t.mu.RUnlock()
	keys := c.t.m.Keys()
	out := make([]store.Pair, 0, len(keys))
	for _, k := range keys {
		v, _ := c.t.m.Get(k)
		out = append(out, store.Pair{Key: k, Value: v})
	}
	return out, nil
}

func (c *Conn) Get(_ context.Context, key string) (string, bool, error) {
	if c.closed.Load() {
		return "", false, ErrClosed
	}
	c.t.mu.RLock()
	defer c.t.mu.RUnlock()
	v, ok := c.t.m.Get(key)
	return v, ok, nil
}

func (c *Conn) Put(_ context.Context, key, value string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.t.mu.Lock()
	c.t.m.Set(key, value)
	c.t.mu.Unlock()
	return nil
}

func (c *Conn) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.t.mu.Lock()
	c.t.m.Delete(key)
	c.t.mu.Unlock()
	return nil
}

func (c *Conn) Close(_ context.Context) error {
	c.closed.Store(true)
	return nil
}
