// Package bigcache is a volatile, in-process store.Store backed by
// allegro/bigcache. One BigCache instance is created per partition name and
// lives as long as the Store. Entries never expire by time, but a bigcache
// hash collision replaces the colliding entry, and HardMaxCacheSizeMB makes
// the shard evict; use it where losing an entry is acceptable.
package bigcache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/synckv/store"
)

const (
	Kind = "bigcache"

	noExpiry = 100 * 365 * 24 * time.Hour
)

type Config struct {
	Shards             int // power of two; 0 => bigcache default
	MaxEntriesInWindow int // sizing hint for initial allocation; 0 => 1024
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit per partition; 0 = unlimited
}

type Store struct {
	cfg Config

	mu    sync.Mutex
	parts map[string]*bc.BigCache
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) *Store {
	return &Store{cfg: cfg, parts: make(map[string]*bc.BigCache)}
}

func (s *Store) Kind() string { return Kind }

func (s *Store) Open(_ context.Context, name string) (store.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.parts[name]; ok {
		return &Conn{c: c}, nil
	}
	conf := bc.DefaultConfig(noExpiry)
	conf.CleanWindow = 0
	conf.Verbose = false
	if s.cfg.Shards > 0 {
		conf.Shards = s.cfg.Shards
	}
	conf.MaxEntriesInWindow = 1024
	if s.cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = s.cfg.MaxEntriesInWindow
	}
	if s.cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = s.cfg.MaxEntrySize
	}
	if s.cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = s.cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	s.parts[name] = c
	return &Conn{c: c}, nil
}

// Close releases every partition.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, c := range s.parts {
		errs = append(errs, c.Close())
		delete(s.parts, name)
	}
	return errors.Join(errs...)
}

type Conn struct {
	c *bc.BigCache
}

var _ store.Conn = (*Conn)(nil)

// GetAll walks the shards with bigcache's iterator. Order is by key since
// bigcache keeps none.
func (p *Conn) GetAll(_ context.Context) ([]store.Pair, error) {
	var out []store.Pair
	it := p.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			return nil, err
		}
		out = append(out, store.Pair{Key: e.Key(), Value: string(e.Value())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (p *Conn) Get(_ context.Context, key string) (string, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (p *Conn) Put(_ context.Context, key, value string) error {
	return p.c.Set(key, []byte(value))
}

func (p *Conn) Delete(_ context.Context, key string) error {
	if err := p.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Close is a no-op; partitions belong to the Store.
func (p *Conn) Close(_ context.Context) error { return nil }
