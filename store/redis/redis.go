// Package redis stores each partition as one Redis hash ("<prefix><name>").
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/synckv/store"
)

const (
	Kind          = "redis"
	defaultPrefix = "synckv:"
)

var ErrNilClient = errors.New("redis store: nil client")

type Config struct {
	Client      goredis.UniversalClient
	Prefix      string // hash key prefix; "" => "synckv:"
	CloseClient bool   // set true only if this store exclusively owns the client
}

type Store struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool

	mu   sync.Mutex
	refs int // open Conns; the owned client closes when this drops to zero
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: cfg.Client, prefix: prefix, closeClient: cfg.CloseClient}, nil
}

func (s *Store) Kind() string { return Kind }

// Key returns the hash key that holds partition name.
func (s *Store) Key(name string) string { return s.prefix + name }

// Open checks connectivity. Hashes are created by the first HSET, so there
// is nothing to provision.
func (s *Store) Open(ctx context.Context, name string) (store.Conn, error) {
	if name == "" {
		return nil, errors.New("redis store: empty partition name")
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis store: ping: %w", err)
	}
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
	return &Conn{s: s, key: s.Key(name)}, nil
}

func (s *Store) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs--
	if s.refs > 0 || !s.closeClient {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}

type Conn struct {
	s      *Store
	key    string
	closed atomic.Bool
}

var _ store.Conn = (*Conn)(nil)

// GetAll uses a single HGETALL. Redis hashes are unordered, so pairs are
// returned sorted by key to keep loads deterministic.
func (c *Conn) GetAll(ctx context.Context) ([]store.Pair, error) {
	m, err := c.s.rdb.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]store.Pair, 0, len(keys))
	for _, k := range keys {
		out = append(out, store.Pair{Key: k, Value: m[k]})
	}
	return out, nil
}

func (c *Conn) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.s.rdb.HGet(ctx, c.key, key).Result()
	if err == goredis.Nil {
		return "", false, nil // miss
	}
	if err != nil {
		return "", false, err // transport/server error
	}
	return v, true, nil
}

func (c *Conn) Put(ctx context.Context, key, value string) error {
	return c.s.rdb.HSet(ctx, c.key, key, value).Err()
}

// Delete is HDEL, which already treats a missing field as a no-op.
func (c *Conn) Delete(ctx context.Context, key string) error {
	return c.s.rdb.HDel(ctx, c.key, key).Err()
}

// Close releases this Conn. When the store owns the client, the client is
// closed once the last Conn opened on the store is released. Repeated calls
// are no-ops.
func (c *Conn) Close(context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.s.release()
}
