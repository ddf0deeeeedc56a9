// Package filestore persists each partition as an append-only log file
// (<dir>/<name>.kvlog) of framed put/delete records.
//
// The whole log is replayed into memory on Open, so reads never touch disk.
// A torn or corrupt tail (e.g. after a crash mid-append) is truncated away
// during replay. Logs with more dead records than live ones are rewritten on
// Open; Compact does the same on demand.
//
// Connections to the same name opened through one Store share a single file
// handle. Two Store values (or two processes) must not open the same file.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/synckv/internal/ordered"
	"github.com/unkn0wn-root/synckv/internal/wire"
	"github.com/unkn0wn-root/synckv/store"
)

const (
	Kind = "file"
	ext  = ".kvlog"

	defaultCompactMin = 1024
)

var (
	ErrClosed      = errors.New("filestore: connection closed")
	ErrInvalidName = errors.New("filestore: invalid partition name")
)

type Config struct {
	Dir string
	// Sync fsyncs after every append. Slower, but an acknowledged write
	// survives power loss rather than only a process crash.
	Sync bool
	// CompactMin is the dead-record count below which Open never compacts.
	// 0 => 1024; negative disables compaction on Open.
	CompactMin int
}

type Store struct {
	dir        string
	sync       bool
	compactMin int

	mu    sync.Mutex
	files map[string]*logFile
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("filestore: dir is required")
	}
	compactMin := cfg.CompactMin
	if compactMin == 0 {
		compactMin = defaultCompactMin
	}
	return &Store{
		dir:        cfg.Dir,
		sync:       cfg.Sync,
		compactMin: compactMin,
		files:      make(map[string]*logFile),
	}, nil
}

func (s *Store) Kind() string { return Kind }

// Path returns the log file used for name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+ext)
}

func (s *Store) Open(_ context.Context, name string) (store.Conn, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lf, ok := s.files[name]; ok {
		lf.refs++
		return &Conn{s: s, name: name, lf: lf}, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create dir: %w", err)
	}
	lf, err := openLog(s.Path(name), s.sync)
	if err != nil {
		return nil, err
	}
	if s.compactMin > 0 && lf.dead >= s.compactMin && lf.dead > lf.items.Len() {
		if err := lf.compact(); err != nil {
			_ = lf.f.Close()
			return nil, err
		}
	}
	lf.refs = 1
	s.files[name] = lf
	return &Conn{s: s, name: name, lf: lf}, nil
}

func (s *Store) release(name string, lf *logFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lf.refs--
	if lf.refs > 0 {
		return nil
	}
	delete(s.files, name)
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.f.Close()
}

// file is the part of *os.File a log needs.
type file interface {
	io.ReadWriteSeeker
	Truncate(size int64) error
	Sync() error
	Close() error
}

type logFile struct {
	path string
	sync bool

	mu    sync.RWMutex
	f     file
	size  int64 // bytes of whole records; the write offset
	items *ordered.Map
	dead  int // records in the file that no longer describe a live entry
	refs  int // guarded by Store.mu
}

func openLog(path string, syncWrites bool) (*logFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filestore: open %s: %w", path, err)
	}
	lf := &logFile{path: path, sync: syncWrites, f: f, items: ordered.New()}
	if err := lf.replay(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return lf, nil
}

func (lf *logFile) replay() error {
	b, err := io.ReadAll(lf.f)
	if err != nil {
		return fmt.Errorf("filestore: read %s: %w", lf.path, err)
	}
	off := 0
	for off < len(b) {
		r, n, err := wire.DecodeRecord(b[off:])
		if err != nil {
			// everything from here on is a torn or damaged tail
			if terr := lf.f.Truncate(int64(off)); terr != nil {
				return fmt.Errorf("filestore: truncate %s: %w", lf.path, terr)
			}
			break
		}
		off += n
		lf.apply(r)
	}
	if _, err := lf.f.Seek(int64(off), io.SeekStart); err != nil {
		return fmt.Errorf("filestore: seek %s: %w", lf.path, err)
	}
	lf.size = int64(off)
	return nil
}

func (lf *logFile) apply(r wire.Record) {
	switch r.Op {
	case wire.OpPut:
		if !lf.items.Set(r.Key, r.Value) {
			lf.dead++
		}
	case wire.OpDelete:
		if lf.items.Delete(r.Key) {
			lf.dead += 2 // the put it cancels and the tombstone itself
		} else {
			lf.dead++
		}
	}
}

func (lf *logFile) append(r wire.Record) error {
	b, err := wire.EncodeRecord(r)
	if err != nil {
		return err
	}
	if _, err := lf.f.Write(b); err != nil {
		return lf.rollback(fmt.Errorf("filestore: append %s: %w", lf.path, err))
	}
	if lf.sync {
		if err := lf.f.Sync(); err != nil {
			return lf.rollback(fmt.Errorf("filestore: sync %s: %w", lf.path, err))
		}
	}
	lf.size += int64(len(b))
	lf.apply(r)
	return nil
}

// rollback cuts a partially written record off the end of the log, so the
// next append does not land behind bytes replay would stop at.
func (lf *logFile) rollback(cause error) error {
	if err := lf.f.Truncate(lf.size); err != nil {
		return errors.Join(cause, fmt.Errorf("filestore: truncate %s: %w", lf.path, err))
	}
	if _, err := lf.f.Seek(lf.size, io.SeekStart); err != nil {
		return errors.Join(cause, fmt.Errorf("filestore: seek %s: %w", lf.path, err))
	}
	return cause
}

// compact rewrites the log with one put per live entry. Caller holds lf.mu
// (or has exclusive access during Open).
func (lf *logFile) compact() error {
	tmp := lf.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("filestore: compact %s: %w", lf.path, err)
	}
	fail := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("filestore: compact %s: %w", lf.path, err)
	}
	for _, k := range lf.items.Keys() {
		v, _ := lf.items.Get(k)
		b, err := wire.EncodeRecord(wire.Record{Op: wire.OpPut, Key: k, Value: v})
		if err != nil {
			return fail(err)
		}
		if _, err := f.Write(b); err != nil {
			return fail(err)
		}
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fail(err)
	}
	if err := os.Rename(tmp, lf.path); err != nil {
		return fail(err)
	}
	_ = lf.f.Close()
	lf.f = f
	lf.size = size
	lf.dead = 0
	return nil
}

// Conn is a handle on one partition's log.
type Conn struct {
	s      *Store
	name   string
	lf     *logFile
	closed atomic.Bool
}

var _ store.Conn = (*Conn)(nil)

func (c *Conn) GetAll(_ context.Context) ([]store.Pair, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.lf.mu.RLock()
	defer c.lf.mu.RUnlock()
	keys := c.lf.items.Keys()
	out := make([]store.Pair, 0, len(keys))
	for _, k := range keys {
		v, _ := c.lf.items.Get(k)
		out = append(out, store.Pair{Key: k, Value: v})
	}
	return out, nil
}

func (c *Conn) Get(_ context.Context, key string) (string, bool, error) {
	if c.closed.Load() {
		return "", false, ErrClosed
	}
	c.lf.mu.RLock()
	defer c.lf.mu.RUnlock()
	v, ok := c.lf.items.Get(key)
	return v, ok, nil
}

func (c *Conn) Put(_ context.Context, key, value string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.lf.mu.Lock()
	defer c.lf.mu.Unlock()
	return c.lf.append(wire.Record{Op: wire.OpPut, Key: key, Value: value})
}

func (c *Conn) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.lf.mu.Lock()
	defer c.lf.mu.Unlock()
	if !c.lf.items.Has(key) {
		return nil
	}
	return c.lf.append(wire.Record{Op: wire.OpDelete, Key: key})
}

// Compact rewrites the log so it holds exactly one record per live entry.
func (c *Conn) Compact(_ context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.lf.mu.Lock()
	defer c.lf.mu.Unlock()
	return c.lf.compact()
}

// Dead returns the number of records a compaction would drop.
func (c *Conn) Dead() int {
	c.lf.mu.RLock()
	defer c.lf.mu.RUnlock()
	return c.lf.dead
}

func (c *Conn) Close(_ context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.s.release(c.name, c.lf)
}
