package synckv

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/synckv/store"
	"github.com/unkn0wn-root/synckv/store/memstore"
)

// faultStore wraps a memstore and lets tests stall or fail individual calls.
type faultStore struct {
	inner  store.Store
	calls  atomic.Int64
	closes atomic.Int64

	mu  sync.Mutex
	cfg faults
}

type faults struct {
	openErr    error
	loadErr    error
	putErr     error
	loadGate   chan struct{}
	writeGate  chan struct{}
	getGate    chan struct{}
	getEntered chan struct{}
	delay      func(key string) time.Duration
}

var _ store.Store = (*faultStore)(nil)

func newFaultStore() *faultStore { return &faultStore{inner: memstore.New()} }

func (f *faultStore) snapshot() faults {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *faultStore) set(fn func(cfg *faults)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.cfg)
}

func (f *faultStore) Kind() string { return "fault" }

func (f *faultStore) Open(ctx context.Context, name string) (store.Conn, error) {
	f.calls.Add(1)
	if err := f.snapshot().openErr; err != nil {
		return nil, err
	}
	c, err := f.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &faultConn{f: f, inner: c}, nil
}

type faultConn struct {
	f     *faultStore
	inner store.Conn
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *faultConn) GetAll(ctx context.Context) ([]store.Pair, error) {
	c.f.calls.Add(1)
	fs := c.f.snapshot()
	if err := wait(ctx, fs.loadGate); err != nil {
		return nil, err
	}
	if fs.loadErr != nil {
		return nil, fs.loadErr
	}
	return c.inner.GetAll(ctx)
}

func (c *faultConn) Get(ctx context.Context, key string) (string, bool, error) {
	c.f.calls.Add(1)
	fs := c.f.snapshot()
	if fs.getEntered != nil {
		fs.getEntered <- struct{}{}
	}
	if err := wait(ctx, fs.getGate); err != nil {
		return "", false, err
	}
	return c.inner.Get(ctx, key)
}

func (c *faultConn) write(ctx context.Context, key string, do func() error) error {
	c.f.calls.Add(1)
	fs := c.f.snapshot()
	if err := wait(ctx, fs.writeGate); err != nil {
		return err
	}
	if fs.delay != nil {
		time.Sleep(fs.delay(key))
	}
	if fs.putErr != nil {
		return fs.putErr
	}
	return do()
}

func (c *faultConn) Put(ctx context.Context, key, value string) error {
	return c.write(ctx, key, func() error { return c.inner.Put(ctx, key, value) })
}

func (c *faultConn) Delete(ctx context.Context, key string) error {
	return c.write(ctx, key, func() error { return c.inner.Delete(ctx, key) })
}

func (c *faultConn) Close(ctx context.Context) error {
	c.f.closes.Add(1)
	return c.inner.Close(ctx)
}

// backendValue reads name/key straight from the wrapped store.
func (f *faultStore) backendValue(name, key string) (string, bool) {
	c, err := f.inner.Open(context.Background(), name)
	if err != nil {
		panic(err)
	}
	v, ok, err := c.Get(context.Background(), key)
	if err != nil {
		panic(err)
	}
	return v, ok
}

func (f *faultStore) backendPut(name, key, value string) {
	c, err := f.inner.Open(context.Background(), name)
	if err != nil {
		panic(err)
	}
	if err := c.Put(context.Background(), key, value); err != nil {
		panic(err)
	}
}

func (f *faultStore) backendDelete(name, key string) {
	c, err := f.inner.Open(context.Background(), name)
	if err != nil {
		panic(err)
	}
	if err := c.Delete(context.Background(), key); err != nil {
		panic(err)
	}
}
